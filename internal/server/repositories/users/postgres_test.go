package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

var (
	insertRe = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*password,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id$`
	updateRe = `(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*\$2,\s*password\s*=\s*\$3,\s*updated_at\s*=\s*\$4\s+WHERE\s+id\s*=\s*\$1$`
	deleteRe = `^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	getRe    = `(?s)^SELECT\s+id,\s*name,\s*password,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	listRe   = `(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+name,\s*id$`
	searchRe = `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+lower\(name\)\s+LIKE.*lower\(\$1\).*ORDER\s+BY\s+name,\s*id$`

	columns = []string{"id", "name", "password", "created_at", "updated_at"}
)

func TestPostgres_Create_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(insertRe).
		WithArgs("u-1", "alice", "digest", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))

	got, err := repo.Create(context.Background(), &models.User{
		ID: "u-1", Name: "alice", Password: "digest", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Create_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertRe).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: "u-1", Name: "alice"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestPostgres_Update(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(updateRe).
		WithArgs("u-1", "bob", "digest", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, err := repo.Update(context.Background(), &models.User{ID: "u-1", Name: "bob", Password: "digest", UpdatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Name)
}

func TestPostgres_Update_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(updateRe).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), &models.User{ID: "ghost", Name: "x"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(deleteRe).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "u-1"))

	mock.ExpectExec(deleteRe).WithArgs("u-2").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u-2"), common.ErrorNotFound)

	mock.ExpectExec(deleteRe).WithArgs("u-3").WillReturnError(errors.New("locked"))
	err := repo.Delete(context.Background(), "u-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: locked")
}

func TestPostgres_GetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(getRe).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("u-1", "alice", "digest", now, now))

	u, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "digest", u.Password)
	assert.Equal(t, now, u.CreatedAt)
}

func TestPostgres_GetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(getRe).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_GetByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(getRe).WithArgs("u-1").WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "u-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, err.Error(), "db error: db err")
}

func TestPostgres_List(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(listRe).WillReturnRows(sqlmock.NewRows(columns).
		AddRow("u-1", "alice", "d1", now, now).
		AddRow("u-2", "bob", "d2", now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Name)
	assert.Equal(t, "bob", got[1].Name)
}

func TestPostgres_List_EmptyIsNotNil(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(listRe).WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgres_List_ScanError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(listRe).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))

	_, err := repo.List(context.Background())
	assert.Error(t, err)
}

func TestPostgres_SearchByName_EscapesWildcards(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(searchRe).WithArgs(`50\%\_off`).WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.SearchByName(context.Background(), "50%_off")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\\b\%c\_d`, escapeLike(`a\b%c_d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

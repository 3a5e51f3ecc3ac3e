// Package services contains the server-side business logic. This file
// implements UserService, which owns the persistence lifecycle of
// directory users: ID and timestamp assignment, password digesting,
// validation before every write, and transactional updates.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/dbx"
	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/dmitrijs2005/userdir/internal/server/models"
	"github.com/dmitrijs2005/userdir/internal/server/password"
	"github.com/dmitrijs2005/userdir/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// UserInput carries the attributes submitted for a create or update. A nil
// field was not submitted and is left alone.
type UserInput struct {
	Name     *string
	Password *string
}

// UserService provides the directory operations used by the web layer and
// the usersctl tool.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	digester    password.Digester
	logger      logging.Logger

	now   func() time.Time
	newID func() string
}

// NewUserService constructs a UserService. A nil digester selects the
// legacy MD5 scheme.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, d password.Digester, l logging.Logger) *UserService {
	if d == nil {
		d = password.MD5Digester{}
	}
	if l == nil {
		l = logging.Nop{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		digester:    d,
		logger:      l.With("module", "user_service"),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
	}
}

// List returns all users ordered by name.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return list, nil
}

// Search returns users whose name contains query, ignoring case. A blank
// query matches everyone.
func (s *UserService) Search(ctx context.Context, query string) ([]*models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}
	list, err := s.repomanager.Users(s.db).SearchByName(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error searching users: %w", err)
	}
	return list, nil
}

// Get returns the user with id or common.ErrorNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Build returns an unsaved user with in applied. Used to re-render forms
// after a validation failure.
func (s *UserService) Build(in UserInput) (*models.User, error) {
	u := &models.User{}
	if err := s.apply(u, in); err != nil {
		return nil, err
	}
	return u, nil
}

// Create builds, validates and stores a new user. On a validation failure
// the returned user carries the submitted name so the caller can re-render
// the form, and err matches common.ErrorValidation.
func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	u, err := s.Build(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.Persist(ctx, u); err != nil {
		return u, err
	}
	s.logger.Info(ctx, "user created", "id", u.ID)
	return u, nil
}

// Update applies in to the stored user with id inside one transaction.
func (s *UserService) Update(ctx context.Context, id string, in UserInput) (*models.User, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.apply(u, in); err != nil {
			return err
		}
		updated = u
		if err := u.Validate(); err != nil {
			return err
		}
		u.UpdatedAt = s.now()
		_, err = repo.Update(ctx, u)
		return err
	})
	if err != nil {
		return updated, err
	}

	s.logger.Info(ctx, "user updated", "id", id)
	return updated, nil
}

// Delete removes the user with id.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "id", id)
	return nil
}

// Persist validates u and writes it: records without an ID are inserted
// with a fresh one, others are updated. It returns the record's ID.
func (s *UserService) Persist(ctx context.Context, u *models.User) (string, error) {
	var rec models.Record = u
	if err := rec.Validate(); err != nil {
		return "", err
	}

	now := s.now()
	insert := u.ID == ""
	if insert {
		u.ID = s.newID()
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		var err error
		if insert {
			_, err = repo.Create(ctx, u)
		} else {
			_, err = repo.Update(ctx, u)
		}
		return err
	})
	if err != nil {
		if insert {
			u.ID = ""
			return "", fmt.Errorf("error creating user: %w", err)
		}
		return "", fmt.Errorf("error updating user: %w", err)
	}
	return u.ID, nil
}

// PasswordScheme reports the digest scheme applied to new passwords.
func (s *UserService) PasswordScheme() string {
	return s.digester.Scheme()
}

func (s *UserService) apply(u *models.User, in UserInput) error {
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Password != nil {
		if err := u.AssignPassword(s.digester, *in.Password); err != nil {
			return fmt.Errorf("error digesting password: %w", err)
		}
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/userdir/internal/common"
	sc "github.com/dmitrijs2005/userdir/internal/server/config"
	"github.com/dmitrijs2005/userdir/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "userdir",
	}
}

// stubS3 replaces the AWS seams for the duration of the test.
func stubS3(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	origUpload := uploadObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
		uploadObject = origUpload
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://put.example/" + *in.Key, Method: http.MethodPut}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://get.example/" + *in.Key, Method: http.MethodGet}, nil
	}
	uploadObject = func(ctx context.Context, client *http.Client, url string, body []byte, contentType string) error {
		return nil
	}
}

func newTestExportService(t *testing.T, cfg *sc.Config, seed ...*models.User) *ExportService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	s := NewExportService(db, &fakeRepoManager{u: newFakeUsersRepo(seed...)}, cfg, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestStorageKey(t *testing.T) {
	key := StorageKey("exports", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	re := regexp.MustCompile(`^exports/2024/3/5/[0-9a-f-]{36}\.xml$`)
	assert.Regexp(t, re, key)
	assert.NotEqual(t, key, StorageKey("exports", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
}

func TestExport_NotConfigured(t *testing.T) {
	cfg := exportConfig()
	cfg.S3Bucket = ""
	s := newTestExportService(t, cfg)

	assert.False(t, s.Enabled())
	_, err := s.Export(context.Background())
	assert.ErrorIs(t, err, common.ErrorStorageNotConfigured)
}

func TestExport_Success(t *testing.T) {
	stubS3(t)

	var uploaded []byte
	var uploadURL, uploadType string
	uploadObject = func(ctx context.Context, client *http.Client, url string, body []byte, contentType string) error {
		uploaded, uploadURL, uploadType = body, url, contentType
		return nil
	}

	var putExpires time.Duration
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var o s3.PresignOptions
		for _, fn := range optFns {
			fn(&o)
		}
		putExpires = o.Expires
		assert.Equal(t, "userdir", *in.Bucket)
		return &v4.PresignedHTTPRequest{URL: "https://put.example/" + *in.Key}, nil
	}

	s := newTestExportService(t, exportConfig(),
		&models.User{ID: idBob, Name: "Bob & Co"},
		&models.User{ID: idAlice, Name: "Alice"},
	)

	exp, err := s.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, exp.Users)
	assert.Equal(t, len(uploaded), exp.Bytes)
	assert.True(t, strings.HasPrefix(exp.StorageKey, "exports/2024/3/5/"))
	assert.Equal(t, "https://put.example/"+exp.StorageKey, uploadURL)
	assert.Equal(t, "https://get.example/"+exp.StorageKey, exp.URL)
	assert.Equal(t, "application/xml", uploadType)
	assert.Equal(t, 15*time.Minute, putExpires)

	doc := string(uploaded)
	assert.Contains(t, doc, `<users count="2">`)
	assert.Contains(t, doc, "<name>Bob &amp; Co</name>")
	assert.Less(t, strings.Index(doc, "Alice"), strings.Index(doc, "Bob"))
}

func TestExport_Errors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*ExportService)
		want  string
	}{
		{
			name: "list",
			setup: func(s *ExportService) {
				s.repomanager.(*fakeRepoManager).u.listErr = errBoom
			},
			want: "error listing users",
		},
		{
			name: "load config",
			setup: func(*ExportService) {
				loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
					return aws.Config{}, errBoom
				}
			},
			want: "error creating presign client",
		},
		{
			name: "presign put",
			setup: func(*ExportService) {
				presignPutObject = func(*s3.PresignClient, context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
					return nil, errBoom
				}
			},
			want: "error presigning upload",
		},
		{
			name: "upload",
			setup: func(*ExportService) {
				uploadObject = func(context.Context, *http.Client, string, []byte, string) error {
					return errBoom
				}
			},
			want: "error uploading export",
		},
		{
			name: "presign get",
			setup: func(*ExportService) {
				presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
					return nil, errBoom
				}
			},
			want: "error presigning download",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stubS3(t)
			s := newTestExportService(t, exportConfig(), &models.User{ID: idAlice, Name: "Alice"})
			tc.setup(s)

			_, err := s.Export(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errBoom))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGetPresignClient_AppliesConfig(t *testing.T) {
	stubS3(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	s := newTestExportService(t, exportConfig())
	pc, err := s.getPresignClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pc)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

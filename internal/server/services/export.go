package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/dmitrijs2005/userdir/internal/netx"
	sc "github.com/dmitrijs2005/userdir/internal/server/config"
	"github.com/dmitrijs2005/userdir/internal/server/models"
	"github.com/dmitrijs2005/userdir/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	uploadObject = netx.UploadToPresignedURL
)

// ExportService writes XML snapshots of the directory to S3-compatible
// storage.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
	httpClient  *http.Client

	now func() time.Time
}

func NewExportService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config, l logging.Logger) *ExportService {
	if l == nil {
		l = logging.Nop{}
	}
	return &ExportService{
		db:          db,
		repomanager: repomanager,
		config:      config,
		logger:      l.With("module", "export_service"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether a bucket and endpoint are configured.
func (s *ExportService) Enabled() bool {
	return s.config != nil && s.config.ExportEnabled()
}

// StorageKey returns a fresh object key of the form
// <prefix>/YYYY/M/D/<uuid>.xml.
func StorageKey(prefix string, d time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%d/%v.xml", prefix, d.Year(), int(d.Month()), d.Day(), uuid.New())
}

func (s *ExportService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		// MinIO and most self-hosted stores need path-style addressing
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// Export renders every user as XML, uploads the document through a
// presigned PUT and returns a presigned GET URL valid for 15 minutes.
func (s *ExportService) Export(ctx context.Context) (*models.Export, error) {
	if !s.Enabled() {
		return nil, common.ErrorStorageNotConfigured
	}

	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	body, err := models.UsersXML(list)
	if err != nil {
		return nil, fmt.Errorf("error rendering users: %w", err)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating presign client: %w", err)
	}

	created := s.now()
	bucket := s.config.S3Bucket
	key := StorageKey(common.DefaultExportPrefix, created)

	put, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	if err := uploadObject(ctx, s.httpClient, put.URL, body, "application/xml"); err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	get, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("error presigning download: %w", err)
	}

	s.logger.Info(ctx, "users exported", "key", key, "users", len(list), "bytes", len(body))

	return &models.Export{
		StorageKey: key,
		URL:        get.URL,
		Users:      len(list),
		Bytes:      len(body),
		CreatedAt:  created,
	}, nil
}

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/edvin/filevault/internal/model"
	"github.com/edvin/filevault/internal/storage"
)

const presignExpiry = 15 * time.Minute

// Backend stores backups as objects under <scope>/<name> in the server's
// bucket. Direct links are presigned GET URLs.
type Backend struct {
	client *s3.Client
	bucket string
	scope  string
}

func init() {
	storage.Register(model.KindS3, func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg)
	})
}

// New creates an S3 backend bound to one server and tenant scope.
func New(cfg storage.Config) (*Backend, error) {
	srv := cfg.Server
	if srv == nil || srv.Bucket == "" || srv.AccessKeyID == "" {
		return nil, storage.WrapError(model.KindS3, "open", storage.ErrInvalidConfig)
	}

	opts := s3.Options{
		Region:       srv.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(srv.AccessKeyID, srv.SecretAccessKey, ""),
		UsePathStyle: srv.UsePathStyle,
	}
	if srv.Endpoint != "" {
		opts.BaseEndpoint = aws.String(srv.Endpoint)
	}

	return &Backend{
		client: s3.New(opts),
		bucket: srv.Bucket,
		scope:  cfg.Scope,
	}, nil
}

func (b *Backend) Kind() string { return model.KindS3 }

// isNotFound matches the typed NoSuchKey error and, for non-AWS S3
// implementations that only set the code, the generic API error.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}

func (b *Backend) key(name string) string {
	return path.Join(b.scope, name)
}

func (b *Backend) Put(ctx context.Context, name string, content []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
		Body:   bytes.NewReader(content),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return storage.WrapError(model.KindS3, "put", err)
	}
	return nil
}

func (b *Backend) GetBytes(ctx context.Context, name string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.WrapError(model.KindS3, "get", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, storage.WrapError(model.KindS3, "read body", err)
	}
	return content, nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	// DeleteObject succeeds for absent keys, which gives us the
	// already-deleted semantics for free.
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return storage.WrapError(model.KindS3, "delete", err)
	}
	return nil
}

func (b *Backend) DirectLink(ctx context.Context, name string) (string, error) {
	presigner := s3.NewPresignClient(b.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", storage.WrapError(model.KindS3, "presign", err)
	}
	return req.URL, nil
}

func (b *Backend) SupportsDirectLink() bool { return true }

// UsedBytes sums object sizes under the tenant scope, giving an authoritative
// usage figure independent of the registry.
func (b *Backend) UsedBytes(ctx context.Context) (int64, error) {
	var total int64

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.scope + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, storage.WrapError(model.KindS3, "list", err)
		}
		for _, obj := range page.Contents {
			if obj.Size != nil {
				total += *obj.Size
			}
		}
	}

	return total, nil
}

func (b *Backend) Close() error { return nil }

package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

var errMissingDeleteKey = errors.New("missing delete key")

// s3API is the part of *s3.Client the store needs.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config holds the connection settings of an S3-compatible backend.
type S3Config struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store keeps blobs as objects in one bucket. The locator is the
// path-style object URL, the delete key is the object key.
type S3Store struct {
	client   s3API
	bucket   string
	endpoint string
}

// NewS3Store builds an S3 client from static credentials. Path-style
// addressing is forced so MinIO endpoints work.
func NewS3Store(ctx context.Context, c S3Config) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.User, c.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3Store(client, c.Bucket, c.BaseEndpoint), nil
}

func newS3Store(client s3API, bucket, endpoint string) *S3Store {
	return &S3Store{client: client, bucket: bucket, endpoint: strings.TrimRight(endpoint, "/")}
}

func (s *S3Store) Kind() Kind { return KindRemote }

// GetRandomStorageKey returns a fresh object key for the given extension.
func GetRandomStorageKey(ext string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("gallery/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *S3Store) locator(key string) string {
	return s.endpoint + "/" + s.bucket + "/" + key
}

// keyFromLocator is the inverse of locator.
func (s *S3Store) keyFromLocator(locator string) (string, error) {
	prefix := s.endpoint + "/" + s.bucket + "/"
	key, ok := strings.CutPrefix(locator, prefix)
	if !ok || key == "" {
		return "", fmt.Errorf("locator %q does not belong to bucket %q", locator, s.bucket)
	}
	return key, nil
}

func (s *S3Store) Put(ctx context.Context, data []byte, contentType string) (Blob, error) {
	mediaType, ext, err := NormalizeContentType(contentType)
	if err != nil {
		return Blob{}, err
	}

	key := GetRandomStorageKey(ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mediaType),
	})
	if err != nil {
		return Blob{}, fmt.Errorf("failed to put object %q: %w", key, err)
	}

	return Blob{Locator: s.locator(key), DeleteKey: key}, nil
}

func (s *S3Store) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	return out.Body, nil
}

// Delete removes the object named by deleteKey. S3 deletes are idempotent,
// so the object is looked up first and a missing one is reported as
// common.ErrBlobNotFound instead of a silent success.
func (s *S3Store) Delete(ctx context.Context, _ string, deleteKey string) error {
	if deleteKey == "" {
		return errMissingDeleteKey
	}

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(deleteKey),
	}); err != nil {
		if isNotFound(err) {
			return common.ErrBlobNotFound
		}
		return fmt.Errorf("failed to head object %q: %w", deleteKey, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(deleteKey),
	}); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", deleteKey, err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, locator string) (bool, error) {
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return false, err
	}
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %q: %w", key, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

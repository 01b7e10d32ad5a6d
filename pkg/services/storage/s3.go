package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// presignTTL is how long generated download links stay valid
const presignTTL = 15 * time.Minute

// S3Options configures the S3 store. Endpoint is set for S3 compatible
// providers and switches the client to path-style addressing.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

// S3Store keeps documents in an S3 bucket
type S3Store struct {
	client    s3iface.S3API
	uploader  s3manageriface.UploaderAPI
	bucket    string
	publicURL string
}

// NewS3Store creates a session from opts and the default AWS credential chain
func NewS3Store(opts S3Options) (*S3Store, error) {
	awsCfg := &aws.Config{
		Region: aws.String(opts.Region),
	}
	if opts.Endpoint != "" {
		awsCfg.Endpoint = aws.String(opts.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return newS3Store(s3.New(sess), s3manager.NewUploader(sess), opts.Bucket, opts.PublicURL), nil
}

func newS3Store(client s3iface.S3API, uploader s3manageriface.UploaderAPI, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		uploader:  uploader,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *S3Store) Save(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return describeS3Error(s.bucket, err)
	}
	return nil
}

// Open always fails: S3 documents are handed to the browser by URL
func (s *S3Store) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, ErrRemote
}

func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrNotFound
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + url.PathEscape(key), nil
	}

	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey) {
			return "", ErrNotFound
		}
		return "", describeS3Error(s.bucket, err)
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	link, err := req.Presign(presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return link, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return describeS3Error(s.bucket, err)
	}
	return nil
}

func (s *S3Store) Name() string {
	return "s3"
}

// describeS3Error turns common S3 failures into operator friendly messages
func describeS3Error(bucket string, err error) error {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return fmt.Errorf("storage error: %w", err)
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchBucket:
		return fmt.Errorf("bucket %q does not exist: %w", bucket, err)
	case "AccessDenied", "Forbidden":
		return fmt.Errorf("storage permission denied, check the bucket policy: %w", err)
	case "EntityTooLarge":
		return fmt.Errorf("file exceeds the storage size limit: %w", err)
	default:
		return fmt.Errorf("storage error: %w", err)
	}
}

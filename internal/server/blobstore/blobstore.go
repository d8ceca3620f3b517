// Package blobstore keeps uploaded images in an S3-compatible bucket and
// hands out their public URLs.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	sc "github.com/dmitrijs2005/portfolio/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Store struct {
	client     objectAPI
	bucket     string
	publicBase string
	now        func() time.Time
}

// New builds a Store for the bucket and credentials in cfg. Path-style
// addressing is forced so MinIO endpoints work.
func New(ctx context.Context, cfg *sc.Config) (*Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return newStore(client, cfg.S3Bucket, cfg.S3PublicBaseURL), nil
}

func newStore(client objectAPI, bucket, publicBase string) *Store {
	return &Store{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces name to a safe object-key segment.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	if name == "" {
		return "file"
	}
	return name
}

// Key builds a unique object key under pathHint.
func (s *Store) Key(pathHint, filename string) string {
	d := s.now().UTC()
	hint := strings.Trim(pathHint, "/")
	if hint == "" {
		hint = "uploads"
	}
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s-%s", hint, d.Year(), d.Month(), d.Day(), uuid.New(), SanitizeFilename(filename))
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return s.publicBase + "/" + key
}

// KeyFromURL returns the object key for a URL served from this store. ok is
// false for URLs the store does not manage.
func (s *Store) KeyFromURL(url string) (key string, ok bool) {
	if s.publicBase == "" {
		return "", false
	}
	key, ok = strings.CutPrefix(url, s.publicBase+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Manages reports whether url points into this store.
func (s *Store) Manages(url string) bool {
	_, ok := s.KeyFromURL(url)
	return ok
}

// Upload stores data under a fresh key and returns its public URL.
func (s *Store) Upload(ctx context.Context, pathHint string, data []byte, contentType, filename string) (string, error) {
	key := s.Key(pathHint, filename)

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.URL(key), nil
}

// Delete removes the object behind url. It reports deleted=false without
// error when url is not managed by the store or the object is already gone.
func (s *Store) Delete(ctx context.Context, url string) (deleted bool, err error) {
	key, ok := s.KeyFromURL(url)
	if !ok {
		return false, nil
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete object %s: %w", key, err)
	}
	return true, nil
}

func statusCode(err error) int {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

// IsNotFound reports whether err says the object does not exist.
func IsNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return statusCode(err) == http.StatusNotFound
}

// IsAccessDenied reports whether the store refused the request.
func IsAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return true
		}
	}
	return statusCode(err) == http.StatusForbidden
}

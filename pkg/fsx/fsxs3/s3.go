// Package fsxs3 stores files in an S3 bucket.
package fsxs3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/fsx"
)

// API is the subset of *s3.Client used by S3FileSystem.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3FileSystem implements fsx.FileSystem and fsx.PresignedURLGenerator
type S3FileSystem struct {
	client  API
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3FileSystem stores every key under prefix inside bucket.
func NewS3FileSystem(client *s3.Client, bucket, prefix string) *S3FileSystem {
	fs := New(client, bucket, prefix)
	fs.presign = s3.NewPresignClient(client)
	return fs
}

// New builds a file system over any API implementation. Presigned URLs are
// only available through NewS3FileSystem.
func New(client API, bucket, prefix string) *S3FileSystem {
	return &S3FileSystem{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	key, err := s.key(p)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.mapError(err, "get", p)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fsx.StorageError(err, "get", p)
	}
	return data, nil
}

func (s *S3FileSystem) Stat(ctx context.Context, p string) (fsx.FileInfo, error) {
	key, err := s.key(p)
	if err != nil {
		return fsx.FileInfo{}, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fsx.FileInfo{}, s.mapError(err, "head", p)
	}

	return fsx.FileInfo{
		Name:        path.Base(key),
		Size:        aws.ToInt64(out.ContentLength),
		ModTime:     aws.ToTime(out.LastModified),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

func (s *S3FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errx.IsCode(err, fsx.ErrFileNotFound) {
		return false, nil
	}
	return false, err
}

func (s *S3FileSystem) WriteFile(ctx context.Context, p string, data []byte, contentType string) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = fsx.ContentTypeByExt(key)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fsx.StorageError(err, "put", p)
	}
	return nil
}

// DeleteFile succeeds on missing keys, as S3 itself does.
func (s *S3FileSystem) DeleteFile(ctx context.Context, p string) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fsx.StorageError(err, "delete", p)
	}
	return nil
}

func (s *S3FileSystem) GetPresignedDownloadURL(ctx context.Context, p string, expiration time.Duration) (string, error) {
	if s.presign == nil {
		return "", fsx.StorageError(errors.New("presigning not configured"), "presign", p)
	}
	key, err := s.key(p)
	if err != nil {
		return "", err
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fsx.StorageError(err, "presign", p)
	}
	return req.URL, nil
}

func (s *S3FileSystem) key(p string) (string, error) {
	cleaned, err := fsx.CleanPath(p)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return s.prefix + "/" + cleaned, nil
}

func (s *S3FileSystem) mapError(err error, op, p string) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		e := fsx.NotFound(p)
		e.Err = err
		return e
	}
	return fsx.StorageError(err, op, p)
}

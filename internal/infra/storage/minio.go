package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps patient-uploaded documents (prior reports, lab results); the
// object key doubles as the doc_id forwarded to the analysis backend.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO and makes sure the bucket exists
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// Upload stores one document and returns its doc_id. Objects are keyed
// under the owning user so listings stay per-patient.
func (s *Store) Upload(ctx context.Context, userID, filename string, r io.Reader, size int64) (string, error) {
	docID := fmt.Sprintf("%s/%s%s", userID, uuid.New().String(), filepath.Ext(filename))

	_, err := s.client.PutObject(ctx, s.bucketName, docID, r, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(filename),
	})
	if err != nil {
		return "", err
	}
	return docID, nil
}

// URL returns a plain object URL (valid when the bucket is public; private
// buckets need a presigned URL instead).
func (s *Store) URL(docID string) string {
	return fmt.Sprintf("http://%s/%s/%s", s.client.EndpointURL().Host, s.bucketName, docID)
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

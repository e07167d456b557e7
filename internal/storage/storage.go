// Package storage keeps task photos in an S3 compatible object store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrEmptyObject = errors.New("object is empty")

// Object describes a stored file.
type Object struct {
	Key  string
	URL  string
	Size int64
}

type ObjectStorage interface {
	Save(ctx context.Context, name, contentType string, data []byte) (Object, error)
	Delete(ctx context.Context, key string) error
}

// objectKey keeps the extension of name so browsers pick a sensible viewer.
func objectKey(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("photos/%s/%s%s", time.Now().UTC().Format("2006/01/02"), uuid.NewString(), ext)
}

type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStorage connects to the endpoint and creates the bucket when missing.
func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool, bucket, publicURL string) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}

	return &MinioStorage{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *MinioStorage) Save(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	if len(data) == 0 {
		return Object{}, ErrEmptyObject
	}

	key := objectKey(name)
	size := int64(len(data))

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"filename": name},
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return Object{Key: key, URL: s.publicURL + "/" + s.bucket + "/" + key, Size: size}, nil
}

func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// MemoryStorage keeps objects in process memory. It backs local runs without
// an object store and the tests.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Save(_ context.Context, name, _ string, data []byte) (Object, error) {
	if len(data) == 0 {
		return Object{}, ErrEmptyObject
	}

	key := objectKey(name)
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = buf
	s.mu.Unlock()

	return Object{Key: key, URL: "memory://" + key, Size: int64(len(buf))}, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Get returns a stored object.
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"songbox/config"
	"songbox/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPrefix namespaces audio objects inside the bucket.
const objectPrefix = "audio/"

// MinioStore keeps objects in a MinIO (or any S3 compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// BucketStats summarizes the audio objects of a bucket.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// NewMinioStore connects to MinIO and creates the bucket when it is missing.
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	logger.Info("Connecting to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket),
		logger.String("region", cfg.MinioRegion))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// Bucket returns the bucket name.
func (s *MinioStore) Bucket() string { return s.bucket }

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFoundObject"
}

func (s *MinioStore) Save(ctx context.Context, name string, r io.Reader, size int64) (int64, error) {
	if !ValidName(name) {
		return 0, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%q: %w", name, ErrExists)
	}

	info, err := s.client.PutObject(ctx, s.bucket, objectPrefix+name, r, size, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return info.Size, nil
}

func (s *MinioStore) Open(ctx context.Context, name string) (Object, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectPrefix+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	// GetObject is lazy; Stat performs the request.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return &minioObject{Object: obj, info: s.objectInfo(st)}, nil
}

func (s *MinioStore) Delete(ctx context.Context, name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectPrefix+name, minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

func (s *MinioStore) List(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		info := s.objectInfo(obj)
		if !ValidName(info.Name) {
			continue
		}
		objects = append(objects, info)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (s *MinioStore) Exists(ctx context.Context, name string) (bool, error) {
	if !ValidName(name) {
		return false, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	_, err := s.client.StatObject(ctx, s.bucket, objectPrefix+name, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return true, nil
}

// Stats walks the audio prefix and totals object count and size.
func (s *MinioStore) Stats(ctx context.Context) (*BucketStats, []ObjectInfo, error) {
	objects, err := s.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	stats := &BucketStats{}
	for _, o := range objects {
		stats.TotalObjects++
		stats.TotalSize += o.Size
		if o.ModTime.After(stats.LastModified) {
			stats.LastModified = o.ModTime
		}
	}
	return stats, objects, nil
}

func (s *MinioStore) objectInfo(o minio.ObjectInfo) ObjectInfo {
	ct := o.ContentType
	name := strings.TrimPrefix(o.Key, objectPrefix)
	if ct == "" {
		ct = ContentType(name)
	}
	return ObjectInfo{Name: name, Size: o.Size, ModTime: o.LastModified, ContentType: ct}
}

type minioObject struct {
	*minio.Object
	info ObjectInfo
}

func (o *minioObject) Stat() ObjectInfo { return o.info }

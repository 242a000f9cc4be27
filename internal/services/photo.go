package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"matching-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// PhotoStorage saves an object and returns the URL it is served from.
// Delete removes an object by that URL and ignores URLs it did not issue.
type PhotoStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// LocalStorage writes photos under a directory served by the HTTP server
type LocalStorage struct {
	dir        string
	publicPath string
}

// NewLocalStorage creates the upload directory if needed
func NewLocalStorage(dir, publicPath string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

func (s *LocalStorage) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	return path.Join(s.publicPath, key), nil
}

// Delete removes a photo previously returned by Put
func (s *LocalStorage) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.publicPath+"/")
	if !ok || key == "" || strings.Contains(key, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// S3Config holds S3 storage configuration
type S3Config struct {
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	PublicBaseURL string
}

// S3Storage uploads photos to an S3 compatible bucket
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Storage creates an S3 client. Static credentials are used when set,
// otherwise the default AWS credential chain.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Storage{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

func (s *S3Storage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo to s3: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes an object previously returned by Put
func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete photo from s3: %w", err)
	}
	return nil
}

// PhotoService handles profile photo uploads
type PhotoService struct {
	users    UserStore
	storage  PhotoStorage
	clock    Clock
	maxBytes int64
}

// NewPhotoService creates a new photo service
func NewPhotoService(users UserStore, storage PhotoStorage, clock Clock, maxBytes int64) *PhotoService {
	return &PhotoService{
		users:    users,
		storage:  storage,
		clock:    clock,
		maxBytes: maxBytes,
	}
}

// MaxBytes is the largest accepted upload
func (s *PhotoService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores an image as the user's profile photo and returns its URL
func (s *PhotoService) Upload(ctx context.Context, userID int64, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) == 0 {
		return "", invalidf("photo is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return "", invalidf("photo must be at most %d bytes", s.maxBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := photoExtensions[contentType]
	if !ok {
		return "", invalidf("unsupported image type %s", contentType)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", storeErr("get user", err)
	}

	key := fmt.Sprintf("users/%d/%s%s", userID, uuid.New().String(), ext)
	url, err := s.storage.Put(ctx, key, contentType, data)
	if err != nil {
		return "", err
	}

	if err := s.users.UpdatePhoto(ctx, userID, url, s.clock()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", storeErr("update photo", err)
	}

	if user.Photo != nil && *user.Photo != url {
		if err := s.storage.Delete(ctx, *user.Photo); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Str("photo", *user.Photo).Msg("Failed to delete previous photo")
		}
	}

	log.Info().
		Int64("user_id", userID).
		Str("key", key).
		Int("size", len(data)).
		Msg("Photo uploaded")

	return url, nil
}

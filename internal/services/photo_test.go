package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPhotoService_UploadLocal(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 1)
	dir := t.TempDir()

	storage, err := NewLocalStorage(dir, "/uploads/")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	svc := NewPhotoService(env.store.Users(), storage, env.clock.Now, 1<<20)

	url, err := svc.Upload(context.Background(), 1, bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/users/1/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}

	onDisk := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/")))
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("stored file: %v", err)
	}

	user, _ := env.store.Users().GetByID(context.Background(), 1)
	if user.Photo == nil || *user.Photo != url {
		t.Fatalf("user photo = %v, want %q", user.Photo, url)
	}
}

func TestPhotoService_Rejects(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 1)
	storage, _ := NewLocalStorage(t.TempDir(), "/uploads")
	svc := NewPhotoService(env.store.Users(), storage, env.clock.Now, 64)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an image", []byte("plain text, definitely not a picture")},
		{"too large", append(pngBytes(t), make([]byte, 64)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), 1, bytes.NewReader(tt.data))
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestPhotoService_ReplaceRemovesPrevious(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 1)
	dir := t.TempDir()
	storage, _ := NewLocalStorage(dir, "/uploads")
	svc := NewPhotoService(env.store.Users(), storage, env.clock.Now, 1<<20)
	ctx := context.Background()

	onDisk := func(url string) string {
		return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/")))
	}

	first, err := svc.Upload(ctx, 1, bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.Upload(ctx, 1, bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if _, err := os.Stat(onDisk(first)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("previous photo still stored: %v", err)
	}
	if _, err := os.Stat(onDisk(second)); err != nil {
		t.Fatalf("current photo: %v", err)
	}

	// URLs from elsewhere are left alone
	if err := storage.Delete(ctx, "https://cdn.example.com/users/1/a.png"); err != nil {
		t.Fatalf("foreign url: %v", err)
	}
	if err := storage.Delete(ctx, "/uploads/../outside.png"); err != nil {
		t.Fatalf("traversal url: %v", err)
	}

	if _, err := svc.Upload(ctx, 99, bytes.NewReader(pngBytes(t))); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
}

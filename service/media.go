package service

import (
	"bytes"
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const MediaRoutePrefix = "/api/media/"

// MediaStore keeps uploaded recordings and mirrored videos in one bucket.
type MediaStore struct {
	client *minio.Client
	bucket string
	http   *http.Client
}

func NewMediaStore(client *minio.Client, bucket string, httpClient *http.Client) *MediaStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MediaStore{client: client, bucket: bucket, http: httpClient}
}

func RecordingKey(jobId uuid.UUID, fileName string) string {
	return fmt.Sprintf("recordings/%s/%s", jobId, filepath.Base(fileName))
}

func (m *MediaStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func (m *MediaStore) PutAudio(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Download copies an object into a local file.
func (m *MediaStore) Download(ctx context.Context, key, path string) error {
	return m.client.FGetObject(ctx, m.bucket, key, path, minio.GetObjectOptions{})
}

func (m *MediaStore) Remove(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// Open returns a reader over an object together with its size and content type.
func (m *MediaStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, "", err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, "", err
	}
	return obj, info.Size, info.ContentType, nil
}

// MirrorVideo copies a provider video into the bucket and returns the path the
// HTTP server serves it under.
func (m *MediaStore) MirrorVideo(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download video: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "dream-*.mp4")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("videos/%s.mp4", uuid.New())
	_, err = m.client.FPutObject(ctx, m.bucket, key, tmp.Name(), minio.PutObjectOptions{ContentType: "video/mp4"})
	if err != nil {
		return "", err
	}
	zerolog.Ctx(ctx).Info().Str("key", key).Msg("video mirrored")
	return MediaRoutePrefix + key, nil
}

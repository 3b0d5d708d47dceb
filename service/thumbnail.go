package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const thumbnailTimeout = 30 * time.Second

type Thumbnailer interface {
	Thumbnail(ctx context.Context, videoSource string) (string, error)
}

// FFmpegThumbnailer grabs one frame a second into the video and returns it as
// a JPEG data URL.
type FFmpegThumbnailer struct {
	Width int
}

func NewFFmpegThumbnailer() *FFmpegThumbnailer {
	return &FFmpegThumbnailer{Width: 320}
}

func (t *FFmpegThumbnailer) Thumbnail(ctx context.Context, videoSource string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()

	ffmpegArgs := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", "1",
		"-i", videoSource,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", t.Width),
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg execution failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return "", fmt.Errorf("ffmpeg produced no frame")
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(stdout.Bytes()), nil
}

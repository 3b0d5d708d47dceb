package client

import (
	"bytes"
	"context"
	"dreamreel/capture"
	"dreamreel/constant"
	"dreamreel/dto"
	"dreamreel/entities"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrJobFailed = errors.New("dream job failed")

// APIError is a non-2xx answer from the dreamreel server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dreamreel: %d: %s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to a running dreamreel server.
type Client struct {
	baseURL      string
	http         *http.Client
	chunkTimeout time.Duration
}

const defaultChunkTimeout = 30 * time.Second

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: timeout},
		chunkTimeout: defaultChunkTimeout,
	}
}

// WithChunkTimeout bounds each chunk transcription request independently of
// the client timeout, which has to cover a whole inline pipeline run.
func (c *Client) WithChunkTimeout(d time.Duration) *Client {
	if d > 0 {
		c.chunkTimeout = d
	}
	return c
}

// Created is the outcome of CreateDream: the dream itself when the server
// runs the pipeline inline, a job id when it queues it.
type Created struct {
	Dream *entities.Dream
	JobId *uuid.UUID
}

// TranscribeChunk sends one chunk to the transcription endpoint.
func (c *Client) TranscribeChunk(ctx context.Context, index int, audio []byte) (capture.Fragment, error) {
	body, contentType, err := audioForm(fmt.Sprintf("chunk-%d.webm", index), audio, nil)
	if err != nil {
		return capture.Fragment{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.chunkTimeout)
	defer cancel()
	var out dto.TranscribeResponse
	if err := c.do(ctx, http.MethodPost, "/api/transcribe", contentType, body, &out); err != nil {
		return capture.Fragment{}, err
	}
	frag := capture.Fragment{ChunkIndex: index, Emoji: out.Emoji}
	if out.Result != nil {
		frag.Text = out.Result.Text
	}
	return frag, nil
}

func (c *Client) CreateDream(ctx context.Context, audio []byte, emojis []string) (Created, error) {
	body, contentType, err := audioForm("dream.webm", audio, emojis)
	if err != nil {
		return Created{}, err
	}
	var out dto.DreamResponse
	if err := c.do(ctx, http.MethodPost, "/api/dreams", contentType, body, &out); err != nil {
		return Created{}, err
	}
	if out.Dream != nil {
		c.resolveMedia(out.Dream)
	}
	return Created{Dream: out.Dream, JobId: out.JobId}, nil
}

// WaitForJob polls a queued job until it completes and returns the stored dream.
func (c *Client) WaitForJob(ctx context.Context, jobId uuid.UUID, interval time.Duration) (*entities.Dream, error) {
	operation := func() (*entities.Job, error) {
		job, err := c.GetJob(ctx, jobId)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case constant.JobStatusCompleted:
			return job, nil
		case constant.JobStatusFailed:
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrJobFailed, job.Error))
		default:
			return nil, fmt.Errorf("job %s is %s", jobId, job.Status)
		}
	}

	job, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		return nil, err
	}
	if job.EntityId == nil {
		return nil, fmt.Errorf("job %s completed without a dream", jobId)
	}
	return c.GetDream(ctx, *job.EntityId)
}

func (c *Client) GetJob(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	var out dto.JobResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id.String(), "", nil, &out); err != nil {
		return nil, err
	}
	if out.Job == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "Job not found"}
	}
	return out.Job, nil
}

func (c *Client) ListDreams(ctx context.Context) ([]entities.Dream, error) {
	var out dto.DreamListResponse
	if err := c.do(ctx, http.MethodGet, "/api/dreams", "", nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Dreams {
		c.resolveMedia(&out.Dreams[i])
	}
	return out.Dreams, nil
}

func (c *Client) GetDream(ctx context.Context, id uuid.UUID) (*entities.Dream, error) {
	var out dto.DreamResponse
	if err := c.do(ctx, http.MethodGet, "/api/dreams/"+id.String(), "", nil, &out); err != nil {
		return nil, err
	}
	if out.Dream == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "Dream not found"}
	}
	c.resolveMedia(out.Dream)
	return out.Dream, nil
}

func (c *Client) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*entities.Dream, error) {
	payload, err := json.Marshal(entities.DreamPatch{UserTitle: &title})
	if err != nil {
		return nil, err
	}
	var out dto.DreamResponse
	if err := c.do(ctx, http.MethodPatch, "/api/dreams/"+id.String(), "application/json", bytes.NewReader(payload), &out); err != nil {
		return nil, err
	}
	if out.Dream != nil {
		c.resolveMedia(out.Dream)
	}
	return out.Dream, nil
}

func (c *Client) DeleteDream(ctx context.Context, id uuid.UUID) error {
	var out dto.DreamResponse
	return c.do(ctx, http.MethodDelete, "/api/dreams/"+id.String(), "", nil, &out)
}

func (c *Client) GetProfile(ctx context.Context) (entities.Profile, error) {
	var out dto.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/api/profile", "", nil, &out); err != nil {
		return entities.Profile{}, err
	}
	if out.Profile == nil {
		return entities.Profile{}, nil
	}
	return *out.Profile, nil
}

func (c *Client) SaveProfile(ctx context.Context, p entities.Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var out dto.ProfileResponse
	return c.do(ctx, http.MethodPut, "/api/profile", "application/json", bytes.NewReader(payload), &out)
}

// ClearProfile removes the stored dreamer profile.
func (c *Client) ClearProfile(ctx context.Context) error {
	var out dto.ProfileResponse
	return c.do(ctx, http.MethodDelete, "/api/profile", "", nil, &out)
}

// resolveMedia turns server-relative media paths into absolute URLs.
func (c *Client) resolveMedia(d *entities.Dream) {
	if strings.HasPrefix(d.VideoURL, "/api/media/") {
		d.VideoURL = c.baseURL + d.VideoURL
	}
}

func audioForm(fileName string, audio []byte, emojis []string) (io.Reader, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	for _, e := range emojis {
		if err := w.WriteField("emojis", e); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &body, w.FormDataContentType(), nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload dto.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dreamreel: decode %s response: %w", path, err)
	}
	return nil
}

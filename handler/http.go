package handler

import (
	"context"
	"dreamreel/constant"
	"dreamreel/dto"
	"dreamreel/entities"
	"dreamreel/pkg/veo"
	"dreamreel/repository"
	"dreamreel/service"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"io"
	"net/http"
	"strings"
)

type Archive interface {
	List(ctx context.Context) ([]entities.Dream, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.Dream, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.DreamPatch) (*entities.Dream, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Profiles interface {
	Get(ctx context.Context) (entities.Profile, error)
	Save(ctx context.Context, p entities.Profile) error
	Clear(ctx context.Context) error
}

type MediaReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, int64, string, error)
}

type HTTPDependencies struct {
	AI       service.AIService
	Archive  Archive
	Profiles Profiles
	Pipeline service.Pipeline
	// Jobs and Media are nil unless queue mode or MinIO is configured.
	Jobs  service.JobService
	Media MediaReader
	Mode  constant.PipelineMode
}

type HTTPHandler struct {
	deps HTTPDependencies
}

func NewHTTPHandler(deps HTTPDependencies) *HTTPHandler {
	return &HTTPHandler{deps: deps}
}

func (h *HTTPHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/transcribe", h.transcribe)
	api.POST("/structure", h.structure)
	api.POST("/emoji", h.emoji)
	api.POST("/veo", h.generateVideo)

	api.GET("/dreams", h.listDreams)
	api.POST("/dreams", h.createDream)
	api.GET("/dreams/:id", h.getDream)
	api.PATCH("/dreams/:id", h.updateDream)
	api.DELETE("/dreams/:id", h.deleteDream)

	api.GET("/jobs/:id", h.getJob)

	api.GET("/profile", h.getProfile)
	api.PUT("/profile", h.putProfile)
	api.DELETE("/profile", h.deleteProfile)

	api.GET("/media/*key", h.media)
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Success: false, Error: msg})
}

// failErr maps service errors onto status codes. Upstream details are logged,
// never returned.
func failErr(c *gin.Context, err error, upstreamMsg string) {
	switch {
	case errors.Is(err, service.ErrNoAudio),
		errors.Is(err, service.ErrAudioTooSmall),
		errors.Is(err, service.ErrAudioTooLarge):
		fail(c, http.StatusBadRequest, capitalize(err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		fail(c, http.StatusNotFound, "Dream not found")
	case errors.Is(err, veo.ErrTimeout):
		fail(c, http.StatusGatewayTimeout, "Video generation timed out")
	case errors.Is(err, service.ErrEmptyTranscript),
		errors.Is(err, service.ErrStructureFailed),
		errors.Is(err, service.ErrNoVideo):
		fail(c, http.StatusUnprocessableEntity, capitalize(err.Error()))
	case errors.Is(err, service.ErrUpstream):
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("upstream failure")
		fail(c, http.StatusBadGateway, upstreamMsg)
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// readAudio enforces the size contract before the body is read.
func readAudio(c *gin.Context) (service.AudioUpload, error) {
	fh, err := c.FormFile("audio")
	if err != nil {
		return service.AudioUpload{}, service.ErrNoAudio
	}
	if err := service.ValidateAudio(int(fh.Size)); err != nil {
		return service.AudioUpload{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return service.AudioUpload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, constant.MaxAudioBytes+1))
	if err != nil {
		return service.AudioUpload{}, err
	}
	if err := service.ValidateAudio(len(data)); err != nil {
		return service.AudioUpload{}, err
	}
	return service.AudioUpload{
		Data:        data,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

func (h *HTTPHandler) transcribe(c *gin.Context) {
	upload, err := readAudio(c)
	if err != nil {
		failErr(c, err, "Failed to process audio file")
		return
	}

	result, emoji, err := h.deps.AI.TranscribeWithEmoji(c.Request.Context(), upload)
	if err != nil {
		failErr(c, err, "Failed to process audio file")
		return
	}
	c.JSON(http.StatusOK, dto.TranscribeResponse{Success: true, Result: result, Emoji: emoji})
}

func bindTranscript(c *gin.Context) (string, bool) {
	var req dto.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Transcript) == "" {
		fail(c, http.StatusBadRequest, "Transcript is required")
		return "", false
	}
	return req.Transcript, true
}

func (h *HTTPHandler) structure(c *gin.Context) {
	transcript, ok := bindTranscript(c)
	if !ok {
		return
	}
	structured := h.deps.AI.Structure(c.Request.Context(), transcript)
	c.JSON(http.StatusOK, dto.StructureResponse{Success: true, StructuredData: structured})
}

func (h *HTTPHandler) emoji(c *gin.Context) {
	transcript, ok := bindTranscript(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.EmojiResponse{Success: true, Emoji: h.deps.AI.DetectEmoji(c.Request.Context(), transcript)})
}

func (h *HTTPHandler) generateVideo(c *gin.Context) {
	var req dto.VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Transcript is required")
		return
	}
	prompt, err := service.PromptFromTranscript(req.Transcript)
	if err != nil {
		fail(c, http.StatusBadRequest, "Transcript is required")
		return
	}

	urls, err := h.deps.AI.GenerateVideo(c.Request.Context(), prompt, req.Options)
	if err != nil {
		failErr(c, err, "Failed to generate video")
		return
	}
	c.JSON(http.StatusOK, dto.VideoResponse{
		Success:   true,
		VideoUrls: urls,
		Message:   fmt.Sprintf("Generated %d video(s) successfully", len(urls)),
	})
}

func (h *HTTPHandler) listDreams(c *gin.Context) {
	dreams, err := h.deps.Archive.List(c.Request.Context())
	if err != nil {
		failErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, dto.DreamListResponse{Success: true, Dreams: dreams})
}

func dreamID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "Dream not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) getDream(c *gin.Context) {
	id, ok := dreamID(c)
	if !ok {
		return
	}
	dream, err := h.deps.Archive.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, dto.DreamResponse{Success: true, Dream: dream})
}

func (h *HTTPHandler) createDream(c *gin.Context) {
	upload, err := readAudio(c)
	if err != nil {
		failErr(c, err, "")
		return
	}
	in := service.PipelineInput{
		Audio:       upload.Data,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		Emojis:      c.PostFormArray("emojis"),
	}

	if h.deps.Mode == constant.PipelineModeQueue {
		jobId, err := h.deps.Jobs.Enqueue(c.Request.Context(), in)
		if err != nil {
			failErr(c, err, "")
			return
		}
		c.JSON(http.StatusAccepted, dto.DreamResponse{Success: true, JobId: &jobId})
		return
	}

	dream, err := h.deps.Pipeline.Run(c.Request.Context(), in)
	if err != nil {
		failErr(c, err, "Failed to create dream")
		return
	}
	c.JSON(http.StatusCreated, dto.DreamResponse{Success: true, Dream: dream})
}

func (h *HTTPHandler) updateDream(c *gin.Context) {
	id, ok := dreamID(c)
	if !ok {
		return
	}
	var patch entities.DreamPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	dream, err := h.deps.Archive.Update(c.Request.Context(), id, patch)
	if err != nil {
		failErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, dto.DreamResponse{Success: true, Dream: dream})
}

func (h *HTTPHandler) deleteDream(c *gin.Context) {
	id, ok := dreamID(c)
	if !ok {
		return
	}
	if err := h.deps.Archive.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, dto.DreamResponse{Success: true})
}

func (h *HTTPHandler) getJob(c *gin.Context) {
	if h.deps.Jobs == nil {
		fail(c, http.StatusNotFound, "Job tracking is only available in queue mode")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "Job not found")
		return
	}
	job, err := h.deps.Jobs.Find(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusNotFound, "Job not found")
		return
	}
	c.JSON(http.StatusOK, dto.JobResponse{Success: true, Job: job})
}

func (h *HTTPHandler) getProfile(c *gin.Context) {
	p, err := h.deps.Profiles.Get(c.Request.Context())
	if err != nil {
		failErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{Success: true, Profile: &p})
}

func (h *HTTPHandler) putProfile(c *gin.Context) {
	var p entities.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := p.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.deps.Profiles.Save(c.Request.Context(), p); err != nil {
		failErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{Success: true, Profile: &p})
}

func (h *HTTPHandler) deleteProfile(c *gin.Context) {
	if err := h.deps.Profiles.Clear(c.Request.Context()); err != nil {
		failErr(c, err, "")
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{Success: true, Profile: &entities.Profile{}})
}

func (h *HTTPHandler) media(c *gin.Context) {
	if h.deps.Media == nil {
		fail(c, http.StatusNotFound, "Media not found")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !strings.HasPrefix(key, "videos/") {
		fail(c, http.StatusNotFound, "Media not found")
		return
	}
	obj, size, contentType, err := h.deps.Media.Open(c.Request.Context(), key)
	if err != nil {
		fail(c, http.StatusNotFound, "Media not found")
		return
	}
	defer obj.Close()
	c.DataFromReader(http.StatusOK, size, contentType, obj, nil)
}

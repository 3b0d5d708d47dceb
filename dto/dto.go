package dto

import (
	"dreamreel/entities"
	"github.com/google/uuid"
)

// PipelineMessage is published for every queued dream creation.
type PipelineMessage struct {
	JobId       uuid.UUID `json:"jobId"`
	ObjectPath  string    `json:"objectPath"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Emojis      []string  `json:"emojis"`
}

type TranscriptRequest struct {
	Transcript string `json:"transcript"`
}

type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type TranscriptionResult struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language,omitempty"`
	Duration float64                `json:"duration,omitempty"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`
	Words    []TranscriptionWord    `json:"words,omitempty"`
}

type TranscribeResponse struct {
	Success bool                 `json:"success"`
	Result  *TranscriptionResult `json:"result,omitempty"`
	Emoji   string               `json:"emoji,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type EmojiResponse struct {
	Success bool   `json:"success"`
	Emoji   string `json:"emoji,omitempty"`
	Error   string `json:"error,omitempty"`
}

type StructureResponse struct {
	Success        bool                     `json:"success"`
	StructuredData entities.StructuredDream `json:"structuredData"`
	Error          string                   `json:"error,omitempty"`
}

type VideoOptions struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
	NumberOfVideos   int    `json:"numberOfVideos,omitempty"`
	NegativePrompt   string `json:"negativePrompt,omitempty"`
}

// VideoRequest carries either a plain transcript string or a structured document.
type VideoRequest struct {
	Transcript any          `json:"transcript"`
	Options    VideoOptions `json:"options"`
}

type VideoResponse struct {
	Success   bool     `json:"success"`
	VideoUrls []string `json:"videoUrls,omitempty"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type DreamResponse struct {
	Success bool            `json:"success"`
	Dream   *entities.Dream `json:"dream,omitempty"`
	JobId   *uuid.UUID      `json:"jobId,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type DreamListResponse struct {
	Success bool             `json:"success"`
	Dreams  []entities.Dream `json:"dreams"`
	Error   string           `json:"error,omitempty"`
}

type JobResponse struct {
	Success bool          `json:"success"`
	Job     *entities.Job `json:"job,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type ProfileResponse struct {
	Success bool              `json:"success"`
	Profile *entities.Profile `json:"profile,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

package service

import (
	"context"
	"dreamreel/constant"
	"dreamreel/dto"
	"dreamreel/entities"
	"dreamreel/pkg/groq"
	"dreamreel/pkg/veo"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rivo/uniseg"
	"github.com/rs/zerolog"
	"strings"
	"unicode"
)

var (
	ErrNoAudio         = errors.New("no audio file provided")
	ErrAudioTooSmall   = errors.New("audio file too small")
	ErrAudioTooLarge   = errors.New("audio file too large")
	ErrEmptyTranscript = errors.New("transcription returned no text")
	ErrStructureFailed = errors.New("failed to structure transcript")
	ErrNoVideo         = errors.New("video generation returned no videos")
	ErrUpstream        = errors.New("upstream provider failed")
)

const (
	emojiSystemPrompt = "You are an emoji detection system. Analyze the given transcript and return exactly one most relevant emoji that best represents the content, emotion, or theme. Only return the emoji character, nothing else."

	structureSystemPrompt = `You are a dream analysis system that converts raw dream transcripts into detailed, structured JSON data. 

Your task is to analyze the transcript and create a comprehensive JSON structure that captures:
1. Sequential order of events
2. All elements mentioned (people, places, objects, emotions)
3. Actions and interactions
4. Environmental details
5. Emotional states and themes
6. Temporal relationships
7. Spatial relationships
8. Symbolic elements

Return ONLY valid JSON. Do not include any explanatory text, markdown formatting, or code blocks. The JSON should be immediately parseable.`
)

type AudioUpload struct {
	Data        []byte
	FileName    string
	ContentType string
}

type SpeechToText interface {
	Transcribe(ctx context.Context, fileName string, audio []byte) (*groq.Transcription, error)
}

type ChatCompleter interface {
	Chat(ctx context.Context, messages []groq.Message, opts groq.ChatOptions) (string, error)
}

type VideoGenerator interface {
	Generate(ctx context.Context, prompt string, opts veo.Options) ([]string, error)
}

type AIService interface {
	Transcribe(ctx context.Context, upload AudioUpload) (*dto.TranscriptionResult, error)
	TranscribeWithEmoji(ctx context.Context, upload AudioUpload) (*dto.TranscriptionResult, string, error)
	DetectEmoji(ctx context.Context, transcript string) string
	Structure(ctx context.Context, transcript string) entities.StructuredDream
	GenerateVideo(ctx context.Context, prompt string, opts dto.VideoOptions) ([]string, error)
}

type aiService struct {
	stt   SpeechToText
	chat  ChatCompleter
	video VideoGenerator
}

func NewAIService(stt SpeechToText, chat ChatCompleter, video VideoGenerator) AIService {
	return &aiService{
		stt:   stt,
		chat:  chat,
		video: video,
	}
}

func ValidateAudio(size int) error {
	switch {
	case size == 0:
		return ErrNoAudio
	case size < constant.MinAudioBytes:
		return ErrAudioTooSmall
	case size > constant.MaxAudioBytes:
		return ErrAudioTooLarge
	}
	return nil
}

// AudioExtension picks the upload extension from the content type or file
// name, defaulting to wav.
func AudioExtension(contentType, fileName string) string {
	contentType = strings.ToLower(contentType)
	fileName = strings.ToLower(fileName)
	for _, ext := range []string{"webm", "mp3", "ogg", "m4a"} {
		if strings.Contains(contentType, ext) || strings.Contains(fileName, "."+ext) {
			return ext
		}
	}
	return "wav"
}

func (s *aiService) Transcribe(ctx context.Context, upload AudioUpload) (*dto.TranscriptionResult, error) {
	if err := ValidateAudio(len(upload.Data)); err != nil {
		return nil, err
	}

	name := "audio." + AudioExtension(upload.ContentType, upload.FileName)
	zerolog.Ctx(ctx).Debug().Str("file", name).Int("bytes", len(upload.Data)).Msg("transcribing audio")

	out, err := s.stt.Transcribe(ctx, name, upload.Data)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("transcription failed")
		return nil, fmt.Errorf("%w: transcribe: %w", ErrUpstream, err)
	}

	result := &dto.TranscriptionResult{
		Text:     out.Text,
		Language: out.Language,
		Duration: out.Duration,
	}
	for _, seg := range out.Segments {
		result.Segments = append(result.Segments, dto.TranscriptionSegment{ID: seg.ID, Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	for _, w := range out.Words {
		result.Words = append(result.Words, dto.TranscriptionWord{Word: w.Word, Start: w.Start, End: w.End})
	}
	return result, nil
}

func (s *aiService) TranscribeWithEmoji(ctx context.Context, upload AudioUpload) (*dto.TranscriptionResult, string, error) {
	result, err := s.Transcribe(ctx, upload)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(result.Text) == "" {
		return result, constant.DefaultEmoji, nil
	}
	return result, s.DetectEmoji(ctx, result.Text), nil
}

// DetectEmoji never fails: any problem yields the default emoji.
func (s *aiService) DetectEmoji(ctx context.Context, transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		return constant.DefaultEmoji
	}

	answer, err := s.chat.Chat(ctx, []groq.Message{
		{Role: groq.RoleSystem, Content: emojiSystemPrompt},
		{Role: groq.RoleUser, Content: fmt.Sprintf("Analyze this transcript and return one relevant emoji: \"%s\"", transcript)},
	}, groq.ChatOptions{Temperature: 0.1, MaxTokens: 5})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("emoji detection failed")
		return constant.DefaultEmoji
	}

	if emoji := firstEmoji(answer); emoji != "" {
		return emoji
	}
	return constant.DefaultEmoji
}

// firstEmoji returns the first grapheme cluster of s that renders as an emoji.
func firstEmoji(s string) string {
	state := -1
	for s != "" {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		if isEmojiCluster(cluster) {
			return cluster
		}
	}
	return ""
}

func isEmojiCluster(cluster string) bool {
	for _, r := range cluster {
		switch {
		case r == '\uFE0F', r == '\u20E3':
			return true
		case r >= 0x2100 && unicode.Is(unicode.So, r):
			return true
		}
	}
	return false
}

// Structure returns nil whenever the model does not produce a JSON object.
func (s *aiService) Structure(ctx context.Context, transcript string) entities.StructuredDream {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}

	answer, err := s.chat.Chat(ctx, []groq.Message{
		{Role: groq.RoleSystem, Content: structureSystemPrompt},
		{Role: groq.RoleUser, Content: fmt.Sprintf("Turn this raw transcript into a JSON. It should note the sequential order of events, all of the elements, etc.. to make it extremely detailed: \"%s\"", transcript)},
	}, groq.ChatOptions{Temperature: 0.1, MaxTokens: 2000})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("structuring failed")
		return nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(unwrapCodeFence(answer)), &doc); err != nil || doc == nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("raw", truncate(answer, 200)).Msg("structuring returned no JSON object")
		return nil
	}
	return doc
}

func (s *aiService) GenerateVideo(ctx context.Context, prompt string, opts dto.VideoOptions) ([]string, error) {
	urls, err := s.video.Generate(ctx, prompt, veo.Options{
		AspectRatio:      opts.AspectRatio,
		PersonGeneration: opts.PersonGeneration,
		NumberOfVideos:   opts.NumberOfVideos,
		NegativePrompt:   opts.NegativePrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate video: %w", ErrUpstream, err)
	}
	return urls, nil
}

// PromptFromTranscript accepts either a plain string or a JSON document.
func PromptFromTranscript(transcript any) (string, error) {
	switch v := transcript.(type) {
	case nil:
		return "", fmt.Errorf("transcript is required")
	case string:
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("transcript is required")
		}
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("transcript is not valid JSON: %w", err)
		}
		return string(b), nil
	}
}

func unwrapCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package service

import (
	"context"
	"dreamreel/constant"
	"dreamreel/dto"
	"dreamreel/entities"
	"encoding/json"
	"fmt"
	"github.com/rs/zerolog"
	"strings"
	"time"
)

type PipelineInput struct {
	Audio       []byte
	FileName    string
	ContentType string
	Emojis      []string
}

type DreamCreator interface {
	Create(ctx context.Context, dream entities.Dream) (*entities.Dream, error)
}

type ProfileSource interface {
	Get(ctx context.Context) (entities.Profile, error)
}

type VideoMirror interface {
	MirrorVideo(ctx context.Context, sourceURL string) (string, error)
}

// Orchestrator turns one finished recording into an archived dream. Stages
// run strictly in order and nothing is stored unless every stage succeeds.
type Orchestrator struct {
	ai       AIService
	archive  DreamCreator
	profiles ProfileSource
	mirror   VideoMirror
	thumbs   Thumbnailer
}

// NewOrchestrator accepts nil for profiles, mirror and thumbs.
func NewOrchestrator(ai AIService, archive DreamCreator, profiles ProfileSource, mirror VideoMirror, thumbs Thumbnailer) *Orchestrator {
	return &Orchestrator{
		ai:       ai,
		archive:  archive,
		profiles: profiles,
		mirror:   mirror,
		thumbs:   thumbs,
	}
}

var pipelineVideoOptions = dto.VideoOptions{
	AspectRatio:      "16:9",
	PersonGeneration: "dont_allow",
	NumberOfVideos:   1,
}

func (o *Orchestrator) Run(ctx context.Context, in PipelineInput) (*entities.Dream, error) {
	var transcript *dto.TranscriptionResult
	err := stage(ctx, "transcribe", func() (err error) {
		transcript, err = o.ai.Transcribe(ctx, AudioUpload{Data: in.Audio, FileName: in.FileName, ContentType: in.ContentType})
		if err != nil {
			return err
		}
		if strings.TrimSpace(transcript.Text) == "" {
			return ErrEmptyTranscript
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var structured entities.StructuredDream
	err = stage(ctx, "structure", func() error {
		structured = o.ai.Structure(ctx, transcript.Text)
		if structured == nil {
			return ErrStructureFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var videoURL string
	err = stage(ctx, "generate_video", func() error {
		prompt, err := BuildVideoPrompt(o.profile(ctx), structured)
		if err != nil {
			return err
		}
		urls, err := o.ai.GenerateVideo(ctx, prompt, pipelineVideoOptions)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return ErrNoVideo
		}
		videoURL = urls[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thumbnail := constant.PlaceholderThumbnail
	if o.thumbs != nil {
		if t, err := o.thumbs.Thumbnail(ctx, videoURL); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("thumbnail failed, using placeholder")
		} else {
			thumbnail = t
		}
	}

	storedURL := videoURL
	if o.mirror != nil {
		if u, err := o.mirror.MirrorVideo(ctx, videoURL); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("video mirroring failed, keeping provider url")
		} else {
			storedURL = u
		}
	}

	emojis := append([]string{}, in.Emojis...)
	dream, err := o.archive.Create(ctx, entities.Dream{
		AITitle:        structured.Title(),
		AIDescription:  structured.Description(transcript.Text),
		TranscriptRaw:  transcript.Text,
		TranscriptJSON: structured,
		VideoURL:       storedURL,
		VideoThumbnail: &thumbnail,
		Emojis:         emojis,
	})
	if err != nil {
		return nil, fmt.Errorf("save dream: %w", err)
	}
	return dream, nil
}

func (o *Orchestrator) profile(ctx context.Context) entities.Profile {
	if o.profiles == nil {
		return entities.Profile{}
	}
	p, err := o.profiles.Get(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to load dreamer profile")
		return entities.Profile{}
	}
	return p
}

// BuildVideoPrompt prefixes the structure with the profile when one is set.
func BuildVideoPrompt(profile entities.Profile, structured entities.StructuredDream) (string, error) {
	body, err := json.MarshalIndent(structured, "", "  ")
	if err != nil {
		return "", err
	}
	prompt := "Dream Structure:\n" + string(body)
	if profile.IsEmpty() {
		return prompt, nil
	}
	return profile.PromptContext() + "\n\n" + prompt, nil
}

func stage(ctx context.Context, name string, fn func() error) error {
	logger := zerolog.Ctx(ctx)
	start := time.Now()
	logger.Info().Str("stage", name).Msg("pipeline stage started")
	if err := fn(); err != nil {
		logger.Error().Err(err).Str("stage", name).Dur("duration", time.Since(start)).Msg("pipeline stage failed")
		return err
	}
	logger.Info().Str("stage", name).Dur("duration", time.Since(start)).Msg("pipeline stage finished")
	return nil
}

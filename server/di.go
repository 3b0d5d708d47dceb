package server

import (
	"context"
	"dreamreel/config"
	"dreamreel/constant"
	"dreamreel/handler"
	"dreamreel/pkg/groq"
	"dreamreel/pkg/rabbitmq"
	"dreamreel/pkg/veo"
	"dreamreel/repository"
	"dreamreel/service"
	"fmt"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
)

// setupDI wires every component lazily. Optional components (media store,
// mirror, thumbnailer, job service) resolve to nil when their backing
// infrastructure is not configured.
func setupDI(ctx context.Context, cfg *config.Config) do.Injector {
	injector := do.New()
	do.ProvideValue(injector, cfg)

	registerStorage(ctx, injector)
	registerProviders(injector)
	registerPipeline(ctx, injector)

	return injector
}

func registerStorage(ctx context.Context, injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*repository.Archive, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store, err := repository.NewDreamStore(cfg)
		if err != nil {
			return nil, err
		}
		archive := repository.NewArchive(store)
		if err := archive.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to open dream archive: %w", err)
		}
		zerolog.Ctx(ctx).Info().Str("store", string(cfg.Store.Kind)).Msg("dream archive ready")
		return archive, nil
	})

	do.Provide(injector, func(i do.Injector) (*repository.ProfileStore, error) {
		backend, err := repository.NewProfileBackend(do.MustInvoke[*config.Config](i))
		if err != nil {
			return nil, err
		}
		return repository.NewProfileStore(backend), nil
	})

	do.Provide(injector, func(i do.Injector) (*service.MediaStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.Storage == nil {
			return nil, nil
		}
		media := service.NewMediaStore(cfg.Storage, cfg.MinIOBucket, nil)
		if err := media.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare bucket %s: %w", cfg.MinIOBucket, err)
		}
		return media, nil
	})
}

func registerProviders(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*groq.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return groq.NewClient(groq.Config{
			BaseURL:            cfg.Groq.BaseURL,
			APIKey:             cfg.Credentials.GroqAPIKey,
			TranscriptionModel: cfg.Groq.TranscriptionModel,
			ChatModel:          cfg.Groq.ChatModel,
			Timeout:            cfg.Groq.Timeout,
			RequestsPerSecond:  cfg.Groq.RequestsPerSecond,
			Burst:              cfg.Groq.Burst,
		}), nil
	})

	do.Provide(injector, func(i do.Injector) (*veo.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return veo.NewClient(veo.Config{
			BaseURL:      cfg.Veo.BaseURL,
			APIKey:       cfg.Credentials.GoogleAPIKey,
			Model:        cfg.Veo.Model,
			PollInterval: cfg.Veo.PollInterval,
			MaxAttempts:  cfg.Veo.MaxAttempts,
			Deadline:     cfg.Veo.Deadline,
		}, nil), nil
	})

	do.Provide(injector, func(i do.Injector) (service.AIService, error) {
		groqClient := do.MustInvoke[*groq.Client](i)
		return service.NewAIService(groqClient, groqClient, do.MustInvoke[*veo.Client](i)), nil
	})
}

func registerPipeline(ctx context.Context, injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*service.Orchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		archive, err := do.Invoke[*repository.Archive](i)
		if err != nil {
			return nil, err
		}
		profiles, err := do.Invoke[*repository.ProfileStore](i)
		if err != nil {
			return nil, err
		}
		media, err := do.Invoke[*service.MediaStore](i)
		if err != nil {
			return nil, err
		}

		var mirror service.VideoMirror
		if cfg.Pipeline.MirrorVideo && media != nil {
			mirror = media
		}
		var thumbs service.Thumbnailer
		if cfg.Pipeline.Thumbnails {
			thumbs = service.NewFFmpegThumbnailer()
		}
		return service.NewOrchestrator(do.MustInvoke[service.AIService](i), archive, profiles, mirror, thumbs), nil
	})

	do.Provide(injector, func(i do.Injector) (*amqp.Connection, error) {
		return config.NewRabbitMQConn(ctx, do.MustInvoke[*config.Config](i).Queue)
	})

	do.Provide(injector, func(i do.Injector) (service.JobService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.Pipeline.Mode != constant.PipelineModeQueue {
			return nil, nil
		}
		conn, err := do.Invoke[*amqp.Connection](i)
		if err != nil {
			return nil, err
		}
		repo, err := repository.NewRepo(cfg.DB, cfg.IsDevelopment())
		if err != nil {
			return nil, err
		}
		if err := repo.Open(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate job table: %w", err)
		}
		media, err := do.Invoke[*service.MediaStore](i)
		if err != nil {
			return nil, err
		}
		orchestrator, err := do.Invoke[*service.Orchestrator](i)
		if err != nil {
			return nil, err
		}
		publisher := rabbitmq.NewPublisher(conn, cfg.Queue, rabbitmq.PipelineTopology)
		return service.NewJobService(repo, media, publisher, orchestrator), nil
	})
}

func httpDependencies(injector do.Injector) (handler.HTTPDependencies, error) {
	cfg := do.MustInvoke[*config.Config](injector)
	archive, err := do.Invoke[*repository.Archive](injector)
	if err != nil {
		return handler.HTTPDependencies{}, err
	}
	profiles, err := do.Invoke[*repository.ProfileStore](injector)
	if err != nil {
		return handler.HTTPDependencies{}, err
	}
	orchestrator, err := do.Invoke[*service.Orchestrator](injector)
	if err != nil {
		return handler.HTTPDependencies{}, err
	}
	jobs, err := do.Invoke[service.JobService](injector)
	if err != nil {
		return handler.HTTPDependencies{}, err
	}

	deps := handler.HTTPDependencies{
		AI:       do.MustInvoke[service.AIService](injector),
		Archive:  archive,
		Profiles: profiles,
		Pipeline: orchestrator,
		Jobs:     jobs,
		Mode:     cfg.Pipeline.Mode,
	}
	if media := do.MustInvoke[*service.MediaStore](injector); media != nil {
		deps.Media = media
	}
	return deps, nil
}

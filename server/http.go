package server

import (
	"context"
	"dreamreel/config"
	"dreamreel/constant"
	"dreamreel/handler"
	"dreamreel/pkg/rabbitmq"
	"dreamreel/repository"
	"dreamreel/service"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 15 * time.Second

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.IsProduction()).Send()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	injector := setupDI(ctx, cfg)
	deps, err := httpDependencies(injector)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to build dependencies")
		return
	}
	defer closeArchive(ctx, injector)

	if cfg.Pipeline.Mode == constant.PipelineModeQueue && cfg.Server.Workers > 0 {
		go runConsumer(ctx, injector)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(ctx))
	addHealth(r)
	handler.NewHTTPHandler(deps).Register(r)

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Str("addr", srv.Addr).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
			cancel()
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

// RunWorker consumes queued pipeline jobs without serving HTTP.
func RunWorker(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Pipeline.Mode != constant.PipelineModeQueue {
		zerolog.Ctx(ctx).Error().Str("mode", string(cfg.Pipeline.Mode)).Msg("worker requires pipeline.mode=queue")
		return
	}

	injector := setupDI(ctx, cfg)
	defer closeArchive(ctx, injector)

	runConsumer(ctx, injector)
	zerolog.Ctx(ctx).Info().Msg("worker shutdown")
}

func runConsumer(ctx context.Context, injector do.Injector) {
	cfg := do.MustInvoke[*config.Config](injector)
	jobService, err := do.Invoke[service.JobService](injector)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to build job service")
		return
	}
	conn, err := do.Invoke[*amqp.Connection](injector)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
		return
	}

	serviceDeps := handler.ServiceDependencies{
		JobService: jobService,
	}

	pipelineConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.PipelineTopology, cfg.Server.Workers, handler.PipelineHandler)
	if err := pipelineConsumer.Consume(ctx, serviceDeps); err != nil && !errors.Is(err, context.Canceled) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Pipeline consumer error")
	}
}

func closeArchive(ctx context.Context, injector do.Injector) {
	archive, err := do.Invoke[*repository.Archive](injector)
	if err != nil {
		return
	}
	if err := archive.Close(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to close dream archive")
	}
}

func requestLogger(ctx context.Context) gin.HandlerFunc {
	logger := zerolog.Ctx(ctx)
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.IsDevelopment() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}

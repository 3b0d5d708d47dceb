package cmd

import (
	"bufio"
	"context"
	"dreamreel/capture"
	"dreamreel/client"
	"dreamreel/config"
	"dreamreel/recording"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func newSession(cfg *config.Config, api *client.Client) *recording.Session {
	mic := capture.NewFFmpegMicrophone(cfg.Capture.InputFormat, cfg.Capture.Device)
	return recording.NewSession(mic, api, recording.Config{
		Capture: capture.Config{
			ChunkInterval: cfg.Capture.ChunkInterval,
			MaxDuration:   cfg.Capture.MaxDuration,
		},
		UploadWorkers: cfg.Capture.UploadWorkers,
		UploadQueue:   cfg.Capture.UploadQueue,
		DrainGrace:    cfg.Capture.DrainGrace,
	})
}

func cliLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

func record(cfg *config.Config) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "record",
		Short: "record a dream from the microphone and send it to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := capture.CheckFFmpeg(); err != nil {
				return err
			}
			logger := cliLogger(cmd.ErrOrStderr(), verbose)
			ctx, cancel := signal.NotifyContext(logger.WithContext(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			api := client.New(cfg.Client.BaseURL, cfg.Client.Timeout).WithChunkTimeout(cfg.Client.ChunkTimeout)
			session := newSession(cfg, api)
			defer session.Reset()

			return runRecording(ctx, cmd.OutOrStdout(), cmd.InOrStdin(), session)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log capture and upload details")
	return cmd
}

func runRecording(ctx context.Context, out io.Writer, in io.Reader, session *recording.Session) error {
	if _, err := session.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Recording. Press Enter to stop.")

	go func() {
		_, _ = bufio.NewReader(in).ReadString('\n')
		_ = session.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-session.Events():
			switch ev := ev.(type) {
			case capture.ChunkCompleted:
				fmt.Fprintf(out, "\rchunk %d  %s  %s", ev.Index, strings.Join(session.Emojis(), " "), session.Transcript())
			case capture.SessionStopping:
				fmt.Fprintf(out, "\nStopped (%s) after %s. Creating your dream…\n", ev.Reason, ev.Elapsed.Round(time.Second))
			case capture.SessionFinished:
				dream, err := session.Submit(ctx, ev)
				if err != nil {
					return fmt.Errorf("create dream: %w", err)
				}
				fmt.Fprintf(out, "%s %s\n%s\n%s\n", strings.Join(dream.Emojis, ""), dream.DisplayTitle(), dream.AIDescription, dream.VideoURL)
				return nil
			}
		}
	}
}

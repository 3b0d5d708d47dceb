package cmd

import (
	"dreamreel/capture"
	"dreamreel/client"
	"dreamreel/config"
	"dreamreel/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"io"
	"os"
)

func ui(cfg *config.Config) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "browse, record and edit dreams in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := capture.CheckFFmpeg(); err != nil {
				return err
			}

			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			logger := cliLogger(w, true)
			ctx := logger.WithContext(cmd.Context())

			api := client.New(cfg.Client.BaseURL, cfg.Client.Timeout).WithChunkTimeout(cfg.Client.ChunkTimeout)
			session := newSession(cfg, api)
			defer session.Reset()

			_, err := tea.NewProgram(tui.New(ctx, session, api), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	return cmd
}

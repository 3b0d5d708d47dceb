package cmd

import (
	"dreamreel/config"
	"github.com/spf13/cobra"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dreamreel",
		Short: "turn spoken dreams into short films",
	}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(worker(config))
	rootCmd.AddCommand(record(config))
	rootCmd.AddCommand(ui(config))
	return rootCmd
}

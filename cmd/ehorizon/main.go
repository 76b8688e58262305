package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/ehorizon/pkg/logger"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	log        *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "ehorizon",
		Short: "electronic horizon engine on vector tile road graphs",
		Long: `ehorizon map matches raw vehicle positions on a road graph built from vector tiles around the
vehicle and publishes the most probable paths ahead of it (the electronic horizon).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := util.ReadConfig(configPath); err != nil {
				// defaults and environment variables still apply
				fmt.Fprintf(os.Stderr, "%v, using defaults\n", err)
			}
			var err error
			log, err = logger.New()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./data/", "directory of config.yaml")
	rootCmd.AddCommand(serveCmd, replayCmd, prefetchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

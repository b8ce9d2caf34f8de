package main

import (
	"github.com/spf13/cobra"

	"github.com/rg/danmakubot/internal/config"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "danmakubot",
		Short:        "Telegram bot for monitoring danmaku import tasks",
		SilenceUsage: true,
		RunE:         runBot,
		Args:         cobra.NoArgs,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.yaml)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSplitCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

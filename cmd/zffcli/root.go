package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenneth/zffcore/internal/config"
	"github.com/kenneth/zffcore/internal/zfflog"
)

var (
	cfgFile  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zffcli",
		Short:         "Acquire, verify, and read zff forensic containers",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger := logrus.New()
			logger.SetLevel(level)
			zfflog.SetLogger(logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to zff config file (defaults to ./zff.{yaml,json,toml})")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newCatCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// loadConfig reads the engine configuration named by --config, falling
// back to the engine's built-in defaults when no file is found.
func loadConfig() (config.Config, error) {
	l, err := config.NewLoader(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	return l.Current(), nil
}

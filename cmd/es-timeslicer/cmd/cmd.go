// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/gardener/es-timeslicer/cmd/es-timeslicer/cmd/connection"
	"github.com/gardener/es-timeslicer/cmd/es-timeslicer/cmd/query"
	"github.com/gardener/es-timeslicer/cmd/es-timeslicer/cmd/showindices"
	"github.com/gardener/es-timeslicer/cmd/es-timeslicer/cmd/showoptions"
	"github.com/gardener/es-timeslicer/pkg/logger"
	"github.com/gardener/es-timeslicer/pkg/timeslicer"
	"github.com/gardener/es-timeslicer/pkg/util/cmdutil/viper"
)

// version is set at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "es-timeslicer",
	Short:         "Elasticsearch index time-slicer tool",
	Long:          "Repeatedly runs an Elasticsearch query over consecutive time slices, transforms every result and indexes the documents into a target index.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := viper.ViperHelper.ReadInConfig(); err != nil {
			return timeslicer.NewConfigurationError(err)
		}
		log, err := logger.New(nil)
		if err != nil {
			return timeslicer.NewConfigurationError(err)
		}
		logger.SetLogger(log)
		if cfgFile := viper.ViperHelper.ConfigFileUsed(); cfgFile != "" {
			logger.Log.V(3).Info("read configuration", "file", cfgFile)
		}
		return nil
	},
}

// Execute executes the es-timeslicer cli commands.
// The run is canceled on SIGINT and SIGTERM.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return timeslicer.NewConfigurationError(err)
	})
	viper.InitFlags(rootCmd.PersistentFlags())

	loggingFlags := flag.NewFlagSet("logging", flag.ExitOnError)
	logger.InitFlags(loggingFlags)
	rootCmd.PersistentFlags().AddFlagSet(loggingFlags)
	viper.ViperHelper.BindPFlags(loggingFlags, "logging")

	connectionFlags := flag.NewFlagSet("elasticsearch", flag.ExitOnError)
	connection.AddFlags(connectionFlags)
	rootCmd.PersistentFlags().AddFlagSet(connectionFlags)
	viper.ViperHelper.BindPFlags(connectionFlags, "elasticsearch")

	query.AddCommand(rootCmd)
	showindices.AddCommand(rootCmd)
	showoptions.AddCommand(rootCmd)
}

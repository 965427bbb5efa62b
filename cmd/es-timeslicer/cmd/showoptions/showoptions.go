// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package showoptions

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gardener/es-timeslicer/pkg/timeslicer"
	"github.com/gardener/es-timeslicer/pkg/util/cmdutil/viper"
)

// AddCommand adds the show-all-options subcommand to another command.
func AddCommand(cmd *cobra.Command) {
	cmd.AddCommand(showOptionsCmd)
}

var showOptionsCmd = &cobra.Command{
	Use:   "show-all-options",
	Short: "Show all configuration options",
	Long:  "Show all options that can be set in the configuration file. Every option can also be set with the corresponding flag or an ES_TIMESLICER_ prefixed environment variable.",
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.NoArgs(cmd, args); err != nil {
			return timeslicer.NewConfigurationError(err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), viper.ViperHelper.Usage())
	},
}

// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package showindices

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gardener/es-timeslicer/cmd/es-timeslicer/cmd/connection"
	"github.com/gardener/es-timeslicer/pkg/logger"
	"github.com/gardener/es-timeslicer/pkg/timeslicer"
	"github.com/gardener/es-timeslicer/pkg/util/cmdutil"
)

// AddCommand adds the show-indices subcommand to another command.
func AddCommand(cmd *cobra.Command) {
	cmd.AddCommand(showIndicesCmd)
}

var showIndicesCmd = &cobra.Command{
	Use:   "show-indices SEARCH_PATTERN",
	Short: "Show the indices matching SEARCH_PATTERN",
	Long:  "Show the indices matching SEARCH_PATTERN. Use it to make sure a read index pattern matches the indices you expect.",
	Args: func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return timeslicer.NewConfigurationError(errors.Errorf("expected exactly one search pattern but got %d arguments", len(args)))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connection.Connect(cmd.Context(), logger.Log.WithName("elasticsearch"))
		if err != nil {
			return err
		}
		indices, err := client.CatIndices(cmd.Context(), args[0])
		if err != nil {
			return timeslicer.NewClientError(errors.Wrapf(err, "unable to list indices matching %s", args[0]))
		}
		return printIndices(cmd.OutOrStdout(), args[0], indices)
	},
}

func printIndices(out io.Writer, pattern string, indices []string) error {
	sort.Strings(indices)
	fmt.Fprintf(out, "Search Pattern: %s\n", pattern)

	header := fmt.Sprintf("%d Indices Found", len(indices))
	if len(indices) == 1 {
		header = "Index Found"
	}
	rows := make([][]string, 0, len(indices))
	for _, idx := range indices {
		rows = append(rows, []string{idx})
	}
	return cmdutil.PrintTable(out, []string{header}, rows)
}

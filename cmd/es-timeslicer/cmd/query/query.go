// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gardener/es-timeslicer/cmd/es-timeslicer/cmd/connection"
	"github.com/gardener/es-timeslicer/pkg/logger"
	"github.com/gardener/es-timeslicer/pkg/timeslicer"
	"github.com/gardener/es-timeslicer/pkg/util/cmdutil"
)

var (
	opts          timeslicer.Options
	transformArgs string
)

// AddCommand adds the query subcommand to another command.
func AddCommand(cmd *cobra.Command) {
	cmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query [flags] QUERY_FILE",
	Short: "Repeatedly execute the query in QUERY_FILE over consecutive time slices",
	Args: func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return timeslicer.NewConfigurationError(errors.Errorf("expected exactly one query file but got %d arguments", len(args)))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parameters(args[0])
		if err != nil {
			return err
		}
		logger.Log.Info("Starting 'query'", "readIndex", params.ReadIndex(), "writeIndex", params.WriteIndex(), "dryRun", params.DryRun())

		client, err := connection.Connect(cmd.Context(), logger.Log.WithName("elasticsearch"))
		if err != nil {
			return err
		}

		res, err := timeslicer.New(logger.Log.WithName("timeslicer"), client, params).Run(cmd.Context())
		if err != nil {
			if res != nil {
				_ = printSummary(cmd.OutOrStdout(), res)
			}
			return err
		}

		if res.State == timeslicer.StateDryRun {
			return printPreview(cmd.OutOrStdout(), params, res)
		}
		return printSummary(cmd.OutOrStdout(), res)
	},
}

func init() {
	fs := queryCmd.Flags()
	fs.StringVar(&opts.ReadIndex, "read-index", "", "the index to query")
	fs.StringVar(&opts.WriteIndex, "write-index", "", "the target index")
	fs.StringVar(&opts.Pipeline, "pipeline", "", "send the documents to the named ingest pipeline")
	fs.StringVar(&opts.Field, "field", timeslicer.DefaultField, "the timestamp field name")
	fs.StringVar(&opts.StartTime, "start-time", "", "the ISO8601 formatted date closest to now (newest) of the date range")
	fs.StringVar(&opts.EndTime, "end-time", "", "the ISO8601 formatted date farthest from now (oldest) of the date range")
	fs.IntVar(&opts.Increment, "increment", 1, "the time slice increment in minutes")
	fs.StringVar(&opts.TransformFile, "transform-file", "", "lua script with a single function or an executable that transforms a search result into documents")
	fs.StringVar(&transformArgs, "transform-args", "", "shell quoted arguments for an executable transform")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "print the documents of the first non empty time slice instead of writing them")
	fs.BoolVar(&opts.Trace, "trace", false, "log all search requests and responses")
}

func parameters(queryFile string) (*timeslicer.RunParameters, error) {
	o := opts
	o.QueryFile = queryFile
	if transformArgs != "" {
		args, err := shellquote.Split(transformArgs)
		if err != nil {
			return nil, timeslicer.NewConfigurationError(errors.Wrap(err, "unable to parse transform arguments"))
		}
		o.TransformArgs = args
	}
	return timeslicer.NewRunParameters(o)
}

func printPreview(out io.Writer, params *timeslicer.RunParameters, res *timeslicer.Result) error {
	data, err := json.MarshalIndent(res.Preview, "", "  ")
	if err != nil {
		return timeslicer.Fatal(errors.Wrap(err, "unable to render document preview"))
	}
	rng := params.TimeRange()
	fmt.Fprintf(out, "DRY-RUN: DOCUMENT PREVIEW (%s - %s):\n", rng.Format(res.PreviewWindow.Begin), rng.Format(res.PreviewWindow.End))
	fmt.Fprintln(out, string(data))
	fmt.Fprintln(out, "DRY-RUN: COMPLETED. Exiting.")
	return nil
}

func printSummary(out io.Writer, res *timeslicer.Result) error {
	return cmdutil.PrintTable(out, []string{"State", "Slices", "Empty Slices", "Indexed", "Rejected"}, [][]string{{
		string(res.State),
		strconv.Itoa(res.Slices),
		strconv.Itoa(res.EmptySlices),
		strconv.Itoa(res.Indexed),
		strconv.Itoa(res.Rejected),
	}})
}

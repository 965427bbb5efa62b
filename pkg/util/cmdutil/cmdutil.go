// SPDX-FileCopyrightText: SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmdutil

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// PrintTable renders content as table with the given headers.
func PrintTable(output io.Writer, headers []string, content [][]string) error {
	table := tablewriter.NewWriter(output)

	header := make([]any, 0, len(headers))
	for _, h := range headers {
		header = append(header, h)
	}
	table.Header(header...)
	if err := table.Bulk(content); err != nil {
		return err
	}
	return table.Render()
}

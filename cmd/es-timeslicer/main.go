// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/gardener/es-timeslicer/cmd/es-timeslicer/cmd"
	"github.com/gardener/es-timeslicer/pkg/logger"
	"github.com/gardener/es-timeslicer/pkg/timeslicer"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if logger.Log.GetSink() != nil {
			logger.Log.Error(err, "unable to continue, exiting")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(timeslicer.ExitCode(err))
	}
}

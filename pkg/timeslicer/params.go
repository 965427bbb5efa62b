// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer

import (
	"fmt"
	"math"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// DefaultField is the timestamp field used if none is configured.
const DefaultField = "@timestamp"

// MaxIncrement is the largest increment in minutes that fits into a time.Duration.
const MaxIncrement = math.MaxInt64 / int64(time.Minute)

// Options are the raw run parameters as given on the command line.
type Options struct {
	ReadIndex  string
	WriteIndex string
	Pipeline   string
	Field      string
	// StartTime is the newest boundary of the range.
	StartTime string
	// EndTime is the oldest boundary of the range.
	EndTime string
	// Increment is the slice size in minutes.
	Increment     int
	TransformFile string
	TransformArgs []string
	QueryFile     string
	DryRun        bool
	Trace         bool
}

// RunParameters is the validated and immutable configuration of one run.
type RunParameters struct {
	readIndex     string
	writeIndex    string
	pipeline      string
	field         string
	timeRange     TimeRange
	increment     time.Duration
	transformFile string
	transformArgs []string
	queryFile     string
	dryRun        bool
	trace         bool
}

// NewRunParameters validates opts.
func NewRunParameters(opts Options) (*RunParameters, error) {
	if opts.Field == "" {
		opts.Field = DefaultField
	}
	if allErrs := ValidateOptions(opts); len(allErrs) != 0 {
		return nil, &ConfigurationError{Err: allErrs.ToAggregate()}
	}

	rng, err := NewTimeRange(opts.StartTime, opts.EndTime)
	if err != nil {
		return nil, err
	}

	return &RunParameters{
		readIndex:     opts.ReadIndex,
		writeIndex:    opts.WriteIndex,
		pipeline:      opts.Pipeline,
		field:         opts.Field,
		timeRange:     rng,
		increment:     time.Duration(opts.Increment) * time.Minute,
		transformFile: opts.TransformFile,
		transformArgs: append([]string(nil), opts.TransformArgs...),
		queryFile:     opts.QueryFile,
		dryRun:        opts.DryRun,
		trace:         opts.Trace,
	}, nil
}

// ValidateOptions validates the presence and basic shape of all run options.
func ValidateOptions(opts Options) field.ErrorList {
	allErrs := field.ErrorList{}
	if len(opts.ReadIndex) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("readIndex"), "the index to query has to be defined"))
	}
	if len(opts.WriteIndex) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("writeIndex"), "the target index has to be defined"))
	}
	if len(opts.StartTime) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("startTime"), "the newest boundary of the range has to be defined"))
	}
	if len(opts.EndTime) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("endTime"), "the oldest boundary of the range has to be defined"))
	}
	if opts.Increment <= 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("increment"), opts.Increment, "increment has to be a positive number of minutes"))
	} else if int64(opts.Increment) > MaxIncrement {
		allErrs = append(allErrs, field.Invalid(field.NewPath("increment"), opts.Increment, fmt.Sprintf("increment must not exceed %d minutes", MaxIncrement)))
	}
	if len(opts.TransformFile) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("transformFile"), "a transform file has to be defined"))
	}
	if len(opts.QueryFile) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("queryFile"), "a query file has to be defined"))
	}
	return allErrs
}

func (p *RunParameters) ReadIndex() string { return p.readIndex }
func (p *RunParameters) WriteIndex() string { return p.writeIndex }
func (p *RunParameters) Pipeline() string { return p.pipeline }
func (p *RunParameters) Field() string { return p.field }
func (p *RunParameters) TimeRange() TimeRange { return p.timeRange }
func (p *RunParameters) Increment() time.Duration { return p.increment }
func (p *RunParameters) TransformFile() string { return p.transformFile }
func (p *RunParameters) TransformArgs() []string { return append([]string(nil), p.transformArgs...) }
func (p *RunParameters) QueryFile() string { return p.queryFile }
func (p *RunParameters) DryRun() bool { return p.dryRun }
func (p *RunParameters) Trace() bool { return p.trace }

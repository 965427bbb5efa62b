// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package timeslicer

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exit codes returned by ExitCode.
const (
	ExitOK            = 0
	ExitFatal         = 1
	ExitConfiguration = 2
	ExitClient        = 3
)

// ConfigurationError reports invalid run parameters or unusable input files.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ClientError reports a failure establishing or using the search connection.
type ClientError struct {
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: %s", e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// FatalError is what the driver returns whenever a run is aborted.
// It carries the original cause.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("unable to continue: %s", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Err: errors.Errorf(format, args...)}
}

// NewConfigurationError wraps err as configuration error.
func NewConfigurationError(err error) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Err: err}
}

// NewClientError wraps err as client error.
func NewClientError(err error) error {
	if err == nil {
		return nil
	}
	return &ClientError{Err: err}
}

// Fatal escalates err to a FatalError unless it already is one.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return err
	}
	return &FatalError{Err: err}
}

// ExitCode maps an error returned by the driver or the command layer to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitConfiguration
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return ExitClient
	}
	return ExitFatal
}

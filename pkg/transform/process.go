// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	utilexec "k8s.io/utils/exec"

	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch/bulk"
)

// maxRecordSize is the max size of a single output line of a transform process.
const maxRecordSize = 64 * 1024 * 1024

// Request is the single json line a transform process receives on stdin.
type Request struct {
	Result     map[string]interface{} `json:"result"`
	WriteIndex string                 `json:"write_index"`
	Pipeline   *string                `json:"pipeline"`
}

type processFunc struct {
	exec utilexec.Interface
	file string
	args []string
}

// NewProcess creates a transform that runs file once per slice.
// The process gets a Request on stdin and has to print one json object per record to stdout.
func NewProcess(exec utilexec.Interface, file string, args []string) Func {
	return &processFunc{
		exec: exec,
		file: file,
		args: append([]string(nil), args...),
	}
}

func (f *processFunc) Transform(ctx context.Context, result map[string]interface{}, writeIndex, pipeline string) ([]bulk.Record, error) {
	req := Request{
		Result:     result,
		WriteIndex: writeIndex,
	}
	if pipeline != "" {
		req.Pipeline = &pipeline
	}
	input, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal transform input")
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := f.exec.CommandContext(ctx, f.file, f.args...)
	cmd.SetStdin(bytes.NewReader(append(input, '\n')))
	cmd.SetStdout(stdout)
	cmd.SetStderr(stderr)
	if err := cmd.Run(); err != nil {
		var exitErr utilexec.ExitError
		if errors.As(err, &exitErr) {
			return nil, errors.Errorf("transform %s exited with code %d: %s", f.file, exitErr.ExitStatus(), strings.TrimSpace(stderr.String()))
		}
		return nil, errors.Wrapf(err, "unable to run transform %s", f.file)
	}

	records, err := ParseRecords(stdout.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid output of transform %s", f.file)
	}
	return records, nil
}

func (f *processFunc) Close() error {
	return nil
}

// ParseRecords parses newline delimited json objects. Empty lines are ignored.
func ParseRecords(data []byte) ([]bulk.Record, error) {
	var records []bulk.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	line := 0
	for scanner.Scan() {
		line++
		doc := bytes.TrimSpace(scanner.Bytes())
		if len(doc) == 0 {
			continue
		}
		var record bulk.Record
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, errors.Wrapf(err, "line %d is not a json object", line)
		}
		if record == nil {
			return nil, errors.Errorf("line %d is not a json object", line)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read records")
	}
	return records, nil
}

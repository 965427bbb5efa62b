// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	utilexec "k8s.io/utils/exec"

	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch/bulk"
)

// LuaExtension marks transform files that are evaluated by the embedded lua interpreter.
const LuaExtension = ".lua"

// Func converts the raw search result of one slice into records that are written to the target index.
type Func interface {
	// Transform is called once per slice. An empty result means there is nothing to write.
	Transform(ctx context.Context, result map[string]interface{}, writeIndex, pipeline string) ([]bulk.Record, error)
	// Close releases all resources of the transform.
	Close() error
}

// Loader loads a transform from a file.
type Loader func(file string, args []string) (Func, error)

// Load loads the transform defined in file.
// Lua scripts have to define exactly one global function, any other file has to be an executable
// that is started with args for every slice.
func Load(file string, args []string) (Func, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read transform file %s", file)
	}
	if info.IsDir() {
		return nil, errors.Errorf("transform file %s is a directory", file)
	}

	if strings.EqualFold(filepath.Ext(file), LuaExtension) {
		if len(args) != 0 {
			return nil, errors.Errorf("arguments are not supported for lua transform %s", file)
		}
		return LoadLua(file)
	}

	if info.Mode().Perm()&0o111 == 0 {
		return nil, errors.Errorf("transform file %s is neither a lua script nor an executable", file)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	return NewProcess(utilexec.New(), abs, args), nil
}

// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package viper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyAnnotation = "key"
)

type viperHelper struct {
	viper  *viper.Viper
	pflags map[string]*flag.Flag

	customConfigPath string
}

// NewViperHelper creates a new viper helper that reads the yaml config file name from configPaths.
// Every bound key can also be set with an environment variable that is prefixed with envPrefix.
func NewViperHelper(v *viper.Viper, name, envPrefix string, configPaths ...string) *viperHelper {
	if v == nil {
		v = viper.GetViper()
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}

	vh := &viperHelper{
		viper:  v,
		pflags: map[string]*flag.Flag{},
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	return vh
}

// Add viper init flags
func (h *viperHelper) InitFlags(fs *flag.FlagSet) {
	if fs == nil {
		fs = flag.CommandLine
	}
	fs.StringVar(&h.customConfigPath, "config", "", "path to a yaml configuration file")
}

// BindPFlag binds a pflag to viper and stores a internal reference
func (h *viperHelper) BindPFlag(key string, f *flag.Flag) {
	AddCustomConfigForFlag(f, key)
	h.pflags[key] = f
	_ = h.viper.BindPFlag(key, f)
}

// BindPFlags binds all pflag of a flagset to viper and stores a internal reference.
// The key of a flag is its name with dashes replaced by underscores.
func (h *viperHelper) BindPFlags(fs *flag.FlagSet, keyPrefix string) {
	fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "help" {
			return
		}
		key := strings.ReplaceAll(GetConfigKey(f), "-", "_")
		if keyPrefix != "" {
			key = fmt.Sprintf("%s.%s", keyPrefix, key)
		}
		h.BindPFlag(key, f)
	})
}

// ReadInConfig will discover and load the configuration file from disk,
// searching in one of the defined paths. A missing file is only an error if it was given explicitly.
func (h *viperHelper) ReadInConfig() error {
	if h.customConfigPath != "" {
		file, err := os.Open(filepath.Clean(h.customConfigPath))
		if err != nil {
			return errors.Wrapf(err, "unable to read file from %s", h.customConfigPath)
		}
		defer file.Close()
		if err := h.viper.ReadConfig(file); err != nil {
			return errors.Wrapf(err, "unable to parse config file %s", h.customConfigPath)
		}
	} else {
		if err := h.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return err
			}
		}
	}
	return h.ApplyConfig()
}

// ApplyConfig writes viper values back to the originated pflag variable pointer.
// Flags that were set on the command line are not touched.
func (h *viperHelper) ApplyConfig() error {
	for key, f := range h.pflags {
		if f.Changed || !h.viper.IsSet(key) {
			continue
		}
		if sv, ok := f.Value.(flag.SliceValue); ok {
			if err := sv.Replace(h.viper.GetStringSlice(key)); err != nil {
				return errors.Wrapf(err, "invalid value for %s", key)
			}
			continue
		}
		if err := f.Value.Set(h.viper.GetString(key)); err != nil {
			return errors.Wrapf(err, "invalid value for %s", key)
		}
	}
	return nil
}

// ConfigFileUsed returns the path of the config file that was read.
func (h *viperHelper) ConfigFileUsed() string {
	if h.customConfigPath != "" {
		return h.customConfigPath
	}
	return h.viper.ConfigFileUsed()
}

var ViperHelper = NewViperHelper(nil, "config", "ES_TIMESLICER", "$HOME/.es-timeslicer", ".")

func SetViper(helper *viperHelper) {
	ViperHelper = helper
}

func InitFlags(fs *flag.FlagSet) {
	ViperHelper.InitFlags(fs)
}

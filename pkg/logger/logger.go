// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	// FormatECS is json that follows the elastic common schema.
	FormatECS = "ecs"
)

// ecsVersion is the version of the elastic common schema the ecs format follows.
const ecsVersion = "1.6.0"

// Config configures the logger.
type Config struct {
	Development bool
	Verbosity   int
	// DisableStacktrace and DisableCaller overwrite the default of the mode if set.
	DisableStacktrace *bool
	DisableCaller     *bool
	// Format is json, console or ecs. Empty means the default of the mode.
	Format string
	// File is an additional output path.
	File string
}

var configFromFlags = Config{}

// Log is the logger of the command line layer.
// Library packages get their logger passed explicitly.
var Log = logr.Discard()

var developmentConfig = zap.Config{
	Level:             zap.NewAtomicLevelAt(zap.InfoLevel),
	Development:       true,
	Encoding:          FormatConsole,
	DisableStacktrace: false,
	DisableCaller:     false,
	EncoderConfig:     zap.NewDevelopmentEncoderConfig(),
	OutputPaths:       []string{"stderr"},
	ErrorOutputPaths:  []string{"stderr"},
}

var productionConfig = zap.Config{
	Level:             zap.NewAtomicLevelAt(zap.InfoLevel),
	Development:       false,
	DisableStacktrace: true,
	DisableCaller:     true,
	Encoding:          FormatJSON,
	EncoderConfig:     zap.NewProductionEncoderConfig(),
	OutputPaths:       []string{"stderr"},
	ErrorOutputPaths:  []string{"stderr"},
}

// New creates a logger. The config from the flags is used if config is nil.
func New(config *Config) (logr.Logger, error) {
	if config == nil {
		config = &configFromFlags
	}
	zapCfg, err := determineZapConfig(config)
	if err != nil {
		return logr.Discard(), err
	}

	level := int8(0 - config.Verbosity)
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.Level(level))

	zapLog, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zapLog), nil
}

// SetLogger sets the logger of the command line layer.
func SetLogger(log logr.Logger) {
	Log = log
}

func determineZapConfig(config *Config) (zap.Config, error) {
	var cfg zap.Config
	if config.Development {
		cfg = developmentConfig
	} else {
		cfg = productionConfig
	}

	if config.DisableStacktrace != nil {
		cfg.DisableStacktrace = *config.DisableStacktrace
	}
	if config.DisableCaller != nil {
		cfg.DisableCaller = *config.DisableCaller
	}

	switch config.Format {
	case "":
	case FormatJSON, FormatConsole:
		cfg.Encoding = config.Format
	case FormatECS:
		cfg.Encoding = FormatJSON
		cfg.EncoderConfig = ecsEncoderConfig()
		cfg.InitialFields = map[string]interface{}{"ecs.version": ecsVersion}
	default:
		return cfg, errors.Errorf("unknown log format %q, expected %s, %s or %s", config.Format, FormatJSON, FormatConsole, FormatECS)
	}

	if config.File != "" {
		cfg.OutputPaths = append(append([]string{}, cfg.OutputPaths...), config.File)
		cfg.ErrorOutputPaths = append(append([]string{}, cfg.ErrorOutputPaths...), config.File)
	}
	return cfg, nil
}

// ecsEncoderConfig names the log fields as the elastic common schema does.
func ecsEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "@timestamp",
		LevelKey:       "log.level",
		NameKey:        "log.logger",
		CallerKey:      "log.origin.file.line",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "error.stack_trace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.NanosDurationEncoder,
		EncodeCaller:   zapcore.FullCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// optionalBool is a bool flag that remembers whether it was set at all.
type optionalBool struct {
	value **bool
}

func (b optionalBool) String() string {
	if *b.value == nil {
		return ""
	}
	return strconv.FormatBool(**b.value)
}

func (b optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b.value = &v
	return nil
}

func (b optionalBool) Type() string {
	return "bool"
}

func optionalBoolVar(flagset *flag.FlagSet, p **bool, name, usage string) {
	f := flagset.VarPF(optionalBool{value: p}, name, "", usage)
	f.NoOptDefVal = "true"
}

// InitFlags adds the logging flags to flagset.
func InitFlags(flagset *flag.FlagSet) {
	if flagset == nil {
		flagset = flag.CommandLine
	}

	flagset.BoolVar(&configFromFlags.Development, "dev", false, "enable development logging which result in console encoding, enabled stacktrace and enabled caller")
	flagset.IntVarP(&configFromFlags.Verbosity, "verbosity", "v", 0, "number for the log level verbosity")
	optionalBoolVar(flagset, &configFromFlags.DisableStacktrace, "disable-stacktrace", "disable the stacktrace of error logs (default true, false with --dev)")
	optionalBoolVar(flagset, &configFromFlags.DisableCaller, "disable-caller", "disable the caller of logs (default true, false with --dev)")
	flagset.StringVar(&configFromFlags.Format, "log-format", "", "format of the log output: json, console or ecs")
	flagset.StringVar(&configFromFlags.File, "log-file", "", "additionally write logs to this file")
}

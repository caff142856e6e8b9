/*
Copyright 2026 The Machine Controller Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package log

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// AvailableFormats lists all supported log formats.
var AvailableFormats = []Format{FormatJSON, FormatConsole}

const (
	envDebug  = "LOG_DEBUG"
	envFormat = "LOG_FORMAT"
)

// Options holds the logging configuration.
type Options struct {
	// Debug enables debug level output.
	Debug bool
	// Format is one of AvailableFormats.
	Format Format
}

// NewDefaultOptions returns the options used when neither flags nor environment
// say otherwise. A Lambda function receives no arguments, so the environment is
// consulted for the defaults.
func NewDefaultOptions() *Options {
	o := &Options{
		Debug:  false,
		Format: FormatJSON,
	}

	if v, ok := os.LookupEnv(envDebug); ok {
		if debug, err := strconv.ParseBool(v); err == nil {
			o.Debug = debug
		}
	}
	if v, ok := os.LookupEnv(envFormat); ok && v != "" {
		o.Format = Format(strings.ToLower(v))
	}

	return o
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Debug, "log-debug", o.Debug, "Enables more verbose logging (env "+envDebug+")")
	fs.StringVar((*string)(&o.Format), "log-format", string(o.Format), fmt.Sprintf("Log format, one of %v (env %s)", AvailableFormats, envFormat))
}

func (o *Options) Validate() error {
	for _, f := range AvailableFormats {
		if o.Format == f {
			return nil
		}
	}

	return errors.Errorf("invalid log format %q, must be one of %v", o.Format, AvailableFormats)
}

// New builds a zap logger writing to stderr. Unknown formats fall back to JSON.
func New(debug bool, format Format) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	if format == FormatConsole {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	opts := []zap.Option{zap.AddCaller()}
	if debug {
		opts = append(opts, zap.AddStacktrace(zap.ErrorLevel))
	}

	return zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level), opts...)
}

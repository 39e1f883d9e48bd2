// Copyright 2025 The Weft Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logs configures the process logger and provides structured
// payload logging for value graphs.
package logs

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"weft.dev/go/internal/core/value"
)

// Options selects level, output format and optional file rotation.
type Options struct {
	Level      string // debug, info, warn or error; default info
	Format     string // text or json; default text
	Dir        string // when set, also write to rotating files under Dir
	MaxAgeDays int    // rotated files older than this are pruned; default 7
}

// Setup builds a logger from opts. The returned logger writes to stderr
// in the selected format; with Dir set it additionally writes rotated
// daily files through a hook.
func Setup(opts Options) (*logrus.Logger, error) {
	log := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	log.SetLevel(level)

	switch opts.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format: unknown format %q", opts.Format)
	}

	if opts.Dir != "" {
		hook, err := newFileHook(opts.Dir, opts.MaxAgeDays)
		if err != nil {
			return nil, fmt.Errorf("log file hook: %w", err)
		}
		log.AddHook(hook)
	}

	return log, nil
}

func newFileHook(dir string, maxAgeDays int) (logrus.Hook, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	path := filepath.Join(dir, "weft.log")
	writer, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAgeDays)*24*time.Hour),
	)
	if err != nil {
		return nil, err
	}

	return lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}, &logrus.TextFormatter{DisableColors: true}), nil
}

// A Renderer turns a value graph into the string form Payload logs;
// inspect.Text and inspect.JSON both satisfy it.
type Renderer func(value.Value) (string, error)

// Payload renders v and logs it at level under a single "payload"
// field. Render failures are logged in place of the payload rather than
// returned: logging must not fail the operation being logged.
func Payload(log logrus.FieldLogger, level logrus.Level, render Renderer, msg string, v value.Value) {
	s, err := render(v)
	if err != nil {
		log.WithError(err).Error("rendering log payload")
		return
	}
	log.WithField("payload", s).Log(level, msg)
}

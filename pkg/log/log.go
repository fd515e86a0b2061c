// Copyright 2022 The jackal Authors
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

package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	debugLevel   = "debug"
	infoLevel    = "info"
	warningLevel = "warn"
	errorLevel   = "error"
	offLevel     = "off"
)

const jsonFormat = "json"

// Config contains logger configuration parameters.
type Config struct {
	Level  string `fig:"level" default:"debug"`
	Format string `fig:"format"`
}

// NewDefaultLogger creates a new go-kit logger writing to stderr using the configured level and format.
func NewDefaultLogger(lv, format string) kitlog.Logger {
	logger, _ := NewLogger(os.Stderr, lv, format)
	return logger
}

// NewLogger creates a new go-kit logger writing to w.
// An unrecognized level returns an error along with a logger allowing every level.
func NewLogger(w io.Writer, lv, format string) (kitlog.Logger, error) {
	var logger kitlog.Logger

	sw := kitlog.NewSyncWriter(w)
	if format == jsonFormat {
		logger = kitlog.NewJSONLogger(sw)
	} else {
		logger = kitlog.NewLogfmtLogger(sw)
	}
	allow, err := levelOption(lv)
	return kitlog.With(level.NewFilter(logger, allow), "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller), err
}

// Component returns a child logger tagged with a component name.
func Component(logger kitlog.Logger, name string) kitlog.Logger {
	return kitlog.With(logger, "component", name)
}

func levelOption(lv string) (level.Option, error) {
	switch strings.ToLower(lv) {
	case debugLevel, "":
		return level.AllowDebug(), nil
	case infoLevel:
		return level.AllowInfo(), nil
	case warningLevel:
		return level.AllowWarn(), nil
	case errorLevel:
		return level.AllowError(), nil
	case offLevel:
		return level.AllowNone(), nil
	}
	return level.AllowAll(), fmt.Errorf("log: unrecognized level: %s", lv)
}

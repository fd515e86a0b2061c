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
	"bytes"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFilter(t *testing.T) {
	// given
	buf := bytes.NewBuffer(nil)
	logger, err := NewLogger(buf, "warn", "")
	require.Nil(t, err)

	// when
	_ = level.Info(logger).Log("msg", "skipped")
	_ = level.Warn(logger).Log("msg", "roster limit reached")

	// then
	require.NotContains(t, buf.String(), "skipped")
	require.Contains(t, buf.String(), "roster limit reached")
}

func TestLogger_JSONFormat(t *testing.T) {
	// given
	buf := bytes.NewBuffer(nil)
	logger, err := NewLogger(buf, "debug", "json")
	require.Nil(t, err)

	// when
	_ = level.Debug(Component(logger, "presence")).Log("msg", "probe sent")

	// then
	require.Contains(t, buf.String(), `"component":"presence"`)
	require.Contains(t, buf.String(), `"msg":"probe sent"`)
}

func TestLogger_UnknownLevel(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	logger, err := NewLogger(buf, "verbose", "")

	require.NotNil(t, err)
	require.NotNil(t, logger)
}

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

package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfig = `
logger:
  level: info
hosts:
  - domain: jackal.im
roster:
  max_items: 500
  auto_authorize:
    global: false
    domains:
      trusted.im: "on"
presence:
  skip_offline_sys: true
  trusted_domains:
    - trusted.im
cluster:
  enabled: true
  redis:
    address: localhost:6379
`

func TestLoadConfig(t *testing.T) {
	// given
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(file, []byte(testConfig), 0600))

	// when
	cfg, err := LoadConfig(file)

	// then
	require.Nil(t, err)
	require.Equal(t, "info", cfg.Logger.Level)
	require.Equal(t, "jackal.im", cfg.Hosts[0].Domain)
	require.Equal(t, "memory", cfg.Storage.Type)

	require.Equal(t, 500, cfg.Roster.MaxItems)
	require.Equal(t, 500, cfg.Roster.storeConfig().MaxItems)
	require.Equal(t, "on", cfg.Roster.moduleConfig().AutoAuthorize.Domains["trusted.im"])

	require.Equal(t, 256, cfg.Presence.MaxDirectPresences)
	require.True(t, cfg.Presence.SkipOfflineSys)
	require.Equal(t, []string{"trusted.im"}, cfg.Presence.TrustedDomains)

	require.True(t, cfg.Cluster.Enabled)
	require.Equal(t, "localhost:6379", cfg.Cluster.Redis.Address)
	require.Equal(t, "jackal-presence:events", cfg.Cluster.EventBus.Channel)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	// when
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	// then
	require.NotNil(t, err)
}

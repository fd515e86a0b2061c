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
	"path/filepath"

	"github.com/kkyr/fig"
	"github.com/ortuman/jackal-presence/pkg/cluster/eventbus"
	"github.com/ortuman/jackal-presence/pkg/cluster/online"
	"github.com/ortuman/jackal-presence/pkg/host"
	"github.com/ortuman/jackal-presence/pkg/log"
	rostermodule "github.com/ortuman/jackal-presence/pkg/module/roster"
	"github.com/ortuman/jackal-presence/pkg/presence"
	"github.com/ortuman/jackal-presence/pkg/privacy"
	"github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/storage"
)

// RosterConfig contains roster store and subscription processing configuration.
type RosterConfig struct {
	MaxItems      int                              `fig:"max_items"`
	AutoAuthorize rostermodule.AutoAuthorizeConfig `fig:"auto_authorize"`
}

// ClusterConfig contains redis backed cluster services configuration.
// Both the online registry and the event bridge are disabled unless Enabled is set.
type ClusterConfig struct {
	Enabled  bool            `fig:"enabled"`
	Redis    online.Config   `fig:"redis"`
	EventBus eventbus.Config `fig:"event_bus"`
}

// Config contains the whole presence core configuration.
type Config struct {
	Logger   log.Config      `fig:"logger"`
	Hosts    host.Configs    `fig:"hosts"`
	Storage  storage.Config  `fig:"storage"`
	Roster   RosterConfig    `fig:"roster"`
	Presence presence.Config `fig:"presence"`
	Privacy  privacy.Config  `fig:"privacy"`
	Cluster  ClusterConfig   `fig:"cluster"`
}

func (c RosterConfig) storeConfig() roster.Config {
	return roster.Config{MaxItems: c.MaxItems}
}

func (c RosterConfig) moduleConfig() rostermodule.Config {
	return rostermodule.Config{AutoAuthorize: c.AutoAuthorize}
}

// LoadConfig reads and decodes the YAML configuration file located at configFile.
// Unset values are filled in with their defaults.
func LoadConfig(configFile string) (*Config, error) {
	var cfg Config
	file := filepath.Base(configFile)
	dir := filepath.Dir(configFile)

	err := fig.Load(&cfg, fig.File(file), fig.Dirs(dir))
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

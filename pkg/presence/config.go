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

package presence

// Config contains presence broadcaster configuration parameters.
type Config struct {
	// MaxDirectPresences bounds the directed presence address set kept per resource.
	MaxDirectPresences int `fig:"max_direct_presences" default:"256"`

	// HighPriorityPresences is the number of fan-out recipients delivered with high priority.
	HighPriorityPresences int `fig:"high_priority_presences" default:"10"`

	// SkipOffline skips sending presence to contacts known to be offline.
	SkipOffline bool `fig:"skip_offline"`

	// SkipOfflineSys skips sending presence to local contacts not found in the online registry.
	SkipOfflineSys bool `fig:"skip_offline_sys"`

	// TrustedDomains contains the domains whose probes are answered regardless of subscription state.
	TrustedDomains []string `fig:"trusted_domains"`
}

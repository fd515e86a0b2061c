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

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// OnlineRegistry defines the cluster wide online JID registry.
type OnlineRegistry interface {
	// IsOnline tells whether the bare JID has at least one bound resource in any cluster node.
	IsOnline(ctx context.Context, bareJID *jid.JID) (bool, error)
}

//go:generate moq -out online_registry.mock_test.go . OnlineRegistry:onlineRegistryMock

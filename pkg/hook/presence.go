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

package hook

import (
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const (
	// RosterChanged event is posted whenever a user roster or its derived privacy state changes.
	RosterChanged = "roster.changed"

	// PresenceSessionChanged event is posted when a user resource binds or unbinds.
	PresenceSessionChanged = "presence.session.changed"

	// PrivacyListChanged event is posted when a user privacy list is created, updated or deleted.
	PrivacyListChanged = "privacy.list.changed"
)

// UserHookInfo contains all information associated to a user scoped event.
type UserHookInfo struct {
	// JID is the bare JID of the user associated to this event.
	JID *jid.JID

	// ListName identifies the privacy list on PrivacyListChanged events.
	ListName string
}

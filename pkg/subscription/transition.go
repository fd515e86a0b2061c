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

package subscription

import (
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
)

// Transition returns the subscription state reached from current after processing a presence of type pt.
// changed is false whenever the returned state equals current.
func Transition(current rostermodel.Subscription, pt PresenceType) (next rostermodel.Subscription, changed bool) {
	next = transition(current, pt)
	return next, next != current
}

// transition follows RFC 6121 Appendix A. Unlisted pairs leave the state unchanged.
func transition(current rostermodel.Subscription, pt PresenceType) rostermodel.Subscription {
	switch current {
	case rostermodel.None:
		switch pt {
		case OutSubscribe:
			return rostermodel.NonePendingOut
		case InSubscribe:
			return rostermodel.NonePendingIn
		}

	case rostermodel.NonePendingOut:
		switch pt {
		case OutUnsubscribe, InUnsubscribed:
			return rostermodel.None
		case InSubscribe:
			return rostermodel.NonePendingOutIn
		case InSubscribed:
			return rostermodel.To
		}

	case rostermodel.NonePendingIn:
		switch pt {
		case OutSubscribe:
			return rostermodel.NonePendingOutIn
		case OutSubscribed:
			return rostermodel.From
		case OutUnsubscribed, InUnsubscribe:
			return rostermodel.None
		}

	case rostermodel.NonePendingOutIn:
		switch pt {
		case OutUnsubscribe, InUnsubscribed:
			return rostermodel.NonePendingIn
		case OutSubscribed:
			return rostermodel.FromPendingOut
		case OutUnsubscribed, InUnsubscribe:
			return rostermodel.NonePendingOut
		case InSubscribed:
			return rostermodel.ToPendingIn
		}

	case rostermodel.To:
		switch pt {
		case OutUnsubscribe, InUnsubscribed:
			return rostermodel.None
		case InSubscribe:
			return rostermodel.ToPendingIn
		}

	case rostermodel.ToPendingIn:
		switch pt {
		case OutUnsubscribe, InUnsubscribed:
			return rostermodel.NonePendingIn
		case OutSubscribed:
			return rostermodel.Both
		case OutUnsubscribed, InUnsubscribe:
			return rostermodel.To
		}

	case rostermodel.From:
		switch pt {
		case OutSubscribe:
			return rostermodel.FromPendingOut
		case OutUnsubscribed, InUnsubscribe:
			return rostermodel.None
		}

	case rostermodel.FromPendingOut:
		switch pt {
		case OutUnsubscribe, InUnsubscribed:
			return rostermodel.From
		case OutUnsubscribed, InUnsubscribe:
			return rostermodel.NonePendingOut
		case InSubscribed:
			return rostermodel.Both
		}

	case rostermodel.Both:
		switch pt {
		case OutUnsubscribe, InUnsubscribed:
			return rostermodel.From
		case OutUnsubscribed, InUnsubscribe:
			return rostermodel.To
		}
	}
	return current
}

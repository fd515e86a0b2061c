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
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// Classify resolves the directional type of a presence stanza relative to the session owner.
//
// A stanza originating from any of the owner's addresses is outbound, even when it's addressed to the
// owner itself. Otherwise a stanza addressed to the owner is inbound and must carry a sender address.
// Anything else is Invalid.
func Classify(owner *jid.JID, pr *stravaganza.Presence) PresenceType {
	typ := pr.Attribute(stravaganza.Type)
	if typ == stravaganza.ErrorType {
		return Error
	}
	from, to := pr.FromJID(), pr.ToJID()

	switch {
	case from != nil && from.MatchesWithOptions(owner, jid.MatchesBare):
		return outboundType(typ)

	case to != nil && to.MatchesWithOptions(owner, jid.MatchesBare):
		if from == nil {
			return Invalid
		}
		return inboundType(typ)
	}
	return Invalid
}

func outboundType(typ string) PresenceType {
	switch typ {
	case stravaganza.AvailableType, stravaganza.UnavailableType:
		return OutInitial
	case stravaganza.SubscribeType:
		return OutSubscribe
	case stravaganza.UnsubscribeType:
		return OutUnsubscribe
	case stravaganza.SubscribedType:
		return OutSubscribed
	case stravaganza.UnsubscribedType:
		return OutUnsubscribed
	}
	return Invalid
}

func inboundType(typ string) PresenceType {
	switch typ {
	case stravaganza.AvailableType, stravaganza.UnavailableType:
		return InInitial
	case stravaganza.SubscribeType:
		return InSubscribe
	case stravaganza.UnsubscribeType:
		return InUnsubscribe
	case stravaganza.SubscribedType:
		return InSubscribed
	case stravaganza.UnsubscribedType:
		return InUnsubscribed
	case stravaganza.ProbeType:
		return InProbe
	}
	return Invalid
}

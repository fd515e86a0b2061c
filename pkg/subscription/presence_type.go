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

// PresenceType represents a presence stanza type qualified by its direction relative to the session owner.
type PresenceType uint8

const (
	// Invalid is returned for stanzas that cannot be classified.
	Invalid PresenceType = iota

	// OutInitial represents an availability presence sent by the user.
	OutInitial

	// OutSubscribe represents a subscription request sent by the user.
	OutSubscribe

	// OutUnsubscribe represents an unsubscription sent by the user.
	OutUnsubscribe

	// OutSubscribed represents a subscription approval sent by the user.
	OutSubscribed

	// OutUnsubscribed represents a subscription cancellation sent by the user.
	OutUnsubscribed

	// InInitial represents an availability presence received by the user.
	InInitial

	// InSubscribe represents a subscription request received by the user.
	InSubscribe

	// InUnsubscribe represents an unsubscription received by the user.
	InUnsubscribe

	// InSubscribed represents a subscription approval received by the user.
	InSubscribed

	// InUnsubscribed represents a subscription cancellation received by the user.
	InUnsubscribed

	// InProbe represents a presence probe received by the user.
	InProbe

	// Error represents a presence of type error, either direction.
	Error
)

var presenceTypeNames = [...]string{
	Invalid:         "invalid",
	OutInitial:      "out_initial",
	OutSubscribe:    "out_subscribe",
	OutUnsubscribe:  "out_unsubscribe",
	OutSubscribed:   "out_subscribed",
	OutUnsubscribed: "out_unsubscribed",
	InInitial:       "in_initial",
	InSubscribe:     "in_subscribe",
	InUnsubscribe:   "in_unsubscribe",
	InSubscribed:    "in_subscribed",
	InUnsubscribed:  "in_unsubscribed",
	InProbe:         "in_probe",
	Error:           "error",
}

// SubscriptionDirections contains the presence types that may change a subscription state.
var SubscriptionDirections = []PresenceType{
	OutSubscribe, OutUnsubscribe, OutSubscribed, OutUnsubscribed,
	InSubscribe, InUnsubscribe, InSubscribed, InUnsubscribed,
}

// String satisfies fmt.Stringer interface.
func (pt PresenceType) String() string {
	if int(pt) < len(presenceTypeNames) {
		return presenceTypeNames[pt]
	}
	return presenceTypeNames[Invalid]
}

// IsInbound tells whether the presence type is directed to the session owner.
func (pt PresenceType) IsInbound() bool {
	return pt >= InInitial && pt <= InProbe
}

// IsOutbound tells whether the presence type originates from the session owner.
func (pt PresenceType) IsOutbound() bool {
	return pt >= OutInitial && pt <= OutUnsubscribed
}

// IsSubscription tells whether the presence type is a subscription management one.
func (pt PresenceType) IsSubscription() bool {
	for _, d := range SubscriptionDirections {
		if d == pt {
			return true
		}
	}
	return false
}

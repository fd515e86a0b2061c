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

package rostermodel

import "fmt"

// Subscription represents the subscription state of a roster item as defined in RFC 6121.
type Subscription uint8

const (
	// None means neither party is subscribed and no request is pending.
	None Subscription = iota

	// NonePendingOut means the user has sent a subscription request to the contact.
	NonePendingOut

	// NonePendingIn means the contact has sent a subscription request to the user.
	NonePendingIn

	// NonePendingOutIn means requests are pending in both directions.
	NonePendingOutIn

	// To means the user is subscribed to the contact's presence.
	To

	// ToPendingIn means the user is subscribed to the contact and the contact asked back.
	ToPendingIn

	// From means the contact is subscribed to the user's presence.
	From

	// FromPendingOut means the contact is subscribed to the user and the user asked back.
	FromPendingOut

	// Both means mutual subscription.
	Both

	// Remove is a transient value only used in roster pushes. It is never stored.
	Remove
)

var subscriptionNames = [...]string{
	None:             "none",
	NonePendingOut:   "none_pending_out",
	NonePendingIn:    "none_pending_in",
	NonePendingOutIn: "none_pending_out_in",
	To:               "to",
	ToPendingIn:      "to_pending_in",
	From:             "from",
	FromPendingOut:   "from_pending_out",
	Both:             "both",
	Remove:           "remove",
}

// StoredSubscriptions contains all subscription values that may be persisted.
var StoredSubscriptions = []Subscription{
	None, NonePendingOut, NonePendingIn, NonePendingOutIn, To, ToPendingIn, From, FromPendingOut, Both,
}

// String satisfies fmt.Stringer interface.
func (s Subscription) String() string {
	if int(s) < len(subscriptionNames) {
		return subscriptionNames[s]
	}
	return fmt.Sprintf("subscription(%d)", s)
}

// IsValid tells whether s is a known subscription value.
func (s Subscription) IsValid() bool {
	return int(s) < len(subscriptionNames)
}

// Attributes returns the canonical (subscription, ask) pair used when serializing
// a roster item to a client. Incoming pending requests are not disclosed.
func (s Subscription) Attributes() (sub string, ask bool) {
	switch s {
	case None, NonePendingIn:
		return "none", false
	case NonePendingOut, NonePendingOutIn:
		return "none", true
	case To, ToPendingIn:
		return "to", false
	case From:
		return "from", false
	case FromPendingOut:
		return "from", true
	case Both:
		return "both", false
	case Remove:
		return "remove", false
	}
	return "none", false
}

// ParseSubscription returns the subscription value associated to its internal name.
func ParseSubscription(name string) (Subscription, error) {
	for i, n := range subscriptionNames {
		if n == name {
			return Subscription(i), nil
		}
	}
	return None, fmt.Errorf("rostermodel: unrecognized subscription: %s", name)
}

// SubscriptionSet represents an unordered set of subscription values.
type SubscriptionSet uint16

// NewSubscriptionSet returns a set containing subs values.
func NewSubscriptionSet(subs ...Subscription) SubscriptionSet {
	var set SubscriptionSet
	for _, s := range subs {
		set |= 1 << s
	}
	return set
}

// Contains tells whether s belongs to the set.
func (ss SubscriptionSet) Contains(s Subscription) bool {
	return ss&(1<<s) != 0
}

// Union returns the union of ss and other sets.
func (ss SubscriptionSet) Union(other SubscriptionSet) SubscriptionSet {
	return ss | other
}

var (
	// FromSubscribed contains the states in which the contact receives the user's presence.
	FromSubscribed = NewSubscriptionSet(From, FromPendingOut, Both)

	// ToSubscribed contains the states in which the user receives the contact's presence.
	ToSubscribed = NewSubscriptionSet(To, ToPendingIn, Both)

	// PendingIn contains the states with an incoming request awaiting user approval.
	PendingIn = NewSubscriptionSet(NonePendingIn, NonePendingOutIn, ToPendingIn)

	// PendingOut contains the states with an outgoing request awaiting contact approval.
	PendingOut = NewSubscriptionSet(NonePendingOut, NonePendingOutIn, FromPendingOut)

	// SubNone contains the whole none family.
	SubNone = NewSubscriptionSet(None, NonePendingOut, NonePendingIn, NonePendingOutIn)
)

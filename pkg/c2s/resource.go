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

package c2s

import (
	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
)

// ResourceState represents the presence lifecycle state of a bound resource.
type ResourceState uint8

const (
	// NoPresenceSent is the initial resource state, before any broadcast presence has been sent.
	NoPresenceSent ResourceState = iota

	// Available state is reached after sending an available broadcast presence.
	Available

	// Unavailable state is reached after sending an unavailable broadcast presence.
	Unavailable
)

// String satisfies fmt.Stringer interface.
func (s ResourceState) String() string {
	switch s {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	}
	return "no-presence-sent"
}

// Resource represents a user connected resource.
type Resource struct {
	// ID is the connection identifier.
	ID string

	// JID is the resource full JID.
	JID *jid.JID

	// Presence is the last broadcast presence sent by the resource. nil until initial presence is sent.
	Presence *stravaganza.Presence

	// State is the resource presence lifecycle state.
	State ResourceState

	// DirectPresences contains the addresses the resource sent directed availability to.
	DirectPresences *DirectPresenceSet

	// OfflineSent guards the one-shot unavailable broadcast performed on logout.
	OfflineSent bool

	// RosterRequested is set once the resource has requested its roster.
	RosterRequested bool

	// BlockListRequested is set once the resource has requested its block list.
	// Block and unblock pushes are only delivered to resources in this state.
	BlockListRequested bool

	// ActiveList overrides the user default privacy list for this resource.
	ActiveList *privacymodel.List
}

// NewResource returns a new resource instance in NoPresenceSent state.
func NewResource(j *jid.JID, maxDirectPresences int) *Resource {
	return &Resource{
		ID:              uuid.New().String(),
		JID:             j,
		DirectPresences: NewDirectPresenceSet(maxDirectPresences),
	}
}

// IsAvailable returns presence available value.
func (r *Resource) IsAvailable() bool {
	if r.Presence != nil {
		return r.Presence.IsAvailable()
	}
	return false
}

// Priority returns resource presence priority.
func (r *Resource) Priority() int8 {
	if r.Presence != nil {
		return r.Presence.Priority()
	}
	return 0
}

// SentInitialPresence tells whether the resource already announced its availability.
func (r *Resource) SentInitialPresence() bool {
	return r.State != NoPresenceSent
}

// DirectPresenceSet is an insertion ordered set of addresses bounded to a maximum size.
// Once full, adding a new address evicts the oldest one.
type DirectPresenceSet struct {
	max  int
	jids []*jid.JID
}

// NewDirectPresenceSet returns an empty set holding up to max addresses.
// A non positive max disables the bound.
func NewDirectPresenceSet(max int) *DirectPresenceSet {
	return &DirectPresenceSet{max: max}
}

// Add records j into the set. It returns false if already present.
func (s *DirectPresenceSet) Add(j *jid.JID) bool {
	if s.Contains(j) {
		return false
	}
	if s.max > 0 && len(s.jids) >= s.max {
		s.jids = s.jids[1:]
	}
	s.jids = append(s.jids, j)
	return true
}

// Remove deletes j from the set. It returns false if not present.
func (s *DirectPresenceSet) Remove(j *jid.JID) bool {
	for i, sj := range s.jids {
		if sj.String() == j.String() {
			s.jids = append(s.jids[:i], s.jids[i+1:]...)
			return true
		}
	}
	return false
}

// Contains tells whether j belongs to the set.
func (s *DirectPresenceSet) Contains(j *jid.JID) bool {
	for _, sj := range s.jids {
		if sj.String() == j.String() {
			return true
		}
	}
	return false
}

// JIDs returns set addresses in insertion order.
func (s *DirectPresenceSet) JIDs() []*jid.JID {
	return append([]*jid.JID(nil), s.jids...)
}

// Len returns the set size.
func (s *DirectPresenceSet) Len() int {
	return len(s.jids)
}

// Clear empties the set.
func (s *DirectPresenceSet) Clear() {
	s.jids = nil
}

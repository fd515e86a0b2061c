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
	"sort"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// Status represents the outcome of a session accessor.
type Status uint8

const (
	// Authorized status is returned when the requested resource is bound.
	Authorized Status = iota

	// Unauthorized status is returned when the requested resource is not bound,
	// typically because it logged out while a stanza was in flight.
	Unauthorized
)

// String satisfies fmt.Stringer interface.
func (s Status) String() string {
	if s == Unauthorized {
		return "unauthorized"
	}
	return "authorized"
}

// Session represents the presence state of a user account along with all its bound resources.
type Session struct {
	jid                *jid.JID
	maxDirectPresences int
	resources          map[string]*Resource
}

func newSession(bareJID *jid.JID, maxDirectPresences int) *Session {
	return &Session{
		jid:                bareJID,
		maxDirectPresences: maxDirectPresences,
		resources:          make(map[string]*Resource),
	}
}

// JID returns session owner bare JID.
func (s *Session) JID() *jid.JID {
	return s.jid
}

// Bind registers a new resource. An already bound resource is returned untouched.
func (s *Session) Bind(fullJID *jid.JID) (res *Resource, created bool) {
	if res := s.resources[fullJID.Resource()]; res != nil {
		return res, false
	}
	res = NewResource(fullJID, s.maxDirectPresences)
	s.resources[fullJID.Resource()] = res
	return res, true
}

// Unbind unregisters a resource returning its last state.
func (s *Session) Unbind(resource string) (*Resource, Status) {
	res := s.resources[resource]
	if res == nil {
		return nil, Unauthorized
	}
	delete(s.resources, resource)
	return res, Authorized
}

// Resource returns a bound resource. Unauthorized status is returned if not found.
func (s *Session) Resource(resource string) (*Resource, Status) {
	res := s.resources[resource]
	if res == nil {
		return nil, Unauthorized
	}
	return res, Authorized
}

// Resources returns all bound resources sorted by resource name.
func (s *Session) Resources() []*Resource {
	return s.filter(func(*Resource) bool { return true })
}

// OtherResources returns all bound resources except the one named resource.
func (s *Session) OtherResources(resource string) []*Resource {
	return s.filter(func(r *Resource) bool { return r.JID.Resource() != resource })
}

// AvailableResources returns all resources whose last broadcast presence is available.
func (s *Session) AvailableResources() []*Resource {
	return s.filter(func(r *Resource) bool { return r.IsAvailable() })
}

// InitializedResources returns all resources that already announced their availability.
func (s *Session) InitializedResources() []*Resource {
	return s.filter(func(r *Resource) bool { return r.SentInitialPresence() })
}

// IsEmpty tells whether the session has no bound resources.
func (s *Session) IsEmpty() bool {
	return len(s.resources) == 0
}

func (s *Session) filter(fn func(*Resource) bool) []*Resource {
	var ret []*Resource
	for _, r := range s.resources {
		if fn(r) {
			ret = append(ret, r)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].JID.Resource() < ret[j].JID.Resource() })
	return ret
}

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
	"context"
	"sync"

	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/cluster/instance"
)

type entry struct {
	mu   sync.Mutex
	sess *Session
	refs int
}

// Manager keeps track of user sessions and serializes all work performed over the same bare JID.
type Manager struct {
	maxDirectPresences int

	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager returns a new initialized session manager.
func NewManager(maxDirectPresences int) *Manager {
	return &Manager{
		maxDirectPresences: maxDirectPresences,
		entries:            make(map[string]*entry),
	}
}

// Do runs fn holding bareJID session exclusive access.
// Sessions without bound resources are handed over empty and discarded once fn returns.
func (m *Manager) Do(ctx context.Context, bareJID *jid.JID, fn func(sess *Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := bareJID.ToBareJID().String()

	e := m.acquire(key, bareJID.ToBareJID())
	defer m.release(key, e)

	e.mu.Lock()
	defer e.mu.Unlock()

	return fn(e.sess)
}

// IsBound tells whether fullJID resource is currently bound.
func (m *Manager) IsBound(ctx context.Context, fullJID *jid.JID) bool {
	var bound bool
	_ = m.Do(ctx, fullJID, func(sess *Session) error {
		_, st := sess.Resource(fullJID.Resource())
		bound = st == Authorized
		return nil
	})
	return bound
}

// Len returns the number of sessions currently tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) acquire(key string, bareJID *jid.JID) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entries[key]
	if e == nil {
		e = &entry{sess: newSession(bareJID, m.maxDirectPresences)}
		m.entries[key] = e
		reportActiveSessions(len(m.entries))
	}
	e.refs++
	return e
}

func (m *Manager) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs > 0 {
		return
	}
	// entry lock is not held here since refs reached zero
	if e.sess.IsEmpty() {
		delete(m.entries, key)
		reportActiveSessions(len(m.entries))
	}
}

func reportActiveSessions(n int) {
	c2sActiveSessions.WithLabelValues(instance.ID()).Set(float64(n))
}

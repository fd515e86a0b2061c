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

package roster

import (
	"context"
	"sort"
	"strconv"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/hook"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
	"github.com/ortuman/jackal-presence/pkg/subscription"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const versionKey = "roster-ver"

// ErrRosterLimitReached is returned when creating an item would exceed the configured roster size.
var ErrRosterLimitReached = errors.New("roster: maximum number of items reached")

// Store defines the typed roster facade used by presence and subscription processing.
type Store interface {
	// Get returns owner's roster item for contact. nil is returned if not present.
	Get(ctx context.Context, owner, contact *jid.JID) (*rostermodel.Item, error)

	// Items returns all owner's roster items sorted by contact JID.
	Items(ctx context.Context, owner *jid.JID) ([]*rostermodel.Item, error)

	// ListByState returns owner's roster items whose subscription belongs to set.
	ListByState(ctx context.Context, owner *jid.JID, set rostermodel.SubscriptionSet) ([]*rostermodel.Item, error)

	// Upsert stores a roster item.
	Upsert(ctx context.Context, owner *jid.JID, itm *rostermodel.Item) error

	// Remove deletes a roster item.
	Remove(ctx context.Context, owner, contact *jid.JID) error

	// AddBuddy creates a roster item with none subscription if absent.
	AddBuddy(ctx context.Context, owner, contact *jid.JID) (itm *rostermodel.Item, created bool, err error)

	// UpdateBuddySubscription applies a subscription transition to contact item, storing it only if changed.
	// push reports whether the change must be notified to the owner's resources.
	UpdateBuddySubscription(ctx context.Context, owner, contact *jid.JID, pt subscription.PresenceType) (itm *rostermodel.Item, push bool, err error)

	// UpdateRuntime updates the runtime only fields (online, last seen and presence sent) of an item.
	UpdateRuntime(ctx context.Context, owner *jid.JID, itm *rostermodel.Item) error

	// Version returns owner's current roster version.
	Version(ctx context.Context, owner *jid.JID) (string, error)

	// Retain keeps owner's roster snapshot in memory until Release is called.
	// Rosters of owners not retained are read from the repository on every access.
	Retain(owner *jid.JID)

	// Release drops owner's snapshot along with its runtime state.
	Release(owner *jid.JID)

	// Forget drops owner's cached snapshot, forcing a reload on next access.
	Forget(owner *jid.JID)
}

// Config contains roster store configuration parameters.
type Config struct {
	// MaxItems limits roster size. Zero means unlimited.
	MaxItems int `fig:"max_items"`
}

type rosterCache struct {
	items map[string]*rostermodel.Item
	ver   int
}

// RepositoryStore is a Store implementation backed by the session data repository.
// Only retained owners keep an in-memory snapshot.
type RepositoryStore struct {
	cfg    Config
	rep    repository.SessionData
	hk     *hook.Hooks
	logger kitlog.Logger

	mu     sync.RWMutex
	live   map[string]struct{}
	caches map[string]*rosterCache
}

// NewStore returns a new RepositoryStore instance.
func NewStore(cfg Config, rep repository.SessionData, hk *hook.Hooks, logger kitlog.Logger) *RepositoryStore {
	return &RepositoryStore{
		cfg:    cfg,
		rep:    rep,
		hk:     hk,
		logger: logger,
		live:   make(map[string]struct{}),
		caches: make(map[string]*rosterCache),
	}
}

// Get satisfies Store interface.
func (s *RepositoryStore) Get(ctx context.Context, owner, contact *jid.JID) (*rostermodel.Item, error) {
	rc, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	itm := rc.items[contact.ToBareJID().String()]
	if itm == nil {
		return nil, nil
	}
	return itm.Copy(), nil
}

// Items satisfies Store interface.
func (s *RepositoryStore) Items(ctx context.Context, owner *jid.JID) ([]*rostermodel.Item, error) {
	return s.filter(ctx, owner, func(*rostermodel.Item) bool { return true })
}

// ListByState satisfies Store interface.
func (s *RepositoryStore) ListByState(ctx context.Context, owner *jid.JID, set rostermodel.SubscriptionSet) ([]*rostermodel.Item, error) {
	return s.filter(ctx, owner, func(itm *rostermodel.Item) bool {
		return set.Contains(itm.Subscription)
	})
}

// Upsert satisfies Store interface.
func (s *RepositoryStore) Upsert(ctx context.Context, owner *jid.JID, itm *rostermodel.Item) error {
	rc, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	key := itm.Key()

	s.mu.RLock()
	_, exists := rc.items[key]
	size := len(rc.items)
	s.mu.RUnlock()

	if !exists && s.cfg.MaxItems > 0 && size >= s.cfg.MaxItems {
		level.Warn(s.logger).Log("msg", "roster limit reached", "owner", owner.String(), "max_items", s.cfg.MaxItems)
		return ErrRosterLimitReached
	}
	b, err := itm.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.rep.SetData(ctx, owner.ToBareJID().String(), repository.RosterNamespace, key, b); err != nil {
		return errors.Wrapf(err, "roster: failed to store item %s", key)
	}
	ver, err := s.bumpVersion(ctx, owner, rc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	rc.items[key] = itm.Copy()
	rc.ver = ver
	s.mu.Unlock()

	return s.notifyChange(ctx, owner)
}

// Remove satisfies Store interface.
func (s *RepositoryStore) Remove(ctx context.Context, owner, contact *jid.JID) error {
	rc, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	key := contact.ToBareJID().String()

	s.mu.RLock()
	_, exists := rc.items[key]
	s.mu.RUnlock()
	if !exists {
		return nil
	}
	if err := s.rep.RemoveData(ctx, owner.ToBareJID().String(), repository.RosterNamespace, key); err != nil {
		return errors.Wrapf(err, "roster: failed to remove item %s", key)
	}
	ver, err := s.bumpVersion(ctx, owner, rc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(rc.items, key)
	rc.ver = ver
	s.mu.Unlock()

	return s.notifyChange(ctx, owner)
}

// AddBuddy satisfies Store interface.
func (s *RepositoryStore) AddBuddy(ctx context.Context, owner, contact *jid.JID) (*rostermodel.Item, bool, error) {
	itm, err := s.Get(ctx, owner, contact)
	if err != nil {
		return nil, false, err
	}
	if itm != nil {
		return itm, false, nil
	}
	itm = &rostermodel.Item{
		JID:          contact.ToBareJID(),
		Subscription: rostermodel.None,
	}
	if err := s.Upsert(ctx, owner, itm); err != nil {
		return nil, false, err
	}
	return itm, true, nil
}

// UpdateBuddySubscription satisfies Store interface.
func (s *RepositoryStore) UpdateBuddySubscription(ctx context.Context, owner, contact *jid.JID, pt subscription.PresenceType) (*rostermodel.Item, bool, error) {
	itm, err := s.Get(ctx, owner, contact)
	if err != nil {
		return nil, false, err
	}
	if itm == nil {
		return nil, false, nil
	}
	next, changed := subscription.Transition(itm.Subscription, pt)
	if !changed {
		return itm, false, nil
	}
	itm.Subscription = next
	if err := s.Upsert(ctx, owner, itm); err != nil {
		return nil, false, err
	}
	return itm, true, nil
}

// UpdateRuntime satisfies Store interface.
// Runtime state is only kept for retained owners.
func (s *RepositoryStore) UpdateRuntime(ctx context.Context, owner *jid.JID, itm *rostermodel.Item) error {
	if !s.isRetained(owner) {
		return nil
	}
	rc, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := rc.items[itm.Key()]
	if cached == nil {
		return nil
	}
	cached.Online = itm.Online
	cached.LastSeen = itm.LastSeen
	cached.PresenceSent = itm.PresenceSent
	return nil
}

// Version satisfies Store interface.
func (s *RepositoryStore) Version(ctx context.Context, owner *jid.JID) (string, error) {
	rc, err := s.load(ctx, owner)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strconv.Itoa(rc.ver), nil
}

// Retain satisfies Store interface.
func (s *RepositoryStore) Retain(owner *jid.JID) {
	s.mu.Lock()
	s.live[owner.ToBareJID().String()] = struct{}{}
	s.mu.Unlock()
}

// Release satisfies Store interface.
func (s *RepositoryStore) Release(owner *jid.JID) {
	ownerKey := owner.ToBareJID().String()

	s.mu.Lock()
	delete(s.live, ownerKey)
	delete(s.caches, ownerKey)
	s.mu.Unlock()
}

// Forget satisfies Store interface.
func (s *RepositoryStore) Forget(owner *jid.JID) {
	s.mu.Lock()
	delete(s.caches, owner.ToBareJID().String())
	s.mu.Unlock()
}

func (s *RepositoryStore) isRetained(owner *jid.JID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live[owner.ToBareJID().String()]
	return ok
}

func (s *RepositoryStore) filter(ctx context.Context, owner *jid.JID, fn func(*rostermodel.Item) bool) ([]*rostermodel.Item, error) {
	rc, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	items := lo.Filter(lo.Values(rc.items), func(itm *rostermodel.Item, _ int) bool {
		return fn(itm)
	})
	items = lo.Map(items, func(itm *rostermodel.Item, _ int) *rostermodel.Item {
		return itm.Copy()
	})
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Key() < items[j].Key() })
	return items, nil
}

func (s *RepositoryStore) load(ctx context.Context, owner *jid.JID) (*rosterCache, error) {
	ownerKey := owner.ToBareJID().String()

	s.mu.RLock()
	rc := s.caches[ownerKey]
	s.mu.RUnlock()
	if rc != nil {
		return rc, nil
	}
	rc, err := s.fetch(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, ok := s.live[ownerKey]; ok {
		if existing := s.caches[ownerKey]; existing != nil {
			rc = existing
		} else {
			s.caches[ownerKey] = rc
		}
	}
	s.mu.Unlock()

	return rc, nil
}

func (s *RepositoryStore) fetch(ctx context.Context, ownerKey string) (*rosterCache, error) {
	keys, err := s.rep.GetDataGroups(ctx, ownerKey, repository.RosterNamespace)
	if err != nil {
		return nil, errors.Wrapf(err, "roster: failed to fetch %s item keys", ownerKey)
	}
	rc := &rosterCache{items: make(map[string]*rostermodel.Item, len(keys))}
	for _, k := range keys {
		b, err := s.rep.GetData(ctx, ownerKey, repository.RosterNamespace, k)
		if err != nil {
			return nil, errors.Wrapf(err, "roster: failed to fetch item %s", k)
		}
		if b == nil {
			continue
		}
		var itm rostermodel.Item
		if err := itm.UnmarshalBinary(b); err != nil {
			level.Warn(s.logger).Log("msg", "skipping malformed roster item", "owner", ownerKey, "key", k, "err", err)
			continue
		}
		rc.items[itm.Key()] = &itm
	}
	verB, err := s.rep.GetData(ctx, ownerKey, repository.SettingsNamespace, versionKey)
	if err != nil {
		return nil, errors.Wrapf(err, "roster: failed to fetch %s version", ownerKey)
	}
	if verB != nil {
		rc.ver, _ = strconv.Atoi(string(verB))
	}
	return rc, nil
}

func (s *RepositoryStore) bumpVersion(ctx context.Context, owner *jid.JID, rc *rosterCache) (int, error) {
	s.mu.RLock()
	ver := rc.ver + 1
	s.mu.RUnlock()

	err := s.rep.SetData(ctx, owner.ToBareJID().String(), repository.SettingsNamespace, versionKey, []byte(strconv.Itoa(ver)))
	if err != nil {
		return 0, errors.Wrapf(err, "roster: failed to store %s version", owner.String())
	}
	return ver, nil
}

func (s *RepositoryStore) notifyChange(ctx context.Context, owner *jid.JID) error {
	if s.hk == nil {
		return nil
	}
	_, err := s.hk.Run(ctx, hook.RosterChanged, &hook.ExecutionContext{
		Info:   &hook.UserHookInfo{JID: owner.ToBareJID()},
		Sender: s,
	})
	return err
}

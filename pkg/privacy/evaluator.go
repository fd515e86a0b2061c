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

package privacy

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/hook"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/roster"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
)

// Direction represents a stanza direction relative to the privacy list owner.
type Direction uint8

const (
	// Inbound stanzas are addressed to the owner.
	Inbound Direction = iota

	// Outbound stanzas are sent by the owner.
	Outbound
)

// String satisfies fmt.Stringer interface.
func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// Config contains privacy evaluator configuration parameters.
type Config struct {
	CacheSize int `fig:"cache_size" default:"4096"`
}

// Evaluator decides whether stanzas are allowed by a user privacy list.
type Evaluator struct {
	lists  *ListStore
	rst    roster.Store
	cache  *Cache
	hk     *hook.Hooks
	logger kitlog.Logger
}

// NewEvaluator returns a new Evaluator instance.
// Cached default lists are invalidated through hk events.
func NewEvaluator(cfg Config, lists *ListStore, rst roster.Store, hk *hook.Hooks, logger kitlog.Logger) *Evaluator {
	return &Evaluator{
		lists:  lists,
		rst:    rst,
		cache:  NewCache(cfg.CacheSize),
		hk:     hk,
		logger: logger,
	}
}

// Start registers cache invalidation hooks.
func (e *Evaluator) Start(_ context.Context) error {
	e.hk.AddHook(hook.RosterChanged, e.onUserChanged, hook.HighestPriority)
	e.hk.AddHook(hook.PresenceSessionChanged, e.onUserChanged, hook.HighestPriority)
	e.hk.AddHook(hook.PrivacyListChanged, e.onUserChanged, hook.HighestPriority)
	level.Info(e.logger).Log("msg", "started privacy evaluator")
	return nil
}

// Stop unregisters cache invalidation hooks.
func (e *Evaluator) Stop(_ context.Context) error {
	e.hk.RemoveHook(hook.RosterChanged, e.onUserChanged)
	e.hk.RemoveHook(hook.PresenceSessionChanged, e.onUserChanged)
	e.hk.RemoveHook(hook.PrivacyListChanged, e.onUserChanged)
	level.Info(e.logger).Log("msg", "stopped privacy evaluator")
	return nil
}

// DefaultList returns owner's default privacy list going through the cache.
func (e *Evaluator) DefaultList(ctx context.Context, owner *jid.JID) (*privacymodel.List, error) {
	key := owner.ToBareJID().String()
	if l, ok := e.cache.Get(key); ok {
		return l, nil
	}
	l, err := e.lists.DefaultList(ctx, owner)
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, l)
	return l, nil
}

// Allowed tells whether stanza is allowed by list for the given direction.
// A nil list allows everything.
func (e *Evaluator) Allowed(ctx context.Context, owner *jid.JID, stanza stravaganza.Stanza, dir Direction, list *privacymodel.List) bool {
	if list == nil || len(list.Rules) == 0 {
		return true
	}
	var contact *jid.JID
	if dir == Outbound {
		contact = stanza.ToJID()
	} else {
		contact = stanza.FromJID()
	}
	if contact == nil || isAlwaysAllowed(owner, contact, stanza) {
		return true
	}
	kind, ok := stanzaKind(stanza, dir)
	if !ok {
		return true
	}
	var itm *rostermodel.Item
	var itmLoaded bool

	for _, rule := range sortedRules(list) {
		if !rule.Applies(kind) {
			continue
		}
		var matched bool
		switch rule.Kind {
		case privacymodel.MatchAll:
			matched = true
		case privacymodel.MatchJID:
			matched = matchesJID(rule.Value, contact)
		case privacymodel.MatchGroup, privacymodel.MatchSubscription:
			if !itmLoaded {
				itm = e.rosterItem(ctx, owner, contact)
				itmLoaded = true
			}
			if rule.Kind == privacymodel.MatchGroup {
				matched = itm != nil && itm.HasGroup(rule.Value)
			} else {
				matched = subscriptionBucket(itm) == rule.Value
			}
		}
		if matched {
			return rule.Action == privacymodel.Allow
		}
	}
	return true
}

func (e *Evaluator) rosterItem(ctx context.Context, owner, contact *jid.JID) *rostermodel.Item {
	itm, err := e.rst.Get(ctx, owner, contact)
	if err != nil {
		level.Warn(e.logger).Log("msg", "failed to fetch roster item", "owner", owner.String(), "contact", contact.String(), "err", err)
		return nil
	}
	return itm
}

func (e *Evaluator) onUserChanged(_ context.Context, execCtx *hook.ExecutionContext) error {
	inf, ok := execCtx.Info.(*hook.UserHookInfo)
	if !ok || inf.JID == nil {
		return nil
	}
	e.cache.Invalidate(inf.JID.ToBareJID().String())
	return nil
}

func isAlwaysAllowed(owner, contact *jid.JID, stanza stravaganza.Stanza) bool {
	// own resources
	if contact.MatchesWithOptions(owner, jid.MatchesBare) {
		return true
	}
	// owner's server domain
	if len(contact.Node()) == 0 && len(contact.Resource()) == 0 && contact.Domain() == owner.Domain() {
		return true
	}
	// responses to a block notification
	if stanza.Attribute(stravaganza.Type) == stravaganza.ErrorType {
		if errEl := stanza.Child("error"); errEl != nil && errEl.ChildNamespace("blocked", xmpputil.BlockingErrorsNamespace) != nil {
			return true
		}
	}
	return false
}

func stanzaKind(stanza stravaganza.Stanza, dir Direction) (privacymodel.StanzaKind, bool) {
	switch stanza.Name() {
	case "message":
		return privacymodel.Message, true
	case "iq":
		return privacymodel.IQ, true
	case "presence":
		if dir == Outbound {
			return privacymodel.PresenceOut, true
		}
		return privacymodel.PresenceIn, true
	}
	return 0, false
}

func matchesJID(value string, contact *jid.JID) bool {
	rj, err := jid.NewWithString(value, true)
	if err != nil {
		return false
	}
	switch {
	case len(rj.Resource()) > 0:
		return rj.String() == contact.String()
	case len(rj.Node()) > 0:
		return rj.MatchesWithOptions(contact, jid.MatchesBare)
	default:
		return rj.Domain() == contact.Domain()
	}
}

func subscriptionBucket(itm *rostermodel.Item) string {
	if itm == nil {
		return "none"
	}
	to := rostermodel.ToSubscribed.Contains(itm.Subscription)
	from := rostermodel.FromSubscribed.Contains(itm.Subscription)
	switch {
	case to && from:
		return "both"
	case to:
		return "to"
	case from:
		return "from"
	}
	return "none"
}

func sortedRules(l *privacymodel.List) []privacymodel.Rule {
	for i := 1; i < len(l.Rules); i++ {
		if l.Rules[i-1].Order > l.Rules[i].Order {
			cp := l.Copy()
			cp.Sort()
			return cp.Rules
		}
	}
	return l.Rules
}

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

	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/hook"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
	"github.com/samber/lo"
)

// BlockListName is the name of the list created when blocking with no default list set.
const BlockListName = "blocklist"

// Blocker implements the blocking command on top of the user default privacy list.
type Blocker struct {
	lists *ListStore
	hk    *hook.Hooks
}

// NewBlocker returns a new Blocker instance.
func NewBlocker(lists *ListStore, hk *hook.Hooks) *Blocker {
	return &Blocker{lists: lists, hk: hk}
}

// BlockedJIDs returns the addresses blocked by owner in rule order.
func (b *Blocker) BlockedJIDs(ctx context.Context, owner *jid.JID) ([]string, error) {
	l, err := b.lists.DefaultList(ctx, owner)
	if err != nil || l == nil {
		return nil, err
	}
	l.Sort()
	return blockedValues(l), nil
}

// Block adds a deny rule for every address not already blocked.
// New rules take precedence over any existing one. It returns the newly blocked addresses.
func (b *Blocker) Block(ctx context.Context, owner *jid.JID, jids []*jid.JID) ([]string, error) {
	l, err := b.lists.DefaultList(ctx, owner)
	if err != nil {
		return nil, err
	}
	var created bool
	if l == nil {
		l = &privacymodel.List{Name: BlockListName}
		created = true
	}
	l.Sort()
	blocked := blockedValues(l)

	var added []string
	var rules []privacymodel.Rule
	for _, j := range jids {
		v := j.String()
		if lo.Contains(blocked, v) || lo.Contains(added, v) {
			continue
		}
		added = append(added, v)
		rules = append(rules, privacymodel.Rule{
			Kind:   privacymodel.MatchJID,
			Value:  v,
			Action: privacymodel.Deny,
		})
	}
	if len(added) == 0 {
		return nil, nil
	}
	l.Rules = renumber(append(rules, l.Rules...))

	if err := b.lists.UpsertList(ctx, owner, l); err != nil {
		return nil, err
	}
	if created {
		if err := b.lists.SetDefaultListName(ctx, owner, l.Name); err != nil {
			return nil, err
		}
	}
	return added, b.notifyChange(ctx, owner)
}

// Unblock removes the deny rules matching jids. An empty jids slice unblocks every address.
// It returns the unblocked addresses.
func (b *Blocker) Unblock(ctx context.Context, owner *jid.JID, jids []*jid.JID) ([]string, error) {
	l, err := b.lists.DefaultList(ctx, owner)
	if err != nil || l == nil {
		return nil, err
	}
	l.Sort()

	targets := lo.Map(jids, func(j *jid.JID, _ int) string { return j.String() })

	var removed []string
	l.Rules = lo.Filter(l.Rules, func(r privacymodel.Rule, _ int) bool {
		if !r.IsBlockingRule() {
			return true
		}
		if len(targets) > 0 && !lo.Contains(targets, r.Value) {
			return true
		}
		removed = append(removed, r.Value)
		return false
	})
	if len(removed) == 0 {
		return nil, nil
	}
	l.Rules = renumber(l.Rules)

	if err := b.lists.UpsertList(ctx, owner, l); err != nil {
		return nil, err
	}
	return removed, b.notifyChange(ctx, owner)
}

func (b *Blocker) notifyChange(ctx context.Context, owner *jid.JID) error {
	if b.hk == nil {
		return nil
	}
	_, err := b.hk.Run(ctx, hook.RosterChanged, &hook.ExecutionContext{
		Info:   &hook.UserHookInfo{JID: owner.ToBareJID()},
		Sender: b,
	})
	return err
}

func blockedValues(l *privacymodel.List) []string {
	return lo.FilterMap(l.Rules, func(r privacymodel.Rule, _ int) (string, bool) {
		return r.Value, r.IsBlockingRule()
	})
}

func renumber(rules []privacymodel.Rule) []privacymodel.Rule {
	for i := range rules {
		rules[i].Order = uint32(i)
	}
	return rules
}

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

package xep0191

import (
	"context"
	"errors"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/privacy"
	"github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/router"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
)

var errMissingItemJID = errors.New("xep0191: item requires a jid attribute")

const (
	// ModuleName represents blocklist module name.
	ModuleName = "blocklist"

	// XEPNumber represents blocklist XEP number.
	XEPNumber = "0191"
)

// BlockList represents blocklist (XEP-0191) module type.
type BlockList struct {
	blocker *privacy.Blocker
	rst     roster.Store
	logger  kitlog.Logger
}

// New returns a new initialized BlockList instance.
func New(blocker *privacy.Blocker, rst roster.Store, logger kitlog.Logger) *BlockList {
	return &BlockList{
		blocker: blocker,
		rst:     rst,
		logger:  kitlog.With(logger, "module", ModuleName, "xep", XEPNumber),
	}
}

// Name returns blocklist module name.
func (m *BlockList) Name() string { return ModuleName }

// MatchesNamespace tells whether namespace matches blocklist module.
func (m *BlockList) MatchesNamespace(namespace string) bool {
	return namespace == xmpputil.BlockingNamespace
}

// Start starts blocklist module.
func (m *BlockList) Start(_ context.Context) error {
	level.Info(m.logger).Log("msg", "started blocklist module")
	return nil
}

// Stop stops blocklist module.
func (m *BlockList) Stop(_ context.Context) error {
	level.Info(m.logger).Log("msg", "stopped blocklist module")
	return nil
}

// ProcessIQ process a blocklist iq.
func (m *BlockList) ProcessIQ(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, q *router.Queue) error {
	switch {
	case iq.IsGet():
		return m.getBlockList(ctx, sess, res, iq, q)
	case iq.IsSet():
		return m.alterBlockList(ctx, sess, iq, q)
	}
	q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	return nil
}

func (m *BlockList) getBlockList(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, q *router.Queue) error {
	if iq.ChildNamespace("blocklist", xmpputil.BlockingNamespace) == nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	blocked, err := m.blocker.BlockedJIDs(ctx, sess.JID())
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	sb := stravaganza.NewBuilder("blocklist").
		WithAttribute(stravaganza.Namespace, xmpputil.BlockingNamespace)
	for _, j := range blocked {
		sb.WithChild(
			stravaganza.NewBuilder("item").
				WithAttribute("jid", j).
				Build(),
		)
	}
	q.Push(xmpputil.MakeResultIQ(iq, sb.Build()))

	// mark as requested
	res.BlockListRequested = true

	level.Info(m.logger).Log("msg", "fetched blocklist", "jid", res.JID.String(), "items_count", len(blocked))
	return nil
}

func (m *BlockList) alterBlockList(ctx context.Context, sess *c2s.Session, iq *stravaganza.IQ, q *router.Queue) error {
	if block := iq.ChildNamespace("block", xmpputil.BlockingNamespace); block != nil {
		return m.blockJIDs(ctx, sess, iq, block, q)
	} else if unblock := iq.ChildNamespace("unblock", xmpputil.BlockingNamespace); unblock != nil {
		return m.unblockJIDs(ctx, sess, iq, unblock, q)
	}
	q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	return nil
}

func (m *BlockList) blockJIDs(ctx context.Context, sess *c2s.Session, iq *stravaganza.IQ, block stravaganza.Element, q *router.Queue) error {
	js, err := getItemJIDs(block)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.JIDMalformed))
		return nil
	}
	if len(js) == 0 {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	owner := sess.JID()

	added, err := m.blocker.Block(ctx, owner, js)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	q.Push(xmpputil.MakeResultIQ(iq, nil))
	if len(added) == 0 {
		return nil
	}
	m.sendPush(sess, "block", added, q)

	// blocked contacts no longer see the user and vice versa
	targets, err := m.presenceTargets(ctx, owner, added)
	if err != nil {
		return err
	}
	for _, t := range targets {
		for _, res := range sess.AvailableResources() {
			if rostermodel.FromSubscribed.Contains(t.sub) {
				pr, err := xmpputil.MakePresence(res.JID, t.jid, stravaganza.UnavailableType, nil)
				if err != nil {
					return err
				}
				q.PushBypass(pr)
			}
			if rostermodel.ToSubscribed.Contains(t.sub) {
				pr, err := xmpputil.MakePresence(t.jid, res.JID, stravaganza.UnavailableType, nil)
				if err != nil {
					return err
				}
				q.PushBypass(pr)
			}
		}
	}
	level.Info(m.logger).Log("msg", "blocked jids", "jid", owner.String(), "jids", len(added))
	return nil
}

func (m *BlockList) unblockJIDs(ctx context.Context, sess *c2s.Session, iq *stravaganza.IQ, unblock stravaganza.Element, q *router.Queue) error {
	js, err := getItemJIDs(unblock)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.JIDMalformed))
		return nil
	}
	owner := sess.JID()

	removed, err := m.blocker.Unblock(ctx, owner, js)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	q.Push(xmpputil.MakeResultIQ(iq, nil))
	if len(removed) == 0 {
		return nil
	}
	if len(js) == 0 {
		m.sendPush(sess, "unblock", nil, q)
	} else {
		m.sendPush(sess, "unblock", removed, q)
	}

	// restore presence exchange
	targets, err := m.presenceTargets(ctx, owner, removed)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if rostermodel.FromSubscribed.Contains(t.sub) {
			for _, res := range sess.AvailableResources() {
				if res.Presence == nil {
					continue
				}
				pr, err := xmpputil.PresenceWithAddresses(res.Presence, res.JID, t.jid)
				if err != nil {
					return err
				}
				q.Push(pr)
			}
		}
		if rostermodel.ToSubscribed.Contains(t.sub) {
			probe, err := xmpputil.MakePresence(owner, t.jid, stravaganza.ProbeType, nil)
			if err != nil {
				return err
			}
			q.Push(probe)
		}
	}
	level.Info(m.logger).Log("msg", "unblocked jids", "jid", owner.String(), "jids", len(removed))
	return nil
}

func (m *BlockList) sendPush(sess *c2s.Session, name string, jids []string, q *router.Queue) {
	for _, res := range sess.Resources() {
		if !res.BlockListRequested {
			continue
		}
		q.Push(xmpputil.MakeBlockingPushIQ(res.JID, name, jids))
	}
}

type presenceTarget struct {
	jid *jid.JID
	sub rostermodel.Subscription
}

// presenceTargets resolves the roster contacts affected by a set of blocking rule values.
func (m *BlockList) presenceTargets(ctx context.Context, owner *jid.JID, values []string) ([]presenceTarget, error) {
	items, err := m.rst.Items(ctx, owner)
	if err != nil {
		return nil, err
	}
	var targets []presenceTarget
	for _, v := range values {
		bj, err := jid.NewWithString(v, true)
		if err != nil {
			continue
		}
		for _, itm := range items {
			rj := itm.JID
			switch {
			case bj.IsFullWithUser() && bj.MatchesWithOptions(rj, jid.MatchesBare):
				targets = append(targets, presenceTarget{jid: bj, sub: itm.Subscription})

			case bj.IsFullWithServer() && bj.MatchesWithOptions(rj, jid.MatchesDomain):
				t, _ := jid.New(rj.Node(), rj.Domain(), bj.Resource(), true)
				targets = append(targets, presenceTarget{jid: t, sub: itm.Subscription})

			case bj.IsBare() && bj.MatchesWithOptions(rj, jid.MatchesBare):
				fallthrough
			case bj.IsServer() && bj.MatchesWithOptions(rj, jid.MatchesDomain):
				targets = append(targets, presenceTarget{jid: rj.ToBareJID(), sub: itm.Subscription})
			}
		}
	}
	return targets, nil
}

func getItemJIDs(el stravaganza.Element) ([]*jid.JID, error) {
	var retVal []*jid.JID
	for _, itm := range el.Children("item") {
		jidStr := itm.Attribute("jid")
		if len(jidStr) == 0 {
			return nil, errMissingItemJID
		}
		j, err := jid.NewWithString(jidStr, false)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, j)
	}
	return retVal, nil
}

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

package presence

import (
	"context"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	"github.com/ortuman/jackal-presence/pkg/cluster/instance"
	"github.com/ortuman/jackal-presence/pkg/host"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/router"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
)

// Broadcaster generates the presence traffic derived from user session presence changes.
type Broadcaster struct {
	cfg      Config
	rst      roster.Store
	hosts    *host.Hosts
	registry OnlineRegistry
	logger   kitlog.Logger
	trusted  map[string]struct{}
}

// NewBroadcaster returns a new Broadcaster instance.
// A nil registry makes every contact be considered online.
func NewBroadcaster(cfg Config, rst roster.Store, hosts *host.Hosts, registry OnlineRegistry, logger kitlog.Logger) *Broadcaster {
	if cfg.HighPriorityPresences <= 0 {
		cfg.HighPriorityPresences = 10
	}
	trusted := make(map[string]struct{}, len(cfg.TrustedDomains))
	for _, d := range cfg.TrustedDomains {
		trusted[d] = struct{}{}
	}
	return &Broadcaster{
		cfg:      cfg,
		rst:      rst,
		hosts:    hosts,
		registry: registry,
		logger:   logger,
		trusted:  trusted,
	}
}

// ProcessOutboundInitial handles an availability presence sent by a user resource.
// Contacts are probed the first time each resource becomes available.
func (b *Broadcaster) ProcessOutboundInitial(ctx context.Context, sess *c2s.Session, res *c2s.Resource, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()

	if to := pr.ToJID(); to != nil && !to.MatchesWithOptions(owner, jid.MatchesBare) {
		return b.processDirected(res, pr, to, q)
	}
	if pr.IsUnavailable() {
		return b.ProcessOutboundUnavailable(ctx, sess, res, pr, q)
	}
	bp, err := xmpputil.PresenceWithAddresses(pr, res.JID, owner)
	if err != nil {
		return err
	}
	first := res.State == c2s.NoPresenceSent

	res.Presence = bp
	res.State = c2s.Available
	res.OfflineSent = false

	if first {
		if err := b.probeContacts(ctx, owner, q); err != nil {
			return err
		}
		if err := b.ResendPendingInRequests(ctx, sess, res, q); err != nil {
			return err
		}
	}
	if err := b.broadcastToContacts(ctx, owner, res.Presence, q); err != nil {
		return err
	}
	return b.propagateToResources(sess, res, first, q)
}

// ProcessOutboundUnavailable broadcasts resource unavailability to contacts, directed presence
// addresses and remaining resources. It runs at most once until the resource becomes available again.
// A nil presence builds a plain unavailable one.
func (b *Broadcaster) ProcessOutboundUnavailable(ctx context.Context, sess *c2s.Session, res *c2s.Resource, pr *stravaganza.Presence, q *router.Queue) error {
	if res.OfflineSent {
		return nil
	}
	owner := sess.JID()

	var unavailable *stravaganza.Presence
	var err error
	if pr != nil {
		unavailable, err = xmpputil.PresenceWithAddresses(pr, res.JID, owner)
	} else {
		unavailable, err = xmpputil.MakePresence(res.JID, owner, stravaganza.UnavailableType, nil)
	}
	if err != nil {
		return err
	}
	announced := res.SentInitialPresence()

	res.OfflineSent = true
	res.Presence = unavailable
	res.State = c2s.Unavailable

	sent := make(map[string]struct{})
	if announced {
		items, err := b.rst.ListByState(ctx, owner, rostermodel.FromSubscribed)
		if err != nil {
			return err
		}
		var n int
		for _, itm := range items {
			if !b.requiresPresenceSending(ctx, itm) {
				continue
			}
			if err := b.pushAddressed(q, unavailable, res.JID, itm.JID, b.fanOutPriority(n)); err != nil {
				return err
			}
			sent[itm.Key()] = struct{}{}
			n++

			if itm.PresenceSent {
				itm.PresenceSent = false
				if err := b.rst.UpdateRuntime(ctx, owner, itm); err != nil {
					level.Warn(b.logger).Log("msg", "failed to update roster item runtime state", "jid", owner.String(), "contact", itm.Key(), "err", err)
				}
			}
		}
		reportFanOut(stravaganza.UnavailableType, n)
	}
	for _, dj := range res.DirectPresences.JIDs() {
		if _, ok := sent[dj.String()]; ok {
			continue
		}
		if err := b.pushAddressed(q, unavailable, res.JID, dj, router.HighPriority); err != nil {
			return err
		}
	}
	res.DirectPresences.Clear()

	if !announced {
		return nil
	}
	for _, other := range sess.OtherResources(res.JID.Resource()) {
		if !other.SentInitialPresence() {
			continue
		}
		if err := b.pushAddressed(q, unavailable, res.JID, other.JID, router.HighPriority); err != nil {
			return err
		}
	}
	return nil
}

// ProcessInboundInitial handles an availability presence addressed to the session owner.
func (b *Broadcaster) ProcessInboundInitial(ctx context.Context, sess *c2s.Session, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()
	from, to := pr.FromJID(), pr.ToJID()

	var targets []*c2s.Resource
	if len(to.Resource()) > 0 {
		res, st := sess.Resource(to.Resource())
		if st == c2s.Unauthorized || !res.SentInitialPresence() {
			level.Debug(b.logger).Log("msg", "dropping presence to unavailable resource", "to", to.String(), "from", from.String())
			return nil
		}
		targets = []*c2s.Resource{res}
	} else {
		targets = sess.InitializedResources()
	}

	itm, err := b.rst.Get(ctx, owner, from)
	if err != nil {
		return err
	}
	if itm != nil && rostermodel.ToSubscribed.Contains(itm.Subscription) {
		itm.Online = pr.IsAvailable()
		itm.LastSeen = time.Now()
		if err := b.rst.UpdateRuntime(ctx, owner, itm); err != nil {
			return err
		}
	}
	for _, res := range targets {
		if err := b.pushAddressed(q, pr, nil, res.JID, router.HighPriority); err != nil {
			return err
		}
	}
	return nil
}

// ProcessInboundProbe answers a presence probe addressed to the session owner.
func (b *Broadcaster) ProcessInboundProbe(ctx context.Context, sess *c2s.Session, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()
	from := pr.FromJID()

	itm, err := b.rst.Get(ctx, owner, from)
	if err != nil {
		return err
	}
	allowed := itm != nil && rostermodel.FromSubscribed.Contains(itm.Subscription)
	if !allowed {
		if _, ok := b.trusted[from.Domain()]; !ok {
			return b.pushNew(q, owner, from.ToBareJID(), stravaganza.UnsubscribedType, nil)
		}
	}
	var n int
	for _, res := range sess.Resources() {
		if res.Presence == nil {
			continue
		}
		if err := b.pushAddressed(q, res.Presence, res.JID, from, router.HighPriority); err != nil {
			return err
		}
		n++
	}
	if n == 0 {
		return b.pushNew(q, owner, from, stravaganza.UnavailableType, nil)
	}
	return nil
}

// ResendPendingInRequests emits a subscription request to res on behalf of every contact whose
// inbound request is still awaiting approval.
func (b *Broadcaster) ResendPendingInRequests(ctx context.Context, sess *c2s.Session, res *c2s.Resource, q *router.Queue) error {
	items, err := b.rst.ListByState(ctx, sess.JID(), rostermodel.PendingIn)
	if err != nil {
		return err
	}
	for _, itm := range items {
		if err := b.pushNew(q, itm.JID.ToBareJID(), res.JID, stravaganza.SubscribeType, nil); err != nil {
			return err
		}
	}
	return nil
}

// SendCurrentPresences sends the current presence of every available resource to contact.
func (b *Broadcaster) SendCurrentPresences(sess *c2s.Session, contact *jid.JID, q *router.Queue) error {
	for _, res := range sess.AvailableResources() {
		if err := b.pushAddressed(q, res.Presence, res.JID, contact.ToBareJID(), router.HighPriority); err != nil {
			return err
		}
	}
	return nil
}

// SendUnavailable sends an unavailable presence to contact on behalf of every available resource.
func (b *Broadcaster) SendUnavailable(sess *c2s.Session, contact *jid.JID, q *router.Queue) error {
	for _, res := range sess.AvailableResources() {
		if err := b.pushNew(q, res.JID, contact.ToBareJID(), stravaganza.UnavailableType, nil); err != nil {
			return err
		}
	}
	return nil
}

// Probe sends a presence probe to contact on behalf of the session owner.
func (b *Broadcaster) Probe(sess *c2s.Session, contact *jid.JID, q *router.Queue) error {
	return b.pushNew(q, sess.JID(), contact.ToBareJID(), stravaganza.ProbeType, nil)
}

// ForwardToResources delivers stanza to every available resource of the session owner.
func (b *Broadcaster) ForwardToResources(sess *c2s.Session, stanza stravaganza.Stanza, q *router.Queue) error {
	for _, res := range sess.AvailableResources() {
		if err := b.pushAddressed(q, stanza, nil, res.JID, router.HighPriority); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broadcaster) processDirected(res *c2s.Resource, pr *stravaganza.Presence, to *jid.JID, q *router.Queue) error {
	if err := b.pushAddressed(q, pr, res.JID, nil, router.HighPriority); err != nil {
		return err
	}
	if pr.IsUnavailable() {
		res.DirectPresences.Remove(to)
		return nil
	}
	res.DirectPresences.Add(to)
	return nil
}

func (b *Broadcaster) probeContacts(ctx context.Context, owner *jid.JID, q *router.Queue) error {
	items, err := b.rst.ListByState(ctx, owner, rostermodel.ToSubscribed)
	if err != nil {
		return err
	}
	for i, itm := range items {
		probe, err := xmpputil.MakePresence(owner, itm.JID.ToBareJID(), stravaganza.ProbeType, nil)
		if err != nil {
			return err
		}
		q.PushWithPriority(probe, b.fanOutPriority(i))
	}
	reportFanOut(stravaganza.ProbeType, len(items))
	return nil
}

func (b *Broadcaster) broadcastToContacts(ctx context.Context, owner *jid.JID, pr *stravaganza.Presence, q *router.Queue) error {
	items, err := b.rst.ListByState(ctx, owner, rostermodel.FromSubscribed)
	if err != nil {
		return err
	}
	var n int
	for _, itm := range items {
		if !b.requiresPresenceSending(ctx, itm) {
			continue
		}
		if err := b.pushAddressed(q, pr, nil, itm.JID.ToBareJID(), b.fanOutPriority(n)); err != nil {
			return err
		}
		n++

		if !itm.PresenceSent {
			itm.PresenceSent = true
			if err := b.rst.UpdateRuntime(ctx, owner, itm); err != nil {
				return err
			}
		}
	}
	reportFanOut(stravaganza.AvailableType, n)
	return nil
}

func (b *Broadcaster) propagateToResources(sess *c2s.Session, res *c2s.Resource, first bool, q *router.Queue) error {
	for _, other := range sess.OtherResources(res.JID.Resource()) {
		if !other.SentInitialPresence() {
			continue
		}
		if err := b.pushAddressed(q, res.Presence, res.JID, other.JID, router.HighPriority); err != nil {
			return err
		}
		if first && other.IsAvailable() {
			if err := b.pushAddressed(q, other.Presence, other.JID, res.JID, router.HighPriority); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Broadcaster) pushAddressed(q *router.Queue, stanza stravaganza.Stanza, from, to *jid.JID, prio router.Priority) error {
	s, err := xmpputil.WithAddresses(stanza, from, to)
	if err != nil {
		return err
	}
	q.PushWithPriority(s, prio)
	return nil
}

func (b *Broadcaster) pushNew(q *router.Queue, from, to *jid.JID, typ string, children []stravaganza.Element) error {
	pr, err := xmpputil.MakePresence(from, to, typ, children)
	if err != nil {
		return err
	}
	q.Push(pr)
	return nil
}

func (b *Broadcaster) requiresPresenceSending(ctx context.Context, itm *rostermodel.Item) bool {
	if b.cfg.SkipOffline && !itm.Online {
		return false
	}
	if !b.cfg.SkipOfflineSys || b.registry == nil {
		return true
	}
	if b.hosts != nil && !b.hosts.IsLocalHost(itm.JID.Domain()) {
		return true
	}
	online, err := b.registry.IsOnline(ctx, itm.JID.ToBareJID())
	if err != nil {
		level.Warn(b.logger).Log("msg", "failed to query online registry", "jid", itm.Key(), "err", err)
		return true
	}
	return online
}

func (b *Broadcaster) fanOutPriority(i int) router.Priority {
	if i < b.cfg.HighPriorityPresences {
		return router.HighPriority
	}
	return router.LowPriority
}

func reportFanOut(typ string, n int) {
	if n == 0 {
		return
	}
	if len(typ) == 0 {
		typ = stravaganza.AvailableType
	}
	presenceFanOut.WithLabelValues(instance.ID(), typ).Add(float64(n))
}

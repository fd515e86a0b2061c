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

	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	rosterstore "github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/router"
	"github.com/ortuman/jackal-presence/pkg/subscription"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
	"github.com/pkg/errors"
)

// ProcessPresence applies a subscription management presence of type pt to the session owner roster.
// Resulting stanzas are appended to q in forward, roster push, probe order.
func (r *Roster) ProcessPresence(ctx context.Context, sess *c2s.Session, pr *stravaganza.Presence, pt subscription.PresenceType, q *router.Queue) error {
	var contact *jid.JID
	if pt.IsOutbound() {
		contact = pr.ToJID()
	} else {
		contact = pr.FromJID()
	}
	if contact == nil {
		level.Warn(r.logger).Log("msg", "dropped subscription presence without contact address", "type", pt.String())
		return nil
	}
	contact = contact.ToBareJID()

	var err error
	switch pt {
	case subscription.OutSubscribe:
		err = r.processOutSubscribe(ctx, sess, contact, pr, q)
	case subscription.OutUnsubscribe:
		err = r.processOutUnsubscribe(ctx, sess, contact, pr, q)
	case subscription.OutSubscribed:
		err = r.processOutSubscribed(ctx, sess, contact, pr, q)
	case subscription.OutUnsubscribed:
		err = r.processOutUnsubscribed(ctx, sess, contact, pr, q)
	case subscription.InSubscribe:
		err = r.processInSubscribe(ctx, sess, contact, pr, q)
	case subscription.InUnsubscribe, subscription.InSubscribed, subscription.InUnsubscribed:
		err = r.processInbound(ctx, sess, contact, pr, pt, q)
	default:
		level.Warn(r.logger).Log("msg", "unexpected presence type", "type", pt.String())
		return nil
	}
	if err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "processed subscription presence",
		"jid", sess.JID().String(),
		"contact", contact.String(),
		"type", pt.String(),
	)
	return nil
}

func (r *Roster) processOutSubscribe(ctx context.Context, sess *c2s.Session, contact *jid.JID, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()

	if _, _, err := r.rst.AddBuddy(ctx, owner, contact); err != nil {
		return r.handleStoreError(err, pr, q)
	}
	itm, push, err := r.rst.UpdateBuddySubscription(ctx, owner, contact, subscription.OutSubscribe)
	if err != nil {
		return r.handleStoreError(err, pr, q)
	}
	if err := r.forward(owner, contact, pr, q); err != nil {
		return err
	}
	if push && itm != nil {
		return r.pushItem(ctx, sess, itm, q)
	}
	return nil
}

func (r *Roster) processOutUnsubscribe(ctx context.Context, sess *c2s.Session, contact *jid.JID, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()

	itm, push, err := r.rst.UpdateBuddySubscription(ctx, owner, contact, subscription.OutUnsubscribe)
	if err != nil {
		return r.handleStoreError(err, pr, q)
	}
	if err := r.forward(owner, contact, pr, q); err != nil {
		return err
	}
	if !push || itm == nil {
		return nil
	}
	if removable(itm) {
		if err := r.rst.Remove(ctx, owner, contact); err != nil {
			return err
		}
		itm.Subscription = rostermodel.Remove
	}
	return r.pushItem(ctx, sess, itm, q)
}

func (r *Roster) processOutSubscribed(ctx context.Context, sess *c2s.Session, contact *jid.JID, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()

	itm, err := r.rst.Get(ctx, owner, contact)
	if err != nil {
		return err
	}
	if itm == nil || !rostermodel.PendingIn.Union(rostermodel.FromSubscribed).Contains(itm.Subscription) {
		return r.preApprove(ctx, sess, contact, itm, pr, q)
	}
	itm, push, err := r.rst.UpdateBuddySubscription(ctx, owner, contact, subscription.OutSubscribed)
	if err != nil {
		return err
	}
	if err := r.forward(owner, contact, pr, q); err != nil {
		return err
	}
	if !push || itm == nil {
		return nil
	}
	if err := r.bc.SendCurrentPresences(sess, contact, q); err != nil {
		return err
	}
	return r.pushItem(ctx, sess, itm, q)
}

func (r *Roster) processOutUnsubscribed(ctx context.Context, sess *c2s.Session, contact *jid.JID, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()

	itm, err := r.rst.Get(ctx, owner, contact)
	if err != nil {
		return err
	}
	// cancel a pending pre-approval
	var cancelled bool
	if itm != nil && itm.PreApproved {
		itm.PreApproved = false
		if err := r.rst.Upsert(ctx, owner, itm); err != nil {
			return err
		}
		cancelled = true
	}
	itm, push, err := r.rst.UpdateBuddySubscription(ctx, owner, contact, subscription.OutUnsubscribed)
	if err != nil {
		return err
	}
	if err := r.forward(owner, contact, pr, q); err != nil {
		return err
	}
	if itm == nil {
		return nil
	}
	if push {
		if err := r.bc.SendUnavailable(sess, contact, q); err != nil {
			return err
		}
	}
	if push || cancelled {
		return r.pushItem(ctx, sess, itm, q)
	}
	return nil
}

func (r *Roster) preApprove(ctx context.Context, sess *c2s.Session, contact *jid.JID, itm *rostermodel.Item, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()
	if itm == nil {
		var err error
		itm, _, err = r.rst.AddBuddy(ctx, owner, contact)
		if err != nil {
			return r.handleStoreError(err, pr, q)
		}
	}
	if itm.PreApproved {
		return nil
	}
	itm.PreApproved = true
	if err := r.rst.Upsert(ctx, owner, itm); err != nil {
		return err
	}
	level.Debug(r.logger).Log("msg", "subscription pre-approved", "jid", owner.String(), "contact", contact.String())

	return r.pushItem(ctx, sess, itm, q)
}

func (r *Roster) processInSubscribe(ctx context.Context, sess *c2s.Session, contact *jid.JID, pr *stravaganza.Presence, q *router.Queue) error {
	owner := sess.JID()

	itm, err := r.rst.Get(ctx, owner, contact)
	if err != nil {
		return err
	}
	if itm != nil && rostermodel.FromSubscribed.Contains(itm.Subscription) {
		subscribed, err := xmpputil.MakePresence(owner, contact, stravaganza.SubscribedType, nil)
		if err != nil {
			return err
		}
		q.Push(subscribed)
		return nil
	}
	if _, _, err := r.rst.AddBuddy(ctx, owner, contact); err != nil {
		return r.handleStoreError(err, pr, q)
	}
	itm, push, err := r.rst.UpdateBuddySubscription(ctx, owner, contact, subscription.InSubscribe)
	if err != nil {
		return err
	}
	switch {
	case r.isAutoAuthorized(contact.Domain()):
		itm.Subscription = rostermodel.Both
		itm.PreApproved = false
		if err := r.rst.Upsert(ctx, owner, itm); err != nil {
			return err
		}
		if err := r.approve(sess, contact, q); err != nil {
			return err
		}
		if err := r.pushItem(ctx, sess, itm, q); err != nil {
			return err
		}
		return r.bc.Probe(sess, contact, q)

	case itm.PreApproved:
		next, _ := subscription.Transition(itm.Subscription, subscription.OutSubscribed)
		itm.Subscription = next
		itm.PreApproved = false
		if err := r.rst.Upsert(ctx, owner, itm); err != nil {
			return err
		}
		if err := r.approve(sess, contact, q); err != nil {
			return err
		}
		if err := r.pushItem(ctx, sess, itm, q); err != nil {
			return err
		}
		if rostermodel.ToSubscribed.Contains(itm.Subscription) {
			return r.bc.Probe(sess, contact, q)
		}
		return nil
	}
	// let the user decide
	if err := r.forwardToResources(sess, contact, stravaganza.SubscribeType, pr, q); err != nil {
		return err
	}
	if push {
		return r.pushItem(ctx, sess, itm, q)
	}
	return nil
}

func (r *Roster) processInbound(ctx context.Context, sess *c2s.Session, contact *jid.JID, pr *stravaganza.Presence, pt subscription.PresenceType, q *router.Queue) error {
	owner := sess.JID()

	itm, push, err := r.rst.UpdateBuddySubscription(ctx, owner, contact, pt)
	if err != nil {
		return err
	}
	if itm == nil {
		level.Debug(r.logger).Log("msg", "ignored presence from unknown contact", "jid", owner.String(), "contact", contact.String(), "type", pt.String())
		return nil
	}
	if !push {
		return nil
	}
	if err := r.forwardToResources(sess, contact, pr.Attribute(stravaganza.Type), pr, q); err != nil {
		return err
	}
	if pt == subscription.InUnsubscribe {
		if err := r.bc.SendUnavailable(sess, contact, q); err != nil {
			return err
		}
	}
	if err := r.pushItem(ctx, sess, itm, q); err != nil {
		return err
	}
	if pt == subscription.InSubscribed && xmpputil.IsDelayed(pr) {
		return r.bc.Probe(sess, contact, q)
	}
	return nil
}

// approve replies a subscription request and shares the user's current presence with the contact.
func (r *Roster) approve(sess *c2s.Session, contact *jid.JID, q *router.Queue) error {
	subscribed, err := xmpputil.MakePresence(sess.JID(), contact, stravaganza.SubscribedType, nil)
	if err != nil {
		return err
	}
	q.Push(subscribed)
	return r.bc.SendCurrentPresences(sess, contact, q)
}

// forward relays an outbound subscription presence to contact using bare addresses.
func (r *Roster) forward(owner, contact *jid.JID, pr *stravaganza.Presence, q *router.Queue) error {
	fwd, err := xmpputil.MakePresence(owner, contact, pr.Attribute(stravaganza.Type), pr.AllChildren())
	if err != nil {
		return err
	}
	q.Push(fwd)
	return nil
}

// forwardToResources relays an inbound subscription presence to every available owner resource.
func (r *Roster) forwardToResources(sess *c2s.Session, contact *jid.JID, typ string, pr *stravaganza.Presence, q *router.Queue) error {
	fwd, err := xmpputil.MakePresence(contact, sess.JID(), typ, pr.AllChildren())
	if err != nil {
		return err
	}
	return r.bc.ForwardToResources(sess, fwd, q)
}

func (r *Roster) isAutoAuthorized(domain string) bool {
	switch r.cfg.AutoAuthorize.Domains[domain] {
	case AutoAuthorizeOn:
		return true
	case AutoAuthorizeOff:
		return false
	}
	return r.cfg.AutoAuthorize.Global
}

func (r *Roster) handleStoreError(err error, pr *stravaganza.Presence, q *router.Queue) error {
	if errors.Is(err, rosterstore.ErrRosterLimitReached) {
		q.Push(upsertErrorStanza(pr, err))
		return nil
	}
	return err
}

// removable tells whether an item left without any subscription should be dropped from the roster.
func removable(itm *rostermodel.Item) bool {
	return rostermodel.SubNone.Contains(itm.Subscription)
}

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

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/presence"
	rosterstore "github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/router"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
	"github.com/pkg/errors"
)

const rosterNamespace = "jabber:iq:roster"

// ModuleName represents roster module name.
const ModuleName = "roster"

// Auto-authorize domain override values.
const (
	AutoAuthorizeGlobal = "global"
	AutoAuthorizeOn     = "on"
	AutoAuthorizeOff    = "off"
)

// AutoAuthorizeConfig decides whether inbound subscription requests are approved without asking the user.
type AutoAuthorizeConfig struct {
	// Global is the default mode applied to every contact domain.
	Global bool `fig:"global"`

	// Domains maps a contact domain to one of 'global', 'on' or 'off'.
	Domains map[string]string `fig:"domains"`
}

// Config contains roster module configuration value.
type Config struct {
	AutoAuthorize AutoAuthorizeConfig `fig:"auto_authorize"`
}

// Roster represents a roster module type.
type Roster struct {
	cfg    Config
	rst    rosterstore.Store
	bc     *presence.Broadcaster
	logger kitlog.Logger
}

// New returns a new initialized Roster instance.
func New(cfg Config, rst rosterstore.Store, bc *presence.Broadcaster, logger kitlog.Logger) *Roster {
	return &Roster{
		cfg:    cfg,
		rst:    rst,
		bc:     bc,
		logger: kitlog.With(logger, "module", ModuleName),
	}
}

// Name returns roster module name.
func (r *Roster) Name() string { return ModuleName }

// MatchesNamespace tells whether namespace matches roster module.
func (r *Roster) MatchesNamespace(namespace string) bool {
	return namespace == rosterNamespace
}

// Start starts roster module.
func (r *Roster) Start(_ context.Context) error {
	level.Info(r.logger).Log("msg", "started roster module")
	return nil
}

// Stop stops roster module.
func (r *Roster) Stop(_ context.Context) error {
	level.Info(r.logger).Log("msg", "stopped roster module")
	return nil
}

// ProcessIQ process a roster iq.
func (r *Roster) ProcessIQ(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, q *router.Queue) error {
	query := iq.ChildNamespace("query", rosterNamespace)
	if query == nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	switch {
	case iq.IsGet():
		return r.sendRoster(ctx, sess, res, iq, query, q)
	case iq.IsSet():
		return r.updateRoster(ctx, sess, iq, query, q)
	}
	q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	return nil
}

func (r *Roster) sendRoster(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, query stravaganza.Element, q *router.Queue) error {
	if query.ChildrenCount() > 0 {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	owner := sess.JID()

	ver, err := r.rst.Version(ctx, owner)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	res.RosterRequested = true

	// roster versioning
	if reqVer := query.Attribute("ver"); len(reqVer) > 0 && reqVer == ver {
		q.Push(xmpputil.MakeResultIQ(iq, nil))

		level.Info(r.logger).Log("msg", "roster is up to date", "jid", res.JID.String(), "ver", ver)
		return nil
	}
	items, err := r.rst.Items(ctx, owner)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	qb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, rosterNamespace).
		WithAttribute("ver", ver)
	for _, itm := range items {
		qb.WithChild(itm.Element())
	}
	q.Push(xmpputil.MakeResultIQ(iq, qb.Build()))

	level.Info(r.logger).Log("msg", "fetched roster", "jid", res.JID.String(), "items_count", len(items), "ver", ver)
	return nil
}

func (r *Roster) updateRoster(ctx context.Context, sess *c2s.Session, iq *stravaganza.IQ, query stravaganza.Element, q *router.Queue) error {
	items := query.Children("item")
	if len(items) != 1 || query.ChildrenCount() != 1 {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	reqItm, err := rostermodel.NewItemFromElement(items[0])
	if err != nil {
		level.Warn(r.logger).Log("msg", "malformed roster item", "err", err)
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	owner := sess.JID()
	if reqItm.JID.MatchesWithOptions(owner, jid.MatchesBare) {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.NotAllowed))
		return nil
	}
	if reqItm.Subscription == rostermodel.Remove {
		return r.removeItem(ctx, sess, iq, reqItm, q)
	}
	itm, err := r.rst.Get(ctx, owner, reqItm.JID)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	if itm == nil {
		itm = &rostermodel.Item{
			JID:          reqItm.JID,
			Subscription: rostermodel.None,
		}
	}
	itm.Name = reqItm.Name
	itm.Groups = reqItm.Groups
	itm.CustomChildren = reqItm.CustomChildren

	if err := r.rst.Upsert(ctx, owner, itm); err != nil {
		q.Push(upsertErrorStanza(iq, err))
		if errors.Is(err, rosterstore.ErrRosterLimitReached) {
			return nil
		}
		return err
	}
	if err := r.pushItem(ctx, sess, itm, q); err != nil {
		return err
	}
	q.Push(xmpputil.MakeResultIQ(iq, nil))

	level.Info(r.logger).Log("msg", "updated roster item", "jid", owner.String(), "contact", itm.JID.String())
	return nil
}

func (r *Roster) removeItem(ctx context.Context, sess *c2s.Session, iq *stravaganza.IQ, reqItm *rostermodel.Item, q *router.Queue) error {
	owner := sess.JID()

	itm, err := r.rst.Get(ctx, owner, reqItm.JID)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	if itm == nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.ItemNotFound))
		return nil
	}
	if err := r.rst.Remove(ctx, owner, itm.JID); err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	contact := itm.JID.ToBareJID()
	if rostermodel.ToSubscribed.Union(rostermodel.PendingOut).Contains(itm.Subscription) {
		unsubscribe, err := xmpputil.MakePresence(owner, contact, stravaganza.UnsubscribeType, nil)
		if err != nil {
			return err
		}
		q.Push(unsubscribe)
	}
	if rostermodel.FromSubscribed.Contains(itm.Subscription) {
		unsubscribed, err := xmpputil.MakePresence(owner, contact, stravaganza.UnsubscribedType, nil)
		if err != nil {
			return err
		}
		q.Push(unsubscribed)
	}
	itm.Subscription = rostermodel.Remove
	if err := r.pushItem(ctx, sess, itm, q); err != nil {
		return err
	}
	q.Push(xmpputil.MakeResultIQ(iq, nil))

	level.Info(r.logger).Log("msg", "removed roster item", "jid", owner.String(), "contact", contact.String())
	return nil
}

// pushItem sends a roster push carrying itm to every bound resource of the session owner.
func (r *Roster) pushItem(ctx context.Context, sess *c2s.Session, itm *rostermodel.Item, q *router.Queue) error {
	ver, err := r.rst.Version(ctx, sess.JID())
	if err != nil {
		return err
	}
	elem := itm.Element()
	for _, res := range sess.Resources() {
		q.Push(xmpputil.MakeRosterPushIQ(res.JID, elem, ver))
	}
	return nil
}

func upsertErrorStanza(stanza stravaganza.Stanza, err error) stravaganza.Stanza {
	if errors.Is(err, rosterstore.ErrRosterLimitReached) {
		return xmpputil.MakePolicyViolationErrorStanza(stanza)
	}
	return xmpputil.MakeErrorStanza(stanza, stanzaerror.InternalServerError)
}

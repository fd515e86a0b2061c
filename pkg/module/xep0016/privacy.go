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

package xep0016

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
	"github.com/ortuman/jackal-presence/pkg/privacy"
	"github.com/ortuman/jackal-presence/pkg/router"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
)

const privacyNamespace = "jabber:iq:privacy"

// ModuleName represents privacy lists module name.
const ModuleName = "privacy"

// XEPNumber represents privacy lists XEP number.
const XEPNumber = "0016"

// Privacy represents a privacy lists (XEP-0016) module type.
type Privacy struct {
	lists  *privacy.ListStore
	logger kitlog.Logger
}

// New returns a new initialized Privacy instance.
func New(lists *privacy.ListStore, logger kitlog.Logger) *Privacy {
	return &Privacy{
		lists:  lists,
		logger: kitlog.With(logger, "module", ModuleName, "xep", XEPNumber),
	}
}

// Name returns privacy module name.
func (m *Privacy) Name() string { return ModuleName }

// MatchesNamespace tells whether namespace matches privacy module.
func (m *Privacy) MatchesNamespace(namespace string) bool {
	return namespace == privacyNamespace
}

// Start starts privacy module.
func (m *Privacy) Start(_ context.Context) error {
	level.Info(m.logger).Log("msg", "started privacy module")
	return nil
}

// Stop stops privacy module.
func (m *Privacy) Stop(_ context.Context) error {
	level.Info(m.logger).Log("msg", "stopped privacy module")
	return nil
}

// ProcessIQ process a privacy lists iq.
func (m *Privacy) ProcessIQ(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, q *router.Queue) error {
	query := iq.ChildNamespace("query", privacyNamespace)
	if query == nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	switch {
	case iq.IsGet():
		return m.processGet(ctx, sess, res, iq, query, q)
	case iq.IsSet():
		return m.processSet(ctx, sess, res, iq, query, q)
	}
	q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	return nil
}

func (m *Privacy) processGet(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, query stravaganza.Element, q *router.Queue) error {
	owner := sess.JID()

	switch query.ChildrenCount() {
	case 0:
		return m.sendListNames(ctx, owner, res, iq, q)

	case 1:
		listElem := query.Child("list")
		if listElem == nil || len(listElem.Attribute("name")) == 0 {
			q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
			return nil
		}
		l, err := m.lists.GetList(ctx, owner, listElem.Attribute("name"))
		if err != nil {
			q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
			return err
		}
		if l == nil {
			q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.ItemNotFound))
			return nil
		}
		q.Push(xmpputil.MakeResultIQ(iq, newQuery(l.Element())))
		return nil
	}
	q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	return nil
}

func (m *Privacy) sendListNames(ctx context.Context, owner *jid.JID, res *c2s.Resource, iq *stravaganza.IQ, q *router.Queue) error {
	names, err := m.lists.ListNames(ctx, owner)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	defName, err := m.lists.DefaultListName(ctx, owner)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	var children []stravaganza.Element
	if res.ActiveList != nil {
		children = append(children, namedElement("active", res.ActiveList.Name))
	}
	if len(defName) > 0 {
		children = append(children, namedElement("default", defName))
	}
	for _, name := range names {
		children = append(children, namedElement("list", name))
	}
	q.Push(xmpputil.MakeResultIQ(iq, newQuery(children...)))

	level.Info(m.logger).Log("msg", "fetched privacy list names", "jid", res.JID.String(), "lists_count", len(names))
	return nil
}

func (m *Privacy) processSet(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, query stravaganza.Element, q *router.Queue) error {
	if query.ChildrenCount() != 1 {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	elem := query.AllChildren()[0]
	switch elem.Name() {
	case "active":
		return m.setActive(ctx, sess, res, iq, elem.Attribute("name"), q)
	case "default":
		return m.setDefault(ctx, sess, res, iq, elem.Attribute("name"), q)
	case "list":
		return m.editList(ctx, sess, res, iq, elem, q)
	}
	q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
	return nil
}

func (m *Privacy) setActive(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, name string, q *router.Queue) error {
	if len(name) == 0 {
		res.ActiveList = nil
		q.Push(xmpputil.MakeResultIQ(iq, nil))
		return nil
	}
	l, err := m.lists.GetList(ctx, sess.JID(), name)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	if l == nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.ItemNotFound))
		return nil
	}
	res.ActiveList = l
	q.Push(xmpputil.MakeResultIQ(iq, nil))

	level.Info(m.logger).Log("msg", "active privacy list set", "jid", res.JID.String(), "list", name)
	return nil
}

func (m *Privacy) setDefault(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, name string, q *router.Queue) error {
	owner := sess.JID()

	curName, err := m.lists.DefaultListName(ctx, owner)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	if curName == name {
		q.Push(xmpputil.MakeResultIQ(iq, nil))
		return nil
	}
	// default list is in use by any other resource relying on it
	if len(curName) > 0 && usedByOthers(sess, res, curName) {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.Conflict))
		return nil
	}
	if len(name) > 0 {
		l, err := m.lists.GetList(ctx, owner, name)
		if err != nil {
			q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
			return err
		}
		if l == nil {
			q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.ItemNotFound))
			return nil
		}
	}
	if err := m.lists.SetDefaultListName(ctx, owner, name); err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	q.Push(xmpputil.MakeResultIQ(iq, nil))

	level.Info(m.logger).Log("msg", "default privacy list set", "jid", res.JID.String(), "list", name)
	return nil
}

func (m *Privacy) editList(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, elem stravaganza.Element, q *router.Queue) error {
	owner := sess.JID()

	l, err := privacymodel.NewListFromElement(elem)
	if err != nil {
		level.Warn(m.logger).Log("msg", "malformed privacy list", "jid", res.JID.String(), "err", err)
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	if len(l.Rules) == 0 {
		return m.deleteList(ctx, sess, res, iq, l.Name, q)
	}
	if err := m.lists.UpsertList(ctx, owner, l); err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	// refresh active copies
	for _, r := range sess.Resources() {
		if r.ActiveList != nil && r.ActiveList.Name == l.Name {
			r.ActiveList = l.Copy()
		}
	}
	q.Push(xmpputil.MakeResultIQ(iq, nil))
	pushList(sess, l.Name, q)

	level.Info(m.logger).Log("msg", "privacy list updated", "jid", res.JID.String(), "list", l.Name, "rules_count", len(l.Rules))
	return nil
}

func (m *Privacy) deleteList(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, name string, q *router.Queue) error {
	owner := sess.JID()

	l, err := m.lists.GetList(ctx, owner, name)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	if l == nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.ItemNotFound))
		return nil
	}
	defName, err := m.lists.DefaultListName(ctx, owner)
	if err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	if defName == name || activeInOthers(sess, res, name) {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.Conflict))
		return nil
	}
	if err := m.lists.DeleteList(ctx, owner, name); err != nil {
		q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	if res.ActiveList != nil && res.ActiveList.Name == name {
		res.ActiveList = nil
	}
	q.Push(xmpputil.MakeResultIQ(iq, nil))
	pushList(sess, name, q)

	level.Info(m.logger).Log("msg", "privacy list deleted", "jid", res.JID.String(), "list", name)
	return nil
}

// usedByOthers tells whether any other resource is filtered by the named default list.
func usedByOthers(sess *c2s.Session, res *c2s.Resource, defName string) bool {
	for _, r := range sess.OtherResources(res.JID.Resource()) {
		if r.ActiveList == nil || r.ActiveList.Name == defName {
			return true
		}
	}
	return false
}

func activeInOthers(sess *c2s.Session, res *c2s.Resource, name string) bool {
	for _, r := range sess.OtherResources(res.JID.Resource()) {
		if r.ActiveList != nil && r.ActiveList.Name == name {
			return true
		}
	}
	return false
}

func pushList(sess *c2s.Session, name string, q *router.Queue) {
	for _, r := range sess.Resources() {
		iq, _ := stravaganza.NewIQBuilder().
			WithAttribute(stravaganza.ID, uuid.New().String()).
			WithAttribute(stravaganza.From, r.JID.ToBareJID().String()).
			WithAttribute(stravaganza.To, r.JID.String()).
			WithAttribute(stravaganza.Type, stravaganza.SetType).
			WithChild(newQuery(namedElement("list", name))).
			BuildIQ()
		q.Push(iq)
	}
}

func newQuery(children ...stravaganza.Element) stravaganza.Element {
	return stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, privacyNamespace).
		WithChildren(children...).
		Build()
}

func namedElement(name, value string) stravaganza.Element {
	return stravaganza.NewBuilder(name).
		WithAttribute("name", value).
		Build()
}

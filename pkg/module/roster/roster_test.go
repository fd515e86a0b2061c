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
	"fmt"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/presence"
	rosterstore "github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/router"
	memoryrepository "github.com/ortuman/jackal-presence/pkg/storage/memory"
	"github.com/ortuman/jackal-presence/pkg/subscription"
	"github.com/stretchr/testify/require"
)

func TestRoster_OutSubscribe(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "c@x", stravaganza.SubscribeType), subscription.OutSubscribe, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"subscribe u@x -> c@x",
		"set u@x -> u@x/yard",
	}, describe(q))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.NotNil(t, itm)
	require.Equal(t, rostermodel.NonePendingOut, itm.Subscription)

	// resending is forwarded but causes no push
	q = &router.Queue{}
	err = r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "c@x", stravaganza.SubscribeType), subscription.OutSubscribe, q)
	require.Nil(t, err)
	require.Equal(t, []string{"subscribe u@x -> c@x"}, describe(q))
}

func TestRoster_OutUnsubscribeRemovesItem(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.To})

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "c@x", stravaganza.UnsubscribeType), subscription.OutUnsubscribe, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"unsubscribe u@x -> c@x",
		"set u@x -> u@x/yard",
	}, describe(q))

	push := q.Stanzas()[1]
	require.Equal(t, "remove", push.Child("query").Child("item").Attribute("subscription"))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Nil(t, itm)
}

func TestRoster_OutUnsubscribeRemovesPendingInItem(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.ToPendingIn})
	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("d@x"), Subscription: rostermodel.Both})

	// when
	q := &router.Queue{}
	err1 := r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "c@x", stravaganza.UnsubscribeType), subscription.OutUnsubscribe, q)
	err2 := r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "d@x", stravaganza.UnsubscribeType), subscription.OutUnsubscribe, q)

	// then
	require.Nil(t, err1)
	require.Nil(t, err2)
	require.Equal(t, []string{
		"unsubscribe u@x -> c@x",
		"set u@x -> u@x/yard",
		"unsubscribe u@x -> d@x",
		"set u@x -> u@x/yard",
	}, describe(q))

	stanzas := q.Stanzas()
	require.Equal(t, "remove", stanzas[1].Child("query").Child("item").Attribute("subscription"))
	require.Equal(t, "from", stanzas[3].Child("query").Child("item").Attribute("subscription"))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Nil(t, itm)

	itm, _ = rst.Get(ctx, sess.JID(), testJID("d@x"))
	require.NotNil(t, itm)
	require.Equal(t, rostermodel.From, itm.Subscription)
}

func TestRoster_OutSubscribedApprovesRequest(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, res := testSession("u@x", "yard")
	res.Presence = testPresence("u@x/yard", "", "")
	res.State = c2s.Available
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.NonePendingIn})

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "c@x", stravaganza.SubscribedType), subscription.OutSubscribed, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"subscribed u@x -> c@x",
		"available u@x/yard -> c@x",
		"set u@x -> u@x/yard",
	}, describe(q))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Equal(t, rostermodel.From, itm.Subscription)
}

func TestRoster_PreApproval(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "c@x", stravaganza.SubscribedType), subscription.OutSubscribed, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{"set u@x -> u@x/yard"}, describe(q))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.True(t, itm.PreApproved)
	require.Equal(t, rostermodel.None, itm.Subscription)

	// pre-approved request is answered on the user's behalf
	q = &router.Queue{}
	err = r.ProcessPresence(ctx, sess, testPresence("c@x", "u@x", stravaganza.SubscribeType), subscription.InSubscribe, q)
	require.Nil(t, err)
	require.Equal(t, []string{
		"subscribed u@x -> c@x",
		"set u@x -> u@x/yard",
	}, describe(q))

	itm, _ = rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.False(t, itm.PreApproved)
	require.Equal(t, rostermodel.From, itm.Subscription)
}

func TestRoster_InSubscribeAlreadySubscribed(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.Both})

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("c@x/home", "u@x", stravaganza.SubscribeType), subscription.InSubscribe, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{"subscribed u@x -> c@x"}, describe(q))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Equal(t, rostermodel.Both, itm.Subscription)
}

func TestRoster_InSubscribeForwardedToClient(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, res := testSession("u@x", "yard")
	res.Presence = testPresence("u@x/yard", "", "")
	res.State = c2s.Available
	ctx := context.Background()

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("c@x", "u@x", stravaganza.SubscribeType), subscription.InSubscribe, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"subscribe c@x -> u@x/yard",
		"set u@x -> u@x/yard",
	}, describe(q))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Equal(t, rostermodel.NonePendingIn, itm.Subscription)
}

func TestRoster_AutoAuthorize(t *testing.T) {
	cfg := Config{
		AutoAuthorize: AutoAuthorizeConfig{
			Global: true,
			Domains: map[string]string{
				"y": AutoAuthorizeOff,
				"z": AutoAuthorizeGlobal,
			},
		},
	}
	r, rst := newTestRoster(cfg, rosterstore.Config{})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	require.True(t, r.isAutoAuthorized("x"))
	require.False(t, r.isAutoAuthorized("y"))
	require.True(t, r.isAutoAuthorized("z"))

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("c@x", "u@x", stravaganza.SubscribeType), subscription.InSubscribe, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"subscribed u@x -> c@x",
		"set u@x -> u@x/yard",
		"probe u@x -> c@x",
	}, describe(q))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Equal(t, rostermodel.Both, itm.Subscription)

	// domain override disables auto authorization
	q = &router.Queue{}
	err = r.ProcessPresence(ctx, sess, testPresence("c@y", "u@x", stravaganza.SubscribeType), subscription.InSubscribe, q)
	require.Nil(t, err)
	require.Equal(t, []string{"set u@x -> u@x/yard"}, describe(q))

	itm, _ = rst.Get(ctx, sess.JID(), testJID("c@y"))
	require.Equal(t, rostermodel.NonePendingIn, itm.Subscription)
}

func TestRoster_InSubscribedDelayed(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, res := testSession("u@x", "yard")
	res.Presence = testPresence("u@x/yard", "", "")
	res.State = c2s.Available
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.NonePendingOut})

	pr, _ := stravaganza.NewBuilderFromElement(testPresence("c@x", "u@x", stravaganza.SubscribedType)).
		WithChild(
			stravaganza.NewBuilder("delay").
				WithAttribute(stravaganza.Namespace, "urn:xmpp:delay").
				WithAttribute("stamp", "2022-01-01T00:00:00Z").
				Build(),
		).
		BuildPresence()

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, pr, subscription.InSubscribed, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"subscribed c@x -> u@x/yard",
		"set u@x -> u@x/yard",
		"probe u@x -> c@x",
	}, describe(q))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Equal(t, rostermodel.To, itm.Subscription)
}

func TestRoster_InboundWithoutChange(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.None})

	// when
	q := &router.Queue{}
	err1 := r.ProcessPresence(ctx, sess, testPresence("c@x", "u@x", stravaganza.UnsubscribedType), subscription.InUnsubscribed, q)
	err2 := r.ProcessPresence(ctx, sess, testPresence("d@x", "u@x", stravaganza.SubscribedType), subscription.InSubscribed, q)

	// then
	require.Nil(t, err1)
	require.Nil(t, err2)
	require.Equal(t, 0, q.Len())
}

func TestRoster_LimitReached(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{MaxItems: 1})
	sess, _ := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("a@x"), Subscription: rostermodel.Both})

	// when
	q := &router.Queue{}
	err := r.ProcessPresence(ctx, sess, testPresence("u@x/yard", "c@x", stravaganza.SubscribeType), subscription.OutSubscribe, q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{"error c@x -> u@x/yard"}, describe(q))
	require.NotNil(t, q.Stanzas()[0].Child("error").Child("policy-violation"))

	itm, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Nil(t, itm)
}

func TestRoster_GetRoster(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, res := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("a@x"), Subscription: rostermodel.Both, Groups: []string{"VIP"}})
	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("b@x"), Subscription: rostermodel.To})
	ver, _ := rst.Version(ctx, sess.JID())

	// when
	q := &router.Queue{}
	err := r.ProcessIQ(ctx, sess, res, testRosterIQ(stravaganza.GetType, "", nil), q)

	// then
	require.Nil(t, err)
	require.True(t, res.RosterRequested)
	require.Equal(t, []string{"result u@x -> u@x/yard"}, describe(q))

	query := q.Stanzas()[0].ChildNamespace("query", rosterNamespace)
	require.NotNil(t, query)
	require.Equal(t, ver, query.Attribute("ver"))
	require.Len(t, query.Children("item"), 2)

	// up to date
	q = &router.Queue{}
	err = r.ProcessIQ(ctx, sess, res, testRosterIQ(stravaganza.GetType, ver, nil), q)
	require.Nil(t, err)
	require.Equal(t, 1, q.Len())
	require.Len(t, q.Stanzas()[0].AllChildren(), 0)
}

func TestRoster_SetItem(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, res := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.Both})

	itm := stravaganza.NewBuilder("item").
		WithAttribute("jid", "c@x").
		WithAttribute("name", "Romeo").
		WithChild(stravaganza.NewBuilder("group").WithText("Friends").Build()).
		Build()

	// when
	q := &router.Queue{}
	err := r.ProcessIQ(ctx, sess, res, testRosterIQ(stravaganza.SetType, "", itm), q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"set u@x -> u@x/yard",
		"result u@x -> u@x/yard",
	}, describe(q))

	stored, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Equal(t, "Romeo", stored.Name)
	require.Equal(t, []string{"Friends"}, stored.Groups)
	require.Equal(t, rostermodel.Both, stored.Subscription)
}

func TestRoster_RemoveItem(t *testing.T) {
	// given
	r, rst := newTestRoster(Config{}, rosterstore.Config{})
	sess, res := testSession("u@x", "yard")
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.Both})

	itm := stravaganza.NewBuilder("item").
		WithAttribute("jid", "c@x").
		WithAttribute("subscription", "remove").
		Build()

	// when
	q := &router.Queue{}
	err := r.ProcessIQ(ctx, sess, res, testRosterIQ(stravaganza.SetType, "", itm), q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"unsubscribe u@x -> c@x",
		"unsubscribed u@x -> c@x",
		"set u@x -> u@x/yard",
		"result u@x -> u@x/yard",
	}, describe(q))

	stored, _ := rst.Get(ctx, sess.JID(), testJID("c@x"))
	require.Nil(t, stored)

	// unknown item
	q = &router.Queue{}
	err = r.ProcessIQ(ctx, sess, res, testRosterIQ(stravaganza.SetType, "", itm), q)
	require.Nil(t, err)
	require.Equal(t, 1, q.Len())
	require.NotNil(t, q.Stanzas()[0].Child("error").Child("item-not-found"))
}

func TestRoster_SetMalformed(t *testing.T) {
	// given
	r, _ := newTestRoster(Config{}, rosterstore.Config{})
	sess, res := testSession("u@x", "yard")

	itm := stravaganza.NewBuilder("item").
		WithAttribute("jid", "c@x").
		WithChild(stravaganza.NewBuilder("group").WithText("A").Build()).
		WithChild(stravaganza.NewBuilder("group").WithText("A").Build()).
		Build()

	// when
	q := &router.Queue{}
	err := r.ProcessIQ(context.Background(), sess, res, testRosterIQ(stravaganza.SetType, "", itm), q)

	// then
	require.Nil(t, err)
	require.Equal(t, 1, q.Len())
	require.NotNil(t, q.Stanzas()[0].Child("error").Child("bad-request"))
}

func newTestRoster(cfg Config, rstCfg rosterstore.Config) (*Roster, rosterstore.Store) {
	rst := rosterstore.NewStore(rstCfg, memoryrepository.New(), nil, kitlog.NewNopLogger())
	bc := presence.NewBroadcaster(presence.Config{}, rst, nil, nil, kitlog.NewNopLogger())
	return New(cfg, rst, bc, kitlog.NewNopLogger()), rst
}

func testSession(owner string, resources ...string) (*c2s.Session, *c2s.Resource) {
	var sess *c2s.Session
	var first *c2s.Resource

	ownerJID := testJID(owner)
	_ = c2s.NewManager(16).Do(context.Background(), ownerJID, func(s *c2s.Session) error {
		for _, r := range resources {
			full, _ := jid.New(ownerJID.Node(), ownerJID.Domain(), r, true)
			res, _ := s.Bind(full)
			if first == nil {
				first = res
			}
		}
		sess = s
		return nil
	})
	return sess, first
}

func testJID(s string) *jid.JID {
	j, _ := jid.NewWithString(s, true)
	return j
}

func testPresence(from, to, typ string) *stravaganza.Presence {
	if len(to) == 0 {
		to = testJID(from).ToBareJID().String()
	}
	b := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, from).
		WithAttribute(stravaganza.To, to)
	if len(typ) > 0 {
		b.WithAttribute(stravaganza.Type, typ)
	}
	pr, _ := b.BuildPresence()
	return pr
}

func testRosterIQ(typ, ver string, item stravaganza.Element) *stravaganza.IQ {
	qb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, rosterNamespace)
	if len(ver) > 0 {
		qb.WithAttribute("ver", ver)
	}
	if item != nil {
		qb.WithChild(item)
	}
	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.ID, "roster_1").
		WithAttribute(stravaganza.From, "u@x/yard").
		WithAttribute(stravaganza.To, "u@x").
		WithAttribute(stravaganza.Type, typ).
		WithChild(qb.Build()).
		BuildIQ()
	return iq
}

func describe(q *router.Queue) []string {
	var ret []string
	for _, s := range q.Stanzas() {
		typ := s.Attribute(stravaganza.Type)
		if len(typ) == 0 {
			typ = "available"
		}
		ret = append(ret, fmt.Sprintf("%s %s -> %s", typ, s.Attribute(stravaganza.From), s.Attribute(stravaganza.To)))
	}
	return ret
}

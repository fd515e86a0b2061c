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
	"fmt"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	rostermodel "github.com/ortuman/jackal-presence/pkg/model/roster"
	"github.com/ortuman/jackal-presence/pkg/privacy"
	"github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/router"
	memoryrepository "github.com/ortuman/jackal-presence/pkg/storage/memory"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
	"github.com/stretchr/testify/require"
)

func TestBlockList_GetBlockList(t *testing.T) {
	// given
	bl, blocker, _ := newTestBlockList()
	sess, res := testSession("u@x", "yard")
	ctx := context.Background()

	_, _ = blocker.Block(ctx, sess.JID(), []*jid.JID{testJID("noelia@jackal.im"), testJID("jabber.org")})

	// when
	q := &router.Queue{}
	err := bl.ProcessIQ(ctx, sess, res, testIQ(stravaganza.GetType, "blocklist"), q)

	// then
	require.Nil(t, err)
	require.True(t, res.BlockListRequested)
	require.Equal(t, 1, q.Len())

	blElem := q.Stanzas()[0].ChildNamespace("blocklist", xmpputil.BlockingNamespace)
	require.NotNil(t, blElem)

	items := blElem.Children("item")
	require.Len(t, items, 2)
	require.Equal(t, "noelia@jackal.im", items[0].Attribute("jid"))
	require.Equal(t, "jabber.org", items[1].Attribute("jid"))
}

func TestBlockList_BlockAndUnblock(t *testing.T) {
	// given
	bl, blocker, rst := newTestBlockList()
	sess, res := testSession("u@x", "yard")
	res.Presence = testAvailable("u@x/yard")
	res.State = c2s.Available
	res.BlockListRequested = true
	ctx := context.Background()

	_ = rst.Upsert(ctx, sess.JID(), &rostermodel.Item{JID: testJID("c@x"), Subscription: rostermodel.Both})

	// when
	q := &router.Queue{}
	err := bl.ProcessIQ(ctx, sess, res, testIQ(stravaganza.SetType, "block", "c@x"), q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"result u@x -> u@x/yard",
		"set u@x -> u@x/yard",
		"unavailable u@x/yard -> c@x",
		"unavailable c@x -> u@x/yard",
	}, describe(q))

	pkts := q.Packets()
	require.False(t, pkts[1].Bypass)
	require.True(t, pkts[2].Bypass)
	require.True(t, pkts[3].Bypass)

	blocked, _ := blocker.BlockedJIDs(ctx, sess.JID())
	require.Equal(t, []string{"c@x"}, blocked)

	// blocking twice is a no-op
	q = &router.Queue{}
	err = bl.ProcessIQ(ctx, sess, res, testIQ(stravaganza.SetType, "block", "c@x"), q)
	require.Nil(t, err)
	require.Equal(t, []string{"result u@x -> u@x/yard"}, describe(q))

	// unblock all
	q = &router.Queue{}
	err = bl.ProcessIQ(ctx, sess, res, testIQ(stravaganza.SetType, "unblock"), q)
	require.Nil(t, err)
	require.Equal(t, []string{
		"result u@x -> u@x/yard",
		"set u@x -> u@x/yard",
		"available u@x/yard -> c@x",
		"probe u@x -> c@x",
	}, describe(q))

	unblock := q.Stanzas()[1].ChildNamespace("unblock", xmpputil.BlockingNamespace)
	require.NotNil(t, unblock)
	require.Len(t, unblock.Children("item"), 0)

	blocked, _ = blocker.BlockedJIDs(ctx, sess.JID())
	require.Len(t, blocked, 0)
}

func TestBlockList_PushOnlyToInterestedResources(t *testing.T) {
	// given
	bl, _, _ := newTestBlockList()
	sess, res := testSession("u@x", "balcony", "yard")
	ctx := context.Background()

	yard, _ := sess.Resource("yard")
	yard.BlockListRequested = true

	// when
	q := &router.Queue{}
	err := bl.ProcessIQ(ctx, sess, res, testIQ(stravaganza.SetType, "block", "c@x"), q)

	// then
	require.Nil(t, err)
	require.Equal(t, []string{
		"result u@x -> u@x/yard",
		"set u@x -> u@x/yard",
	}, describe(q))
}

func TestBlockList_InvalidRequests(t *testing.T) {
	// given
	bl, _, _ := newTestBlockList()
	sess, res := testSession("u@x", "yard")
	ctx := context.Background()

	// when
	q := &router.Queue{}
	err1 := bl.ProcessIQ(ctx, sess, res, testIQ(stravaganza.SetType, "block"), q)
	err2 := bl.ProcessIQ(ctx, sess, res, testIQ(stravaganza.SetType, "blocklist"), q)

	// then
	require.Nil(t, err1)
	require.Nil(t, err2)

	stanzas := q.Stanzas()
	require.Len(t, stanzas, 2)
	require.NotNil(t, stanzas[0].Child("error").Child("bad-request"))
	require.NotNil(t, stanzas[1].Child("error").Child("bad-request"))
}

func newTestBlockList() (*BlockList, *privacy.Blocker, roster.Store) {
	rep := memoryrepository.New()
	rst := roster.NewStore(roster.Config{}, rep, nil, kitlog.NewNopLogger())
	blocker := privacy.NewBlocker(privacy.NewListStore(rep, nil), nil)
	return New(blocker, rst, kitlog.NewNopLogger()), blocker, rst
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

func testAvailable(from string) *stravaganza.Presence {
	j, _ := jid.NewWithString(from, true)
	pr, _ := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, from).
		WithAttribute(stravaganza.To, j.ToBareJID().String()).
		BuildPresence()
	return pr
}

func testIQ(typ, name string, jids ...string) *stravaganza.IQ {
	b := stravaganza.NewBuilder(name).
		WithAttribute(stravaganza.Namespace, xmpputil.BlockingNamespace)
	for _, j := range jids {
		b.WithChild(
			stravaganza.NewBuilder("item").
				WithAttribute("jid", j).
				Build(),
		)
	}
	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.ID, "block_1").
		WithAttribute(stravaganza.From, "u@x/yard").
		WithAttribute(stravaganza.To, "u@x").
		WithAttribute(stravaganza.Type, typ).
		WithChild(b.Build()).
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

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

	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	"github.com/ortuman/jackal-presence/pkg/cluster/instance"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
	"github.com/ortuman/jackal-presence/pkg/router"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
)

// Filter applies sess privacy lists to every packet of q and returns the packets allowed to leave the session.
//
// Packets addressed to the session owner are evaluated as inbound using the target resource active list,
// any other one as outbound using the sending resource active list. Resources with no active list fall
// back to the owner's default list. Bypass packets are always kept. Denied presences are dropped, while denied message and iq requests
// are answered with a single error per logical stanza.
func (e *Evaluator) Filter(ctx context.Context, sess *c2s.Session, q *router.Queue) *router.Queue {
	owner := sess.JID()

	var defList *privacymodel.List
	var defLoaded bool
	defaultList := func() *privacymodel.List {
		if defLoaded {
			return defList
		}
		defLoaded = true

		l, err := e.DefaultList(ctx, owner)
		if err != nil {
			level.Warn(e.logger).Log("msg", "failed to fetch default privacy list", "jid", owner.String(), "err", err)
			return nil
		}
		defList = l
		return defList
	}
	listFor := func(resJID *jid.JID) *privacymodel.List {
		if resJID != nil && resJID.MatchesWithOptions(owner, jid.MatchesBare) && len(resJID.Resource()) > 0 {
			if res, st := sess.Resource(resJID.Resource()); st == c2s.Authorized && res.ActiveList != nil {
				return res.ActiveList
			}
		}
		return defaultList()
	}

	out := &router.Queue{}
	replied := make(map[string]struct{})

	for _, p := range q.Packets() {
		s := p.Stanza
		if p.Bypass {
			out.PushWithPriority(s, p.Priority)
			continue
		}
		dir := Outbound
		resJID := s.FromJID()
		if to := s.ToJID(); to != nil && to.MatchesWithOptions(owner, jid.MatchesBare) {
			dir = Inbound
			resJID = to
		}
		if e.Allowed(ctx, owner, s, dir, listFor(resJID)) {
			out.PushWithPriority(s, p.Priority)
			continue
		}
		deniedStanzas.WithLabelValues(instance.ID(), s.Name(), dir.String()).Inc()

		if !requiresErrorReply(s) {
			continue
		}
		key := replyKey(s)
		if _, ok := replied[key]; ok {
			continue
		}
		replied[key] = struct{}{}

		if dir == Outbound {
			out.Push(xmpputil.MakeBlockedErrorStanza(s))
		} else {
			out.Push(xmpputil.MakeErrorStanza(s, stanzaerror.ServiceUnavailable))
		}
	}
	return out
}

func requiresErrorReply(s stravaganza.Stanza) bool {
	typ := s.Attribute(stravaganza.Type)
	switch s.Name() {
	case "message":
		return typ != stravaganza.ErrorType
	case "iq":
		return typ == stravaganza.GetType || typ == stravaganza.SetType
	}
	return false
}

func replyKey(s stravaganza.Stanza) string {
	key := s.Name() + "|" + s.Attribute(stravaganza.From) + "|" + s.Attribute(stravaganza.ID)
	if len(s.Attribute(stravaganza.ID)) == 0 {
		if to := s.ToJID(); to != nil {
			key += "|" + to.ToBareJID().String()
		}
	}
	return key
}

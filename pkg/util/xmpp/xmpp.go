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

package xmpputil

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const (
	delayNamespace   = "urn:xmpp:delay"
	stanzasNamespace = "urn:ietf:params:xml:ns:xmpp-stanzas"

	// BlockingNamespace is the XEP-0191 protocol namespace.
	BlockingNamespace = "urn:xmpp:blocking"

	// BlockingErrorsNamespace qualifies the application error attached to stanzas rejected by a block.
	BlockingErrorsNamespace = "urn:xmpp:blocking:errors"
)

// ErrMissingAddress is returned when a stanza is requested without a sender or recipient.
var ErrMissingAddress = errors.New("xmpputil: stanza requires from and to addresses")

// MakeResultIQ creates a new result stanza derived from iq.
func MakeResultIQ(iq *stravaganza.IQ, queryChild stravaganza.Element) *stravaganza.IQ {
	b := iq.ResultBuilder()
	if queryChild != nil {
		b.WithChild(queryChild)
	}
	resIQ, _ := b.BuildIQ()
	return resIQ
}

// MakePresence creates presence of type typ using fromJID and toJID addresses.
// An empty typ builds an available presence.
func MakePresence(fromJID, toJID *jid.JID, typ string, children []stravaganza.Element) (*stravaganza.Presence, error) {
	if fromJID == nil || toJID == nil {
		return nil, ErrMissingAddress
	}
	b := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, fromJID.String()).
		WithAttribute(stravaganza.To, toJID.String()).
		WithChildren(children...)
	if len(typ) > 0 {
		b.WithAttribute(stravaganza.Type, typ)
	}
	return b.BuildPresence()
}

// MakeErrorStanza creates an error stanza using errReason as reason.
func MakeErrorStanza(stanza stravaganza.Stanza, errReason stanzaerror.Reason) stravaganza.Stanza {
	errStanza, _ := stanzaerror.E(errReason, stanza).
		Stanza(false)
	return errStanza
}

// MakeErrorStanzaWithApplicationElement creates an error stanza using errReason as reason.
func MakeErrorStanzaWithApplicationElement(stanza stravaganza.Stanza, applicationElement stravaganza.Element, errReason stanzaerror.Reason) stravaganza.Stanza {
	se := stanzaerror.E(errReason, stanza)
	se.ApplicationElement = applicationElement

	errStanza, _ := se.Stanza(false)
	return errStanza
}

// MakePolicyViolationErrorStanza creates a modify policy-violation error stanza derived from stanza.
func MakePolicyViolationErrorStanza(stanza stravaganza.Stanza) stravaganza.Stanza {
	errEl := stravaganza.NewBuilder("error").
		WithAttribute("code", "406").
		WithAttribute(stravaganza.Type, "modify").
		WithChild(
			stravaganza.NewBuilder("policy-violation").
				WithAttribute(stravaganza.Namespace, stanzasNamespace).
				Build(),
		).
		Build()

	errStanza, _ := stravaganza.NewBuilderFromElement(stanza).
		WithAttribute(stravaganza.Type, stravaganza.ErrorType).
		WithAttribute(stravaganza.From, stanza.Attribute(stravaganza.To)).
		WithAttribute(stravaganza.To, stanza.Attribute(stravaganza.From)).
		WithChild(errEl).
		BuildStanza()
	return errStanza
}

// MakeBlockedErrorStanza creates a not-acceptable error stanza carrying the blocking application condition.
func MakeBlockedErrorStanza(stanza stravaganza.Stanza) stravaganza.Stanza {
	return MakeErrorStanzaWithApplicationElement(
		stanza,
		stravaganza.NewBuilder("blocked").
			WithAttribute(stravaganza.Namespace, BlockingErrorsNamespace).
			Build(),
		stanzaerror.NotAcceptable,
	)
}

// MakeRosterPushIQ creates a roster push set IQ addressed to a user resource.
// ver is only included when non-empty.
func MakeRosterPushIQ(to *jid.JID, item stravaganza.Element, ver string) *stravaganza.IQ {
	qb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, "jabber:iq:roster").
		WithChild(item)
	if len(ver) > 0 {
		qb.WithAttribute("ver", ver)
	}
	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithAttribute(stravaganza.From, to.ToBareJID().String()).
		WithAttribute(stravaganza.To, to.String()).
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithChild(qb.Build()).
		BuildIQ()
	return iq
}

// MakeBlockingPushIQ creates a block or unblock push set IQ addressed to a user resource.
// An empty jids slice represents an unblock-all push.
func MakeBlockingPushIQ(to *jid.JID, name string, jids []string) *stravaganza.IQ {
	b := stravaganza.NewBuilder(name).
		WithAttribute(stravaganza.Namespace, BlockingNamespace)
	for _, j := range jids {
		b.WithChild(
			stravaganza.NewBuilder("item").
				WithAttribute("jid", j).
				Build(),
		)
	}
	iq, _ := stravaganza.NewIQBuilder().
		WithAttribute(stravaganza.ID, uuid.New().String()).
		WithAttribute(stravaganza.From, to.ToBareJID().String()).
		WithAttribute(stravaganza.To, to.String()).
		WithAttribute(stravaganza.Type, stravaganza.SetType).
		WithChild(b.Build()).
		BuildIQ()
	return iq
}

// IsDelayed tells whether stanza carries a delayed delivery element.
func IsDelayed(stanza stravaganza.Stanza) bool {
	return stanza.ChildNamespace("delay", delayNamespace) != nil
}

// WithAddresses returns a copy of stanza with its from and to attributes replaced.
// A nil address keeps the original attribute value. The returned stanza keeps the
// concrete type of the original one.
func WithAddresses(stanza stravaganza.Stanza, from, to *jid.JID) (stravaganza.Stanza, error) {
	b := stravaganza.NewBuilderFromElement(stanza)
	if from != nil {
		b.WithAttribute(stravaganza.From, from.String())
	}
	if to != nil {
		b.WithAttribute(stravaganza.To, to.String())
	}
	switch stanza.(type) {
	case *stravaganza.Presence:
		pr, err := b.BuildPresence()
		if err != nil {
			return nil, err
		}
		return pr, nil
	case *stravaganza.Message:
		msg, err := b.BuildMessage()
		if err != nil {
			return nil, err
		}
		return msg, nil
	case *stravaganza.IQ:
		iq, err := b.BuildIQ()
		if err != nil {
			return nil, err
		}
		return iq, nil
	}
	return b.BuildStanza()
}

// PresenceWithAddresses is like WithAddresses but operating over presence stanzas.
func PresenceWithAddresses(pr *stravaganza.Presence, from, to *jid.JID) (*stravaganza.Presence, error) {
	s, err := WithAddresses(pr, from, to)
	if err != nil {
		return nil, err
	}
	return s.(*stravaganza.Presence), nil
}

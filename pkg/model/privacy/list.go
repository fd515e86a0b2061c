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

package privacymodel

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/model"
)

// Namespace defines privacy lists namespace.
const Namespace = "jabber:iq:privacy"

// ErrMalformedList is returned when a privacy list element cannot be decoded.
var ErrMalformedList = errors.New("privacymodel: malformed list")

var _ model.Codec = (*List)(nil)

// MatchKind represents the way a rule selects its target entities.
type MatchKind uint8

const (
	// MatchAll matches every entity. It's the fall-through rule.
	MatchAll MatchKind = iota

	// MatchJID matches by full, bare or domain JID depending on the rule value shape.
	MatchJID

	// MatchGroup matches contacts belonging to a roster group.
	MatchGroup

	// MatchSubscription matches contacts by subscription bucket.
	MatchSubscription
)

// String satisfies fmt.Stringer interface.
func (k MatchKind) String() string {
	switch k {
	case MatchJID:
		return "jid"
	case MatchGroup:
		return "group"
	case MatchSubscription:
		return "subscription"
	default:
		return ""
	}
}

// Action represents the rule outcome.
type Action uint8

const (
	// Allow lets the stanza through.
	Allow Action = iota

	// Deny blocks the stanza.
	Deny
)

// String satisfies fmt.Stringer interface.
func (a Action) String() string {
	if a == Deny {
		return "deny"
	}
	return "allow"
}

// StanzaKind identifies the traffic a rule applies to.
type StanzaKind uint8

const (
	// Message applies to message stanzas.
	Message StanzaKind = 1 << iota

	// IQ applies to iq stanzas.
	IQ

	// PresenceIn applies to inbound presence.
	PresenceIn

	// PresenceOut applies to outbound presence.
	PresenceOut

	// AllKinds applies to any stanza.
	AllKinds = Message | IQ | PresenceIn | PresenceOut
)

var kindElements = []struct {
	kind StanzaKind
	name string
}{
	{Message, "message"},
	{IQ, "iq"},
	{PresenceIn, "presence-in"},
	{PresenceOut, "presence-out"},
}

// Names returns the element names of the kinds contained in k.
func (k StanzaKind) Names() []string {
	var names []string
	for _, ke := range kindElements {
		if k&ke.kind != 0 {
			names = append(names, ke.name)
		}
	}
	return names
}

// ParseStanzaKind returns the stanza kind identified by its element name.
func ParseStanzaKind(name string) (StanzaKind, error) {
	for _, ke := range kindElements {
		if ke.name == name {
			return ke.kind, nil
		}
	}
	return 0, fmt.Errorf("privacymodel: unrecognized stanza kind: %s", name)
}

// Rule represents a single privacy list item.
type Rule struct {
	Kind      MatchKind
	Value     string
	Action    Action
	AppliesTo StanzaKind
	Order     uint32
}

// Applies tells whether the rule applies to a given stanza kind. A rule with no kinds applies to all of them.
func (r Rule) Applies(kind StanzaKind) bool {
	return r.AppliesTo == 0 || r.AppliesTo&kind != 0
}

// IsBlockingRule tells whether the rule is a blocking command rule.
func (r Rule) IsBlockingRule() bool {
	return r.Kind == MatchJID && r.Action == Deny && (r.AppliesTo == 0 || r.AppliesTo == AllKinds)
}

// List represents a named and ordered privacy list.
type List struct {
	Name  string
	Rules []Rule
}

// Copy returns a deep copy of the list.
func (l *List) Copy() *List {
	return &List{
		Name:  l.Name,
		Rules: append([]Rule(nil), l.Rules...),
	}
}

// Sort sorts list rules by ascending order.
func (l *List) Sort() {
	sort.SliceStable(l.Rules, func(i, j int) bool { return l.Rules[i].Order < l.Rules[j].Order })
}

// Renumber assigns dense orders to the list rules preserving their relative position.
func (l *List) Renumber() {
	l.Sort()
	for i := range l.Rules {
		l.Rules[i].Order = uint32(i)
	}
}

// Element returns the list XML representation.
func (l *List) Element() stravaganza.Element {
	b := stravaganza.NewBuilder("list").
		WithAttribute("name", l.Name)
	for _, r := range l.Rules {
		ib := stravaganza.NewBuilder("item").
			WithAttribute("action", r.Action.String()).
			WithAttribute("order", strconv.FormatUint(uint64(r.Order), 10))
		if r.Kind != MatchAll {
			ib.WithAttribute("type", r.Kind.String())
			ib.WithAttribute("value", r.Value)
		}
		if r.AppliesTo != 0 && r.AppliesTo != AllKinds {
			for _, ke := range kindElements {
				if r.AppliesTo&ke.kind != 0 {
					ib.WithChild(stravaganza.NewBuilder(ke.name).Build())
				}
			}
		}
		b.WithChild(ib.Build())
	}
	return b.Build()
}

// NewListFromElement decodes a privacy list element.
func NewListFromElement(elem stravaganza.Element) (*List, error) {
	if elem.Name() != "list" {
		return nil, fmt.Errorf("%w: unexpected element %s", ErrMalformedList, elem.Name())
	}
	l := &List{Name: elem.Attribute("name")}
	if len(l.Name) == 0 {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedList)
	}
	orders := make(map[uint32]struct{})
	for _, item := range elem.Children("item") {
		r, err := ruleFromElement(item)
		if err != nil {
			return nil, err
		}
		if _, ok := orders[r.Order]; ok {
			return nil, fmt.Errorf("%w: duplicated order %d", ErrMalformedList, r.Order)
		}
		orders[r.Order] = struct{}{}
		l.Rules = append(l.Rules, r)
	}
	l.Sort()
	return l, nil
}

func ruleFromElement(elem stravaganza.Element) (Rule, error) {
	var r Rule

	order, err := strconv.ParseUint(elem.Attribute("order"), 10, 32)
	if err != nil {
		return r, fmt.Errorf("%w: invalid order", ErrMalformedList)
	}
	r.Order = uint32(order)

	switch elem.Attribute("action") {
	case "allow":
		r.Action = Allow
	case "deny":
		r.Action = Deny
	default:
		return r, fmt.Errorf("%w: invalid action", ErrMalformedList)
	}
	r.Value = elem.Attribute("value")

	switch typ := elem.Attribute("type"); typ {
	case "":
		r.Kind = MatchAll
		r.Value = ""
	case "jid":
		r.Kind = MatchJID
		if len(r.Value) == 0 {
			return r, fmt.Errorf("%w: empty jid value", ErrMalformedList)
		}
		if _, err := jid.NewWithString(r.Value, false); err != nil {
			return r, fmt.Errorf("%w: invalid jid value", ErrMalformedList)
		}
	case "group":
		r.Kind = MatchGroup
		if len(r.Value) == 0 {
			return r, fmt.Errorf("%w: empty group value", ErrMalformedList)
		}
	case "subscription":
		r.Kind = MatchSubscription
		switch r.Value {
		case "none", "to", "from", "both":
		default:
			return r, fmt.Errorf("%w: invalid subscription value", ErrMalformedList)
		}
	default:
		return r, fmt.Errorf("%w: invalid type %s", ErrMalformedList, typ)
	}
	for _, ke := range kindElements {
		if elem.Child(ke.name) != nil {
			r.AppliesTo |= ke.kind
		}
	}
	return r, nil
}

type ruleRecord struct {
	Kind      uint8  `cbor:"1,keyasint"`
	Value     string `cbor:"2,keyasint,omitempty"`
	Action    uint8  `cbor:"3,keyasint"`
	AppliesTo uint8  `cbor:"4,keyasint,omitempty"`
	Order     uint32 `cbor:"5,keyasint"`
}

type listRecord struct {
	Name  string       `cbor:"1,keyasint"`
	Rules []ruleRecord `cbor:"2,keyasint,omitempty"`
}

// MarshalBinary satisfies encoding.BinaryMarshaler interface.
func (l *List) MarshalBinary() ([]byte, error) {
	rec := listRecord{Name: l.Name}
	for _, r := range l.Rules {
		rec.Rules = append(rec.Rules, ruleRecord{
			Kind:      uint8(r.Kind),
			Value:     r.Value,
			Action:    uint8(r.Action),
			AppliesTo: uint8(r.AppliesTo),
			Order:     r.Order,
		})
	}
	return cbor.Marshal(&rec)
}

// UnmarshalBinary satisfies encoding.BinaryUnmarshaler interface.
func (l *List) UnmarshalBinary(data []byte) error {
	var rec listRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return err
	}
	*l = List{Name: rec.Name}
	for _, r := range rec.Rules {
		l.Rules = append(l.Rules, Rule{
			Kind:      MatchKind(r.Kind),
			Value:     r.Value,
			Action:    Action(r.Action),
			AppliesTo: StanzaKind(r.AppliesTo),
			Order:     r.Order,
		})
	}
	l.Sort()
	return nil
}

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

package rostermodel

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/protobuf/proto"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/model"
)

// Namespace defines roster namespace.
const Namespace = "jabber:iq:roster"

// ErrMalformedItem is returned when a roster item element cannot be decoded.
var ErrMalformedItem = errors.New("rostermodel: malformed item")

var _ model.Codec = (*Item)(nil)

// Item represents a roster item entity.
type Item struct {
	JID            *jid.JID
	Name           string
	Subscription   Subscription
	Groups         []string
	Online         bool
	LastSeen       time.Time
	PresenceSent   bool
	PreApproved    bool
	CustomChildren []stravaganza.Element
}

// Copy returns a deep copy of the item.
func (i *Item) Copy() *Item {
	cp := *i
	if i.JID != nil {
		j := *i.JID
		cp.JID = &j
	}
	cp.Groups = append([]string(nil), i.Groups...)
	cp.CustomChildren = append([]stravaganza.Element(nil), i.CustomChildren...)
	return &cp
}

// Key returns the key under which the item is stored.
func (i *Item) Key() string {
	return i.JID.ToBareJID().String()
}

// HasGroup tells whether the item belongs to the given group.
func (i *Item) HasGroup(group string) bool {
	for _, g := range i.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Element returns the item XML representation as it is sent to clients.
func (i *Item) Element() stravaganza.Element {
	sub, ask := i.Subscription.Attributes()
	b := stravaganza.NewBuilder("item").
		WithAttribute("jid", i.JID.ToBareJID().String()).
		WithAttribute("subscription", sub)
	if len(i.Name) > 0 {
		b.WithAttribute("name", i.Name)
	}
	if ask {
		b.WithAttribute("ask", "subscribe")
	}
	if i.PreApproved {
		b.WithAttribute("approved", "true")
	}
	groups := append([]string(nil), i.Groups...)
	sort.Strings(groups)
	for _, group := range groups {
		b.WithChild(
			stravaganza.NewBuilder("group").
				WithText(group).
				Build(),
		)
	}
	b.WithChildren(i.CustomChildren...)
	return b.Build()
}

// NewItemFromElement decodes a roster item element sent by a client.
// The only subscription value honored is 'remove', any other one is ignored.
func NewItemFromElement(elem stravaganza.Element) (*Item, error) {
	if elem.Name() != "item" {
		return nil, fmt.Errorf("%w: unexpected element %s", ErrMalformedItem, elem.Name())
	}
	jidStr := elem.Attribute("jid")
	if len(jidStr) == 0 {
		return nil, fmt.Errorf("%w: missing jid attribute", ErrMalformedItem)
	}
	j, err := jid.NewWithString(jidStr, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedItem, err)
	}
	itm := &Item{
		JID:  j.ToBareJID(),
		Name: elem.Attribute("name"),
	}
	if elem.Attribute("subscription") == "remove" {
		itm.Subscription = Remove
	}
	seen := make(map[string]struct{})
	for _, child := range elem.AllChildren() {
		if child.Name() != "group" {
			itm.CustomChildren = append(itm.CustomChildren, child)
			continue
		}
		group := child.Text()
		if len(group) == 0 {
			return nil, fmt.Errorf("%w: empty group name", ErrMalformedItem)
		}
		if _, ok := seen[group]; ok {
			return nil, fmt.Errorf("%w: duplicated group %s", ErrMalformedItem, group)
		}
		seen[group] = struct{}{}
		itm.Groups = append(itm.Groups, group)
	}
	return itm, nil
}

type itemRecord struct {
	JID          string   `cbor:"1,keyasint"`
	Name         string   `cbor:"2,keyasint,omitempty"`
	Subscription uint8    `cbor:"3,keyasint"`
	Groups       []string `cbor:"4,keyasint,omitempty"`
	Online       bool     `cbor:"5,keyasint,omitempty"`
	LastSeen     int64    `cbor:"6,keyasint,omitempty"`
	PresenceSent bool     `cbor:"7,keyasint,omitempty"`
	PreApproved  bool     `cbor:"8,keyasint,omitempty"`
	Children     [][]byte `cbor:"9,keyasint,omitempty"`
}

// MarshalBinary satisfies encoding.BinaryMarshaler interface.
func (i *Item) MarshalBinary() ([]byte, error) {
	if i.Subscription == Remove {
		return nil, errors.New("rostermodel: remove subscription cannot be stored")
	}
	rec := itemRecord{
		JID:          i.JID.String(),
		Name:         i.Name,
		Subscription: uint8(i.Subscription),
		Groups:       i.Groups,
		Online:       i.Online,
		PresenceSent: i.PresenceSent,
		PreApproved:  i.PreApproved,
	}
	if !i.LastSeen.IsZero() {
		rec.LastSeen = i.LastSeen.UnixNano()
	}
	for _, child := range i.CustomChildren {
		b, err := proto.Marshal(child.Proto())
		if err != nil {
			return nil, err
		}
		rec.Children = append(rec.Children, b)
	}
	return cbor.Marshal(&rec)
}

// UnmarshalBinary satisfies encoding.BinaryUnmarshaler interface.
func (i *Item) UnmarshalBinary(data []byte) error {
	var rec itemRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return err
	}
	j, err := jid.NewWithString(rec.JID, true)
	if err != nil {
		return err
	}
	sub := Subscription(rec.Subscription)
	if !sub.IsValid() || sub == Remove {
		return fmt.Errorf("rostermodel: invalid stored subscription %d", rec.Subscription)
	}
	*i = Item{
		JID:          j,
		Name:         rec.Name,
		Subscription: sub,
		Groups:       rec.Groups,
		Online:       rec.Online,
		PresenceSent: rec.PresenceSent,
		PreApproved:  rec.PreApproved,
	}
	if rec.LastSeen != 0 {
		i.LastSeen = time.Unix(0, rec.LastSeen).UTC()
	}
	for _, b := range rec.Children {
		sb, err := stravaganza.NewBuilderFromBinary(b)
		if err != nil {
			return err
		}
		i.CustomChildren = append(i.CustomChildren, sb.Build())
	}
	return nil
}

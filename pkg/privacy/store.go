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

	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/hook"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
	"github.com/pkg/errors"
)

const defaultListKey = "privacy-default"

// ListStore persists user privacy lists and the default list selection.
type ListStore struct {
	rep repository.SessionData
	hk  *hook.Hooks
}

// NewListStore returns a new ListStore instance.
func NewListStore(rep repository.SessionData, hk *hook.Hooks) *ListStore {
	return &ListStore{rep: rep, hk: hk}
}

// ListNames returns all owner's privacy list names in ascending order.
func (s *ListStore) ListNames(ctx context.Context, owner *jid.JID) ([]string, error) {
	names, err := s.rep.GetDataGroups(ctx, ownerKey(owner), repository.PrivacyNamespace)
	if err != nil {
		return nil, errors.Wrap(err, "privacy: failed to fetch list names")
	}
	return names, nil
}

// GetList returns an owner's privacy list. nil is returned if not present.
func (s *ListStore) GetList(ctx context.Context, owner *jid.JID, name string) (*privacymodel.List, error) {
	b, err := s.rep.GetData(ctx, ownerKey(owner), repository.PrivacyNamespace, name)
	if err != nil {
		return nil, errors.Wrapf(err, "privacy: failed to fetch list %s", name)
	}
	if b == nil {
		return nil, nil
	}
	var l privacymodel.List
	if err := l.UnmarshalBinary(b); err != nil {
		return nil, errors.Wrapf(err, "privacy: failed to decode list %s", name)
	}
	return &l, nil
}

// UpsertList stores an owner's privacy list replacing any previous one with the same name.
func (s *ListStore) UpsertList(ctx context.Context, owner *jid.JID, l *privacymodel.List) error {
	b, err := l.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.rep.SetData(ctx, ownerKey(owner), repository.PrivacyNamespace, l.Name, b); err != nil {
		return errors.Wrapf(err, "privacy: failed to store list %s", l.Name)
	}
	return s.notifyChange(ctx, owner, l.Name)
}

// DeleteList removes an owner's privacy list.
func (s *ListStore) DeleteList(ctx context.Context, owner *jid.JID, name string) error {
	if err := s.rep.RemoveData(ctx, ownerKey(owner), repository.PrivacyNamespace, name); err != nil {
		return errors.Wrapf(err, "privacy: failed to delete list %s", name)
	}
	return s.notifyChange(ctx, owner, name)
}

// DefaultListName returns the owner's default list name. Empty string means no default list.
func (s *ListStore) DefaultListName(ctx context.Context, owner *jid.JID) (string, error) {
	b, err := s.rep.GetData(ctx, ownerKey(owner), repository.SettingsNamespace, defaultListKey)
	if err != nil {
		return "", errors.Wrap(err, "privacy: failed to fetch default list name")
	}
	return string(b), nil
}

// SetDefaultListName selects owner's default list. An empty name declines the default list.
func (s *ListStore) SetDefaultListName(ctx context.Context, owner *jid.JID, name string) error {
	var err error
	if len(name) == 0 {
		err = s.rep.RemoveData(ctx, ownerKey(owner), repository.SettingsNamespace, defaultListKey)
	} else {
		err = s.rep.SetData(ctx, ownerKey(owner), repository.SettingsNamespace, defaultListKey, []byte(name))
	}
	if err != nil {
		return errors.Wrap(err, "privacy: failed to store default list name")
	}
	return s.notifyChange(ctx, owner, name)
}

// DefaultList returns owner's default privacy list. nil is returned if none is set.
func (s *ListStore) DefaultList(ctx context.Context, owner *jid.JID) (*privacymodel.List, error) {
	name, err := s.DefaultListName(ctx, owner)
	if err != nil || len(name) == 0 {
		return nil, err
	}
	return s.GetList(ctx, owner, name)
}

func (s *ListStore) notifyChange(ctx context.Context, owner *jid.JID, name string) error {
	if s.hk == nil {
		return nil
	}
	_, err := s.hk.Run(ctx, hook.PrivacyListChanged, &hook.ExecutionContext{
		Info: &hook.UserHookInfo{
			JID:      owner.ToBareJID(),
			ListName: name,
		},
		Sender: s,
	})
	return err
}

func ownerKey(owner *jid.JID) string {
	return owner.ToBareJID().String()
}

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

package module

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	"github.com/ortuman/jackal-presence/pkg/router"
	xmpputil "github.com/ortuman/jackal-presence/pkg/util/xmpp"
)

// Module represents generic module interface.
type Module interface {
	// Name returns specific module name.
	Name() string

	// Start starts module.
	Start(ctx context.Context) error

	// Stop stops module.
	Stop(ctx context.Context) error
}

// IQProcessor represents an iq processor module type.
type IQProcessor interface {
	Module

	// MatchesNamespace tells whether iq child namespace corresponds to this module.
	MatchesNamespace(namespace string) bool

	// ProcessIQ will be invoked whenever an account iq sent by res should be processed by this module.
	// Generated replies and pushes are appended to q.
	ProcessIQ(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, q *router.Queue) error
}

// Modules is the global module hub.
type Modules struct {
	mods         []Module
	iqProcessors []IQProcessor
	logger       kitlog.Logger
}

// NewModules returns a new initialized Modules instance.
func NewModules(mods []Module, logger kitlog.Logger) *Modules {
	m := &Modules{
		mods:   mods,
		logger: logger,
	}
	m.setupModules()
	return m
}

// Start starts modules.
func (m *Modules) Start(ctx context.Context) error {
	for _, mod := range m.mods {
		if err := mod.Start(ctx); err != nil {
			return err
		}
	}
	level.Info(m.logger).Log("msg", "started modules",
		"iq_processors_count", len(m.iqProcessors),
		"mods_count", len(m.mods),
	)
	return nil
}

// Stop stops modules.
func (m *Modules) Stop(ctx context.Context) error {
	for _, mod := range m.mods {
		if err := mod.Stop(ctx); err != nil {
			return err
		}
	}
	level.Info(m.logger).Log("msg", "stopped modules",
		"iq_processors_count", len(m.iqProcessors),
		"mods_count", len(m.mods),
	)
	return nil
}

// IsModuleIQ returns true in case iq stanza is a get or set request addressed to the owner account.
func (m *Modules) IsModuleIQ(owner *jid.JID, iq *stravaganza.IQ) bool {
	if !iq.IsGet() && !iq.IsSet() {
		return false
	}
	if len(iq.AllChildren()) != 1 {
		return false
	}
	if len(iq.Attribute(stravaganza.To)) == 0 {
		return true
	}
	toJID := iq.ToJID()
	return toJID.IsBare() && toJID.MatchesWithOptions(owner, jid.MatchesBare)
}

// ProcessIQ routes the iq to the corresponding iq handler module.
func (m *Modules) ProcessIQ(ctx context.Context, sess *c2s.Session, res *c2s.Resource, iq *stravaganza.IQ, q *router.Queue) error {
	ns := iq.AllChildren()[0].Attribute(stravaganza.Namespace)
	for _, iqHnd := range m.iqProcessors {
		if !iqHnd.MatchesNamespace(ns) {
			continue
		}
		return iqHnd.ProcessIQ(ctx, sess, res, iq, q)
	}
	// ...IQ not handled...
	q.Push(xmpputil.MakeErrorStanza(iq, stanzaerror.ServiceUnavailable))
	return nil
}

// IsEnabled tells whether a specific module it's been registered.
func (m *Modules) IsEnabled(moduleName string) bool {
	for _, mod := range m.mods {
		if mod.Name() == moduleName {
			return true
		}
	}
	return false
}

// AllModules returns all configured modules.
func (m *Modules) AllModules() []Module {
	return m.mods
}

func (m *Modules) setupModules() {
	for _, mod := range m.mods {
		iqPr, ok := mod.(IQProcessor)
		if ok {
			m.iqProcessors = append(m.iqProcessors, iqPr)
		}
	}
}

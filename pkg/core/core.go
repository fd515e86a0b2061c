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

package core

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/c2s"
	"github.com/ortuman/jackal-presence/pkg/cluster/eventbus"
	"github.com/ortuman/jackal-presence/pkg/cluster/online"
	"github.com/ortuman/jackal-presence/pkg/hook"
	"github.com/ortuman/jackal-presence/pkg/host"
	"github.com/ortuman/jackal-presence/pkg/module"
	rostermodule "github.com/ortuman/jackal-presence/pkg/module/roster"
	"github.com/ortuman/jackal-presence/pkg/module/xep0016"
	"github.com/ortuman/jackal-presence/pkg/module/xep0191"
	"github.com/ortuman/jackal-presence/pkg/presence"
	"github.com/ortuman/jackal-presence/pkg/privacy"
	"github.com/ortuman/jackal-presence/pkg/roster"
	"github.com/ortuman/jackal-presence/pkg/router"
	"github.com/ortuman/jackal-presence/pkg/storage"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
	"github.com/ortuman/jackal-presence/pkg/subscription"
	"github.com/ortuman/jackal-presence/pkg/version"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrFullJIDRequired is returned when a session lifecycle operation is invoked with a non full JID.
var ErrFullJIDRequired = errors.New("core: full JID required")

type startStopper interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Core wires together every presence, roster and privacy component of a node and exposes the
// session entry points. Every operation runs under the owner session lock and returns the ordered
// packets to be delivered, already filtered by the owner privacy lists.
type Core struct {
	cfg    Config
	logger kitlog.Logger

	hk        *hook.Hooks
	rep       repository.Repository
	hosts     *host.Hosts
	rst       *roster.RepositoryStore
	lists     *privacy.ListStore
	evaluator *privacy.Evaluator
	blocker   *privacy.Blocker
	bc        *presence.Broadcaster
	rosterMod *rostermodule.Roster
	mods      *module.Modules
	sessions  *c2s.Manager

	registry *online.Registry
	bridge   *eventbus.Bridge

	components []startStopper
}

// New returns a new Core instance backed by the storage configured in cfg.
func New(cfg Config, logger kitlog.Logger) (*Core, error) {
	rep, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	return NewWithRepository(cfg, rep, logger), nil
}

// NewWithRepository returns a new Core instance using an already initialized repository.
func NewWithRepository(cfg Config, rep repository.Repository, logger kitlog.Logger) *Core {
	c := &Core{
		cfg:      cfg,
		logger:   logger,
		hk:       hook.NewHooks(),
		rep:      rep,
		hosts:    host.NewHosts(cfg.Hosts),
		sessions: c2s.NewManager(cfg.Presence.MaxDirectPresences),
	}
	var registry presence.OnlineRegistry
	if cfg.Cluster.Enabled {
		c.registry = online.New(cfg.Cluster.Redis, logger)
		c.bridge = eventbus.New(cfg.Cluster.EventBus, c.registry.Client(), c.hk, logger)
		registry = c.registry
	}
	c.rst = roster.NewStore(cfg.Roster.storeConfig(), rep, c.hk, logger)
	c.lists = privacy.NewListStore(rep, c.hk)
	c.evaluator = privacy.NewEvaluator(cfg.Privacy, c.lists, c.rst, c.hk, logger)
	c.blocker = privacy.NewBlocker(c.lists, c.hk)
	c.bc = presence.NewBroadcaster(cfg.Presence, c.rst, c.hosts, registry, logger)

	c.rosterMod = rostermodule.New(cfg.Roster.moduleConfig(), c.rst, c.bc, logger)
	c.mods = module.NewModules([]module.Module{
		c.rosterMod,
		xep0016.New(c.lists, logger),
		xep0191.New(c.blocker, c.rst, logger),
	}, logger)

	c.components = []startStopper{c.evaluator, c.mods}
	return c
}

// Start starts the repository and the online registry, then every processing component concurrently.
// The event bridge is started last so that no remote event is replayed before the node is ready.
func (c *Core) Start(ctx context.Context) error {
	level.Info(c.logger).Log("msg", "jackal-presence is starting...", "version", version.Version)

	if err := c.rep.Start(ctx); err != nil {
		return err
	}
	if c.registry != nil {
		if err := c.registry.Start(ctx); err != nil {
			return err
		}
	}
	g, gCtx := errgroup.WithContext(ctx)
	for _, cmp := range c.components {
		cmp := cmp
		g.Go(func() error { return cmp.Start(gCtx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.hk.AddHook(hook.RosterChanged, c.onRemoteRosterChanged, hook.DefaultPriority)

	if c.bridge != nil {
		if err := c.bridge.Start(ctx); err != nil {
			return err
		}
	}
	level.Info(c.logger).Log("msg", "jackal-presence started", "hosts", len(c.hosts.HostNames()), "cluster", c.cfg.Cluster.Enabled)
	return nil
}

// Stop stops every component and finally the underlying repository.
func (c *Core) Stop(ctx context.Context) error {
	if c.bridge != nil {
		if err := c.bridge.Stop(ctx); err != nil {
			return err
		}
	}
	c.hk.RemoveHook(hook.RosterChanged, c.onRemoteRosterChanged)

	g, gCtx := errgroup.WithContext(ctx)
	for _, cmp := range c.components {
		cmp := cmp
		g.Go(func() error { return cmp.Stop(gCtx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if c.registry != nil {
		if err := c.registry.Stop(ctx); err != nil {
			return err
		}
	}
	if err := c.rep.Stop(ctx); err != nil {
		return err
	}
	level.Info(c.logger).Log("msg", "jackal-presence stopped")
	return nil
}

// Bind binds fullJID resource to its owner session.
// Owner's default privacy list is preloaded and the resource is announced to the online registry.
func (c *Core) Bind(ctx context.Context, fullJID *jid.JID) error {
	if !fullJID.IsFullWithUser() {
		return ErrFullJIDRequired
	}
	var created bool
	err := c.sessions.Do(ctx, fullJID, func(sess *c2s.Session) error {
		_, created = sess.Bind(fullJID)
		c.rst.Retain(fullJID)
		return nil
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	if _, err := c.evaluator.DefaultList(ctx, fullJID); err != nil {
		level.Warn(c.logger).Log("msg", "failed to preload default privacy list", "jid", fullJID.String(), "err", err)
	}
	if c.registry != nil {
		if err := c.registry.Register(ctx, fullJID); err != nil {
			level.Warn(c.logger).Log("msg", "failed to register online resource", "jid", fullJID.String(), "err", err)
		}
	}
	level.Info(c.logger).Log("msg", "resource bound", "jid", fullJID.String())

	return c.notifySessionChange(ctx, fullJID)
}

// Unbind unbinds fullJID resource, returning the unavailable broadcast to be delivered on its behalf.
// Unbinding a resource that's not bound returns an empty queue.
func (c *Core) Unbind(ctx context.Context, fullJID *jid.JID) (*router.Queue, error) {
	if !fullJID.IsFullWithUser() {
		return nil, ErrFullJIDRequired
	}
	var out *router.Queue
	var procErr error

	err := c.sessions.Do(ctx, fullJID, func(sess *c2s.Session) error {
		res, st := sess.Resource(fullJID.Resource())
		if st == c2s.Unauthorized {
			level.Debug(c.logger).Log("msg", "resource already unbound", "jid", fullJID.String())
			return nil
		}
		q := &router.Queue{}
		procErr = c.bc.ProcessOutboundUnavailable(ctx, sess, res, nil, q)
		out = c.evaluator.Filter(ctx, sess, q)

		sess.Unbind(fullJID.Resource())
		if sess.IsEmpty() {
			c.rst.Release(sess.JID())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return &router.Queue{}, nil
	}
	if procErr != nil {
		level.Error(c.logger).Log("msg", "failed to broadcast unavailability", "jid", fullJID.String(), "err", procErr)
	}
	if c.registry != nil {
		if err := c.registry.Unregister(ctx, fullJID); err != nil {
			level.Warn(c.logger).Log("msg", "failed to unregister online resource", "jid", fullJID.String(), "err", err)
		}
	}
	level.Info(c.logger).Log("msg", "resource unbound", "jid", fullJID.String())

	if err := c.notifySessionChange(ctx, fullJID); err != nil {
		return out, err
	}
	return out, procErr
}

// ProcessOutbound processes a stanza sent by one of the local user resources.
// Stanza sender must be a bound full JID, otherwise it's dropped.
func (c *Core) ProcessOutbound(ctx context.Context, stanza stravaganza.Stanza) (*router.Queue, error) {
	from := stanza.FromJID()
	if from == nil || !from.IsFullWithUser() {
		level.Warn(c.logger).Log("msg", "dropping outbound stanza with invalid sender", "from", stanza.Attribute(stravaganza.From))
		return &router.Queue{}, nil
	}
	return c.process(ctx, from, func(sess *c2s.Session, q *router.Queue) error {
		res, st := sess.Resource(from.Resource())
		if st == c2s.Unauthorized {
			level.Debug(c.logger).Log("msg", "dropping stanza from unbound resource", "from", from.String(), "status", st)
			return nil
		}
		switch s := stanza.(type) {
		case *stravaganza.Presence:
			return c.processOutboundPresence(ctx, sess, res, s, q)

		case *stravaganza.IQ:
			if c.mods.IsModuleIQ(sess.JID(), s) {
				return c.mods.ProcessIQ(ctx, sess, res, s, q)
			}
			q.Push(s)

		default:
			q.Push(s)
		}
		return nil
	})
}

// ProcessInbound processes a stanza addressed to a local user.
func (c *Core) ProcessInbound(ctx context.Context, stanza stravaganza.Stanza) (*router.Queue, error) {
	to := stanza.ToJID()
	if to == nil || len(to.Node()) == 0 || stanza.FromJID() == nil {
		level.Warn(c.logger).Log("msg", "dropping malformed inbound stanza", "to", stanza.Attribute(stravaganza.To), "from", stanza.Attribute(stravaganza.From))
		return &router.Queue{}, nil
	}
	return c.process(ctx, to, func(sess *c2s.Session, q *router.Queue) error {
		pr, ok := stanza.(*stravaganza.Presence)
		if !ok {
			q.Push(stanza)
			return nil
		}
		pt := subscription.Classify(sess.JID(), pr)
		switch {
		case pt == subscription.InInitial:
			return c.bc.ProcessInboundInitial(ctx, sess, pr, q)

		case pt == subscription.InProbe:
			return c.bc.ProcessInboundProbe(ctx, sess, pr, q)

		case pt == subscription.Error:
			q.Push(pr)

		case pt.IsInbound() && pt.IsSubscription():
			return c.rosterMod.ProcessPresence(ctx, sess, pr, pt, q)

		default:
			level.Warn(c.logger).Log("msg", "dropping unexpected inbound presence", "type", pt, "from", pr.FromJID().String())
		}
		return nil
	})
}

// Sessions returns the node session manager.
func (c *Core) Sessions() *c2s.Manager { return c.sessions }

// Hooks returns the node hook set.
func (c *Core) Hooks() *hook.Hooks { return c.hk }

// Roster returns the roster store.
func (c *Core) Roster() roster.Store { return c.rst }

// PrivacyLists returns the privacy list store.
func (c *Core) PrivacyLists() *privacy.ListStore { return c.lists }

// Evaluator returns the privacy evaluator.
func (c *Core) Evaluator() *privacy.Evaluator { return c.evaluator }

// Blocker returns the block list manager.
func (c *Core) Blocker() *privacy.Blocker { return c.blocker }

func (c *Core) processOutboundPresence(ctx context.Context, sess *c2s.Session, res *c2s.Resource, pr *stravaganza.Presence, q *router.Queue) error {
	pt := subscription.Classify(sess.JID(), pr)
	switch {
	case pt == subscription.OutInitial:
		return c.bc.ProcessOutboundInitial(ctx, sess, res, pr, q)

	case pt == subscription.Error:
		q.Push(pr)

	case pt.IsOutbound() && pt.IsSubscription():
		return c.rosterMod.ProcessPresence(ctx, sess, pr, pt, q)

	default:
		level.Warn(c.logger).Log("msg", "dropping unexpected outbound presence", "type", pt, "from", res.JID.String())
	}
	return nil
}

func (c *Core) process(ctx context.Context, owner *jid.JID, fn func(sess *c2s.Session, q *router.Queue) error) (*router.Queue, error) {
	var out *router.Queue
	var procErr error

	err := c.sessions.Do(ctx, owner, func(sess *c2s.Session) error {
		q := &router.Queue{}
		procErr = fn(sess, q)
		out = c.evaluator.Filter(ctx, sess, q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if procErr != nil {
		level.Error(c.logger).Log("msg", "failed to process stanza", "jid", owner.String(), "err", procErr)
	}
	return out, procErr
}

func (c *Core) notifySessionChange(ctx context.Context, fullJID *jid.JID) error {
	_, err := c.hk.Run(ctx, hook.PresenceSessionChanged, &hook.ExecutionContext{
		Info:   &hook.UserHookInfo{JID: fullJID.ToBareJID()},
		Sender: c,
	})
	return err
}

func (c *Core) onRemoteRosterChanged(_ context.Context, execCtx *hook.ExecutionContext) error {
	if _, ok := execCtx.Sender.(*eventbus.Bridge); !ok {
		return nil
	}
	inf, ok := execCtx.Info.(*hook.UserHookInfo)
	if !ok || inf.JID == nil {
		return nil
	}
	c.rst.Forget(inf.JID)
	return nil
}

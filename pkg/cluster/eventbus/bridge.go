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

package eventbus

import (
	"context"

	"github.com/fxamacker/cbor/v2"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/jackal-presence/pkg/cluster/instance"
	"github.com/ortuman/jackal-presence/pkg/hook"
	"github.com/ortuman/jackal-presence/pkg/util/runqueue"
	"github.com/pkg/errors"
)

// Config contains event bridge configuration.
type Config struct {
	Channel string `fig:"channel" default:"jackal-presence:events"`
}

// bridgedHooks contains the hooks republished to other cluster nodes.
var bridgedHooks = []string{
	hook.RosterChanged,
	hook.PresenceSessionChanged,
	hook.PrivacyListChanged,
}

type event struct {
	Instance string `cbor:"1,keyasint"`
	Hook     string `cbor:"2,keyasint"`
	JID      string `cbor:"3,keyasint"`
	ListName string `cbor:"4,keyasint,omitempty"`
}

// Bridge republishes local user hooks over a redis pub/sub channel and replays the ones
// received from other nodes into the local hook set.
//
// Remote events are run in arrival order with the bridge as sender.
type Bridge struct {
	cfg        Config
	cl         *redis.Client
	hk         *hook.Hooks
	rq         *runqueue.RunQueue
	instanceID string
	logger     kitlog.Logger

	handlers map[string]hook.Handler
	sub      *redis.PubSub
	done     chan struct{}
}

// New returns a new initialized Bridge instance.
func New(cfg Config, cl *redis.Client, hk *hook.Hooks, logger kitlog.Logger) *Bridge {
	logger = kitlog.With(logger, "component", "event_bridge")
	return &Bridge{
		cfg:        cfg,
		cl:         cl,
		hk:         hk,
		rq:         runqueue.New("event_bridge", logger),
		instanceID: instance.ID(),
		logger:     logger,
		handlers:   make(map[string]hook.Handler),
	}
}

// Start subscribes to the bridge channel and starts forwarding local events.
func (b *Bridge) Start(ctx context.Context) error {
	b.sub = b.cl.Subscribe(ctx, b.cfg.Channel)
	if _, err := b.sub.Receive(ctx); err != nil {
		return errors.Wrapf(err, "eventbus: failed to subscribe to %s", b.cfg.Channel)
	}
	b.done = make(chan struct{})
	go b.loop(b.sub.Channel(), b.done)

	b.registerHooks()

	level.Info(b.logger).Log("msg", "started event bridge", "channel", b.cfg.Channel)
	return nil
}

// Stop stops forwarding events and waits for in-flight remote events to be processed.
func (b *Bridge) Stop(_ context.Context) error {
	b.unregisterHooks()

	if b.sub != nil {
		if err := b.sub.Close(); err != nil {
			return err
		}
		<-b.done
	}
	stopped := make(chan struct{})
	b.rq.Stop(func() { close(stopped) })
	<-stopped

	level.Info(b.logger).Log("msg", "stopped event bridge", "channel", b.cfg.Channel)
	return nil
}

func (b *Bridge) registerHooks() {
	for _, h := range bridgedHooks {
		hookName := h
		hnd := func(ctx context.Context, execCtx *hook.ExecutionContext) error {
			if err := b.publish(ctx, hookName, execCtx); err != nil {
				level.Warn(b.logger).Log("msg", "failed to publish event", "hook", hookName, "err", err)
			}
			return nil
		}
		b.handlers[hookName] = hnd
		b.hk.AddHook(hookName, hnd, hook.LowestPriority)
	}
}

func (b *Bridge) unregisterHooks() {
	for hookName, hnd := range b.handlers {
		b.hk.RemoveHook(hookName, hnd)
	}
	b.handlers = make(map[string]hook.Handler)
}

func (b *Bridge) publish(ctx context.Context, hookName string, execCtx *hook.ExecutionContext) error {
	if execCtx.Sender == b {
		return nil // replayed remote event
	}
	inf, ok := execCtx.Info.(*hook.UserHookInfo)
	if !ok || inf.JID == nil {
		return nil
	}
	payload, err := cbor.Marshal(&event{
		Instance: b.instanceID,
		Hook:     hookName,
		JID:      inf.JID.String(),
		ListName: inf.ListName,
	})
	if err != nil {
		return err
	}
	return b.cl.Publish(ctx, b.cfg.Channel, payload).Err()
}

func (b *Bridge) loop(ch <-chan *redis.Message, done chan<- struct{}) {
	defer close(done)
	for msg := range ch {
		b.handleMessage([]byte(msg.Payload))
	}
}

func (b *Bridge) handleMessage(payload []byte) {
	var ev event
	if err := cbor.Unmarshal(payload, &ev); err != nil {
		level.Warn(b.logger).Log("msg", "failed to decode event", "err", err)
		return
	}
	if ev.Instance == b.instanceID {
		return
	}
	j, err := jid.NewWithString(ev.JID, true)
	if err != nil {
		level.Warn(b.logger).Log("msg", "malformed event jid", "jid", ev.JID, "err", err)
		return
	}
	b.rq.Run(func() {
		_, err := b.hk.Run(context.Background(), ev.Hook, &hook.ExecutionContext{
			Info: &hook.UserHookInfo{
				JID:      j,
				ListName: ev.ListName,
			},
			Sender: b,
		})
		if err != nil {
			level.Warn(b.logger).Log("msg", "failed to run remote event", "hook", ev.Hook, "err", err)
		}
	})
}

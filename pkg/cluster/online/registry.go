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

package online

import (
	"context"
	"errors"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

const keyPrefix = "online:"

// Config contains online registry configuration.
type Config struct {
	Address      string        `fig:"address"`
	Username     string        `fig:"username"`
	Password     string        `fig:"password"`
	DB           int           `fig:"db"`
	DialTimeout  time.Duration `fig:"dial_timeout" default:"3s"`
	ReadTimeout  time.Duration `fig:"read_timeout" default:"5s"`
	WriteTimeout time.Duration `fig:"write_timeout" default:"5s"`
}

// Registry keeps track of the bound resources of every user across all cluster nodes.
// Each bare JID maps to a redis set containing its bound resource names.
type Registry struct {
	cl     *redis.Client
	logger kitlog.Logger
}

// New returns a new Registry backed by a redis client built from cfg.
func New(cfg Config, logger kitlog.Logger) *Registry {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}), logger)
}

// NewWithClient returns a new Registry using an already initialized redis client.
func NewWithClient(cl *redis.Client, logger kitlog.Logger) *Registry {
	return &Registry{
		cl:     cl,
		logger: kitlog.With(logger, "component", "online_registry"),
	}
}

// Client returns the underlying redis client.
func (r *Registry) Client() *redis.Client {
	return r.cl
}

// Register marks fullJID resource as bound.
func (r *Registry) Register(ctx context.Context, fullJID *jid.JID) error {
	if len(fullJID.Resource()) == 0 {
		return errors.New("online: full JID required")
	}
	return r.cl.SAdd(ctx, key(fullJID), fullJID.Resource()).Err()
}

// Unregister removes fullJID resource from the bound set.
func (r *Registry) Unregister(ctx context.Context, fullJID *jid.JID) error {
	if len(fullJID.Resource()) == 0 {
		return errors.New("online: full JID required")
	}
	return r.cl.SRem(ctx, key(fullJID), fullJID.Resource()).Err()
}

// IsOnline tells whether the user identified by bareJID has at least one bound resource in any node.
func (r *Registry) IsOnline(ctx context.Context, bareJID *jid.JID) (bool, error) {
	n, err := r.cl.SCard(ctx, key(bareJID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Start checks registry connectivity.
func (r *Registry) Start(ctx context.Context) error {
	if err := r.cl.Ping(ctx).Err(); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "started online registry")
	return nil
}

// Stop closes registry connection.
func (r *Registry) Stop(_ context.Context) error {
	if err := r.cl.Close(); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "stopped online registry")
	return nil
}

func key(j *jid.JID) string {
	return keyPrefix + j.ToBareJID().String()
}

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

package breakerrepository

import (
	"context"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
	"github.com/sony/gobreaker"
)

// Config contains circuit breaker configuration.
type Config struct {
	Enabled             bool          `fig:"enabled"`
	MaxRequests         uint32        `fig:"max_requests" default:"1"`
	Interval            time.Duration `fig:"interval" default:"1m"`
	Timeout             time.Duration `fig:"timeout" default:"30s"`
	ConsecutiveFailures uint32        `fig:"consecutive_failures" default:"5"`
}

// Repository guards an underlying repository with a circuit breaker.
// While open, operations fail fast with gobreaker.ErrOpenState.
type Repository struct {
	rep repository.Repository
	cb  *gobreaker.CircuitBreaker
}

// New returns a breaker guarded repository.
func New(cfg Config, rep repository.Repository, logger kitlog.Logger) *Repository {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "repository",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level.Warn(logger).Log("msg", "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Repository{rep: rep, cb: cb}
}

// GetData satisfies repository.SessionData interface.
func (r *Repository) GetData(ctx context.Context, owner, namespace, key string) ([]byte, error) {
	v, err := r.cb.Execute(func() (interface{}, error) {
		return r.rep.GetData(ctx, owner, namespace, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// SetData satisfies repository.SessionData interface.
func (r *Repository) SetData(ctx context.Context, owner, namespace, key string, value []byte) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.rep.SetData(ctx, owner, namespace, key, value)
	})
	return err
}

// RemoveData satisfies repository.SessionData interface.
func (r *Repository) RemoveData(ctx context.Context, owner, namespace, key string) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.rep.RemoveData(ctx, owner, namespace, key)
	})
	return err
}

// GetDataGroups satisfies repository.SessionData interface.
func (r *Repository) GetDataGroups(ctx context.Context, owner, namespace string) ([]string, error) {
	v, err := r.cb.Execute(func() (interface{}, error) {
		return r.rep.GetDataGroups(ctx, owner, namespace)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Start satisfies repository.Repository interface.
func (r *Repository) Start(ctx context.Context) error {
	return r.rep.Start(ctx)
}

// Stop satisfies repository.Repository interface.
func (r *Repository) Stop(ctx context.Context) error {
	return r.rep.Stop(ctx)
}

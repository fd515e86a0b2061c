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

package cachedrepository

import (
	"context"
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	rediscache "github.com/ortuman/jackal-presence/pkg/storage/cached/redis"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
)

// Config contains cached repository configuration.
type Config struct {
	Type  string            `fig:"type"`
	Redis rediscache.Config `fig:"redis"`
}

// Cache defines cache store interface.
type Cache interface {
	// Type identifies underlying cache store type.
	Type() string

	// Get retrieves k value from the cache store.
	// If not present nil will be returned.
	Get(ctx context.Context, ns, key string) ([]byte, error)

	// Put stores a value into the cache store.
	Put(ctx context.Context, ns, key string, val []byte) error

	// Del removes keys values from the cache store.
	Del(ctx context.Context, ns string, keys ...string) error

	// DelNS removes all keys contained under a given namespace from the cache store.
	DelNS(ctx context.Context, ns string) error

	// Start starts Cache component.
	Start(ctx context.Context) error

	// Stop stops Cache component.
	Stop(ctx context.Context) error
}

// CachedRepository is cached Repository implementation.
// Group listings are always served by the underlying repository.
type CachedRepository struct {
	rep repository.Repository

	cache  Cache
	logger kitlog.Logger
}

// New returns a new initialized CachedRepository instance.
func New(cfg Config, rep repository.Repository, logger kitlog.Logger) (repository.Repository, error) {
	if cfg.Type != rediscache.Type {
		return nil, fmt.Errorf("unrecognized repository cache type: %s", cfg.Type)
	}
	return &CachedRepository{
		rep:    rep,
		cache:  rediscache.New(cfg.Redis),
		logger: logger,
	}, nil
}

// GetData satisfies repository.SessionData interface.
func (c *CachedRepository) GetData(ctx context.Context, owner, namespace, key string) ([]byte, error) {
	op := fetchOp{
		c:         c.cache,
		namespace: sessionDataNS(owner, namespace),
		key:       key,
		missFn: func(ctx context.Context) ([]byte, error) {
			return c.rep.GetData(ctx, owner, namespace, key)
		},
		logger: c.logger,
	}
	return op.do(ctx)
}

// SetData satisfies repository.SessionData interface.
func (c *CachedRepository) SetData(ctx context.Context, owner, namespace, key string, value []byte) error {
	op := updateOp{
		c:              c.cache,
		namespace:      sessionDataNS(owner, namespace),
		invalidateKeys: []string{key},
		updateFn: func(ctx context.Context) error {
			return c.rep.SetData(ctx, owner, namespace, key, value)
		},
	}
	return op.do(ctx)
}

// RemoveData satisfies repository.SessionData interface.
func (c *CachedRepository) RemoveData(ctx context.Context, owner, namespace, key string) error {
	op := updateOp{
		c:              c.cache,
		namespace:      sessionDataNS(owner, namespace),
		invalidateKeys: []string{key},
		updateFn: func(ctx context.Context) error {
			return c.rep.RemoveData(ctx, owner, namespace, key)
		},
	}
	return op.do(ctx)
}

// GetDataGroups satisfies repository.SessionData interface.
func (c *CachedRepository) GetDataGroups(ctx context.Context, owner, namespace string) ([]string, error) {
	return c.rep.GetDataGroups(ctx, owner, namespace)
}

// Start starts cached repository component.
func (c *CachedRepository) Start(ctx context.Context) error {
	if err := c.cache.Start(ctx); err != nil {
		return err
	}
	level.Info(c.logger).Log("msg", "started cached repository", "type", c.cache.Type())
	return c.rep.Start(ctx)
}

// Stop stops cached repository component.
func (c *CachedRepository) Stop(ctx context.Context) error {
	if err := c.cache.Stop(ctx); err != nil {
		return err
	}
	level.Info(c.logger).Log("msg", "stopped cached repository", "type", c.cache.Type())
	return c.rep.Stop(ctx)
}

func sessionDataNS(owner, namespace string) string {
	return fmt.Sprintf("sd:%s:%s", owner, namespace)
}

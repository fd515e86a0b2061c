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

package boltdb

import (
	"context"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
	bolt "go.etcd.io/bbolt"
)

// Config contains BoltDB configuration value.
type Config struct {
	Path string `fig:"path" default:".jackal-presence.db"`
}

// Repository represents a BoltDB repository implementation.
// Every user owns a bucket whose keys are the flattened namespace/key pairs.
type Repository struct {
	cfg Config

	db     *bolt.DB
	logger kitlog.Logger
}

// New creates and returns an initialized BoltDB Repository instance.
func New(cfg Config, logger kitlog.Logger) *Repository {
	return &Repository{
		cfg:    cfg,
		logger: logger,
	}
}

// GetData satisfies repository.SessionData interface.
func (r *Repository) GetData(_ context.Context, owner, namespace, key string) ([]byte, error) {
	var val []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		val = fetchKeyOp{
			tx:     tx,
			bucket: owner,
			key:    repository.DataKey(namespace, key),
		}.do()
		return nil
	})
	return val, err
}

// SetData satisfies repository.SessionData interface.
func (r *Repository) SetData(_ context.Context, owner, namespace, key string, value []byte) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return upsertKeyOp{
			tx:     tx,
			bucket: owner,
			key:    repository.DataKey(namespace, key),
			val:    value,
		}.do()
	})
}

// RemoveData satisfies repository.SessionData interface.
func (r *Repository) RemoveData(_ context.Context, owner, namespace, key string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return delKeyOp{
			tx:     tx,
			bucket: owner,
			key:    repository.DataKey(namespace, key),
		}.do()
	})
}

// GetDataGroups satisfies repository.SessionData interface.
func (r *Repository) GetDataGroups(_ context.Context, owner, namespace string) ([]string, error) {
	prefix := repository.DataKeyPrefix(namespace)

	var keys []string
	err := r.db.View(func(tx *bolt.Tx) error {
		return iterPrefixOp{
			tx:     tx,
			bucket: owner,
			prefix: prefix,
			iterFn: func(k, _ []byte) error {
				keys = append(keys, string(k[len(prefix):]))
				return nil
			},
		}.do()
	})
	return keys, err
}

// Start implements Start interface method.
func (r *Repository) Start(_ context.Context) error {
	db, err := bolt.Open(r.cfg.Path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	r.db = db

	level.Info(r.logger).Log("msg", "started BoltDB repository", "path", r.cfg.Path)
	return nil
}

// Stop closes BoltDB database.
func (r *Repository) Stop(_ context.Context) error {
	if err := r.db.Close(); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "stopped BoltDB repository")
	return nil
}

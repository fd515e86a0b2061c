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

package memoryrepository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ortuman/jackal-presence/pkg/storage/repository"
)

// Repository is an in-process repository implementation. Its content is lost on shutdown.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// New returns a new empty in-memory Repository.
func New() *Repository {
	return &Repository{
		data: make(map[string]map[string][]byte),
	}
}

// GetData satisfies repository.SessionData interface.
func (r *Repository) GetData(_ context.Context, owner, namespace, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[owner][repository.DataKey(namespace, key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// SetData satisfies repository.SessionData interface.
func (r *Repository) SetData(_ context.Context, owner, namespace, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	od := r.data[owner]
	if od == nil {
		od = make(map[string][]byte)
		r.data[owner] = od
	}
	od[repository.DataKey(namespace, key)] = append([]byte(nil), value...)
	return nil
}

// RemoveData satisfies repository.SessionData interface.
func (r *Repository) RemoveData(_ context.Context, owner, namespace, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	od := r.data[owner]
	delete(od, repository.DataKey(namespace, key))
	if len(od) == 0 {
		delete(r.data, owner)
	}
	return nil
}

// GetDataGroups satisfies repository.SessionData interface.
func (r *Repository) GetDataGroups(_ context.Context, owner, namespace string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := repository.DataKeyPrefix(namespace)

	var keys []string
	for k := range r.data[owner] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Start satisfies repository.Repository interface.
func (r *Repository) Start(_ context.Context) error { return nil }

// Stop satisfies repository.Repository interface.
func (r *Repository) Stop(_ context.Context) error { return nil }

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

package measuredrepository

import (
	"context"
	"strconv"
	"time"

	"github.com/ortuman/jackal-presence/pkg/cluster/instance"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	upsertOp = "upsert"
	fetchOp  = "fetch"
	deleteOp = "delete"
	listOp   = "list"
)

// Measured is measured Repository implementation.
type Measured struct {
	rep repository.Repository
}

// New returns a new initialized Measured repository.
func New(rep repository.Repository) repository.Repository {
	return &Measured{rep: rep}
}

// GetData satisfies repository.SessionData interface.
func (m *Measured) GetData(ctx context.Context, owner, namespace, key string) (val []byte, err error) {
	t0 := time.Now()
	val, err = m.rep.GetData(ctx, owner, namespace, key)
	reportOpMetric(fetchOp, namespace, time.Since(t0).Seconds(), err == nil)
	return
}

// SetData satisfies repository.SessionData interface.
func (m *Measured) SetData(ctx context.Context, owner, namespace, key string, value []byte) error {
	t0 := time.Now()
	err := m.rep.SetData(ctx, owner, namespace, key, value)
	reportOpMetric(upsertOp, namespace, time.Since(t0).Seconds(), err == nil)
	return err
}

// RemoveData satisfies repository.SessionData interface.
func (m *Measured) RemoveData(ctx context.Context, owner, namespace, key string) error {
	t0 := time.Now()
	err := m.rep.RemoveData(ctx, owner, namespace, key)
	reportOpMetric(deleteOp, namespace, time.Since(t0).Seconds(), err == nil)
	return err
}

// GetDataGroups satisfies repository.SessionData interface.
func (m *Measured) GetDataGroups(ctx context.Context, owner, namespace string) (keys []string, err error) {
	t0 := time.Now()
	keys, err = m.rep.GetDataGroups(ctx, owner, namespace)
	reportOpMetric(listOp, namespace, time.Since(t0).Seconds(), err == nil)
	return
}

// Start initializes repository.
func (m *Measured) Start(ctx context.Context) error {
	return m.rep.Start(ctx)
}

// Stop releases all underlying repository resources.
func (m *Measured) Stop(ctx context.Context) error {
	return m.rep.Stop(ctx)
}

func reportOpMetric(opType, namespace string, durationInSecs float64, success bool) {
	metricLabel := prometheus.Labels{
		"instance":  instance.ID(),
		"type":      opType,
		"namespace": namespace,
		"success":   strconv.FormatBool(success),
	}
	repOperations.With(metricLabel).Inc()
	repOperationDurationBucket.With(metricLabel).Observe(durationInSecs)
}

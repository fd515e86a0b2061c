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
	"errors"
	"testing"

	"github.com/ortuman/jackal-presence/pkg/cluster/instance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMeasured_SessionData(t *testing.T) {
	// given
	repMock := &repositoryMock{}
	repMock.GetDataFunc = func(ctx context.Context, owner, namespace, key string) ([]byte, error) {
		return []byte{1}, nil
	}
	repMock.SetDataFunc = func(ctx context.Context, owner, namespace, key string, value []byte) error {
		return nil
	}
	repMock.RemoveDataFunc = func(ctx context.Context, owner, namespace, key string) error {
		return errors.New("disk full")
	}
	repMock.GetDataGroupsFunc = func(ctx context.Context, owner, namespace string) ([]string, error) {
		return []string{"k"}, nil
	}
	m := New(repMock)

	// when
	v, _ := m.GetData(context.Background(), "ortuman@jackal.im", "measured-roster", "noelia@jackal.im")
	_ = m.SetData(context.Background(), "ortuman@jackal.im", "measured-roster", "noelia@jackal.im", v)
	rmErr := m.RemoveData(context.Background(), "ortuman@jackal.im", "measured-roster", "noelia@jackal.im")
	keys, _ := m.GetDataGroups(context.Background(), "ortuman@jackal.im", "measured-roster")

	// then
	require.Equal(t, []byte{1}, v)
	require.NotNil(t, rmErr)
	require.Equal(t, []string{"k"}, keys)

	require.Equal(t, 1, repMock.GetDataCalls())
	require.Equal(t, 1, repMock.SetDataCalls())
	require.Equal(t, 1, repMock.RemoveDataCalls())
	require.Equal(t, 1, repMock.GetDataGroupsCalls())

	require.Equal(t, float64(1), testutil.ToFloat64(repOperations.With(prometheus.Labels{
		"instance":  instance.ID(),
		"type":      deleteOp,
		"namespace": "measured-roster",
		"success":   "false",
	})))
}

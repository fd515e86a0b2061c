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
	"errors"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	// given
	repMock := &repositoryMock{}
	repMock.GetDataFunc = func(ctx context.Context, owner, namespace, key string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}
	r := New(Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 3,
	}, repMock, kitlog.NewNopLogger())

	// when
	for i := 0; i < 3; i++ {
		_, err := r.GetData(context.Background(), "ortuman@jackal.im", "roster", "noelia@jackal.im")
		require.NotNil(t, err)
	}
	_, err := r.GetData(context.Background(), "ortuman@jackal.im", "roster", "noelia@jackal.im")

	// then
	require.True(t, errors.Is(err, gobreaker.ErrOpenState))
	require.Equal(t, 3, repMock.GetDataCalls())
}

func TestBreaker_PassThrough(t *testing.T) {
	// given
	repMock := &repositoryMock{}
	repMock.GetDataFunc = func(ctx context.Context, owner, namespace, key string) ([]byte, error) {
		return nil, nil
	}
	repMock.SetDataFunc = func(ctx context.Context, owner, namespace, key string, value []byte) error {
		return nil
	}
	repMock.GetDataGroupsFunc = func(ctx context.Context, owner, namespace string) ([]string, error) {
		return nil, nil
	}
	r := New(Config{ConsecutiveFailures: 5}, repMock, kitlog.NewNopLogger())

	// when
	v, err1 := r.GetData(context.Background(), "ortuman@jackal.im", "roster", "noelia@jackal.im")
	err2 := r.SetData(context.Background(), "ortuman@jackal.im", "roster", "noelia@jackal.im", []byte{1})
	keys, err3 := r.GetDataGroups(context.Background(), "ortuman@jackal.im", "roster")

	// then
	require.Nil(t, err1)
	require.Nil(t, err2)
	require.Nil(t, err3)
	require.Nil(t, v)
	require.Nil(t, keys)
	require.Equal(t, 1, repMock.SetDataCalls())
}

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
	"sync"
)

var _ Cache = &cacheMock{}

type cacheMock struct {
	TypeFunc  func() string
	GetFunc   func(ctx context.Context, ns string, key string) ([]byte, error)
	PutFunc   func(ctx context.Context, ns string, key string, val []byte) error
	DelFunc   func(ctx context.Context, ns string, keys ...string) error
	DelNSFunc func(ctx context.Context, ns string) error
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error

	mu    sync.Mutex
	calls struct {
		Get []struct{ Ns, Key string }
		Put []struct {
			Ns, Key string
			Val     []byte
		}
		Del []struct {
			Ns   string
			Keys []string
		}
	}
}

func (m *cacheMock) Type() string {
	if m.TypeFunc == nil {
		panic("cacheMock.TypeFunc: method is nil but Cache.Type was just called")
	}
	return m.TypeFunc()
}

func (m *cacheMock) Get(ctx context.Context, ns string, key string) ([]byte, error) {
	if m.GetFunc == nil {
		panic("cacheMock.GetFunc: method is nil but Cache.Get was just called")
	}
	m.mu.Lock()
	m.calls.Get = append(m.calls.Get, struct{ Ns, Key string }{ns, key})
	m.mu.Unlock()
	return m.GetFunc(ctx, ns, key)
}

func (m *cacheMock) GetCalls() []struct{ Ns, Key string } {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Get
}

func (m *cacheMock) Put(ctx context.Context, ns string, key string, val []byte) error {
	if m.PutFunc == nil {
		panic("cacheMock.PutFunc: method is nil but Cache.Put was just called")
	}
	m.mu.Lock()
	m.calls.Put = append(m.calls.Put, struct {
		Ns, Key string
		Val     []byte
	}{ns, key, val})
	m.mu.Unlock()
	return m.PutFunc(ctx, ns, key, val)
}

func (m *cacheMock) PutCalls() []struct {
	Ns, Key string
	Val     []byte
} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Put
}

func (m *cacheMock) Del(ctx context.Context, ns string, keys ...string) error {
	if m.DelFunc == nil {
		panic("cacheMock.DelFunc: method is nil but Cache.Del was just called")
	}
	m.mu.Lock()
	m.calls.Del = append(m.calls.Del, struct {
		Ns   string
		Keys []string
	}{ns, keys})
	m.mu.Unlock()
	return m.DelFunc(ctx, ns, keys...)
}

func (m *cacheMock) DelCalls() []struct {
	Ns   string
	Keys []string
} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.Del
}

func (m *cacheMock) DelNS(ctx context.Context, ns string) error {
	if m.DelNSFunc == nil {
		panic("cacheMock.DelNSFunc: method is nil but Cache.DelNS was just called")
	}
	return m.DelNSFunc(ctx, ns)
}

func (m *cacheMock) Start(ctx context.Context) error {
	if m.StartFunc == nil {
		panic("cacheMock.StartFunc: method is nil but Cache.Start was just called")
	}
	return m.StartFunc(ctx)
}

func (m *cacheMock) Stop(ctx context.Context) error {
	if m.StopFunc == nil {
		panic("cacheMock.StopFunc: method is nil but Cache.Stop was just called")
	}
	return m.StopFunc(ctx)
}

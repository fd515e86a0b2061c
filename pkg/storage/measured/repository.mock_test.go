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
	"sync"
)

var _ globalRepository = &repositoryMock{}

type repositoryMock struct {
	GetDataFunc       func(ctx context.Context, owner, namespace, key string) ([]byte, error)
	SetDataFunc       func(ctx context.Context, owner, namespace, key string, value []byte) error
	RemoveDataFunc    func(ctx context.Context, owner, namespace, key string) error
	GetDataGroupsFunc func(ctx context.Context, owner, namespace string) ([]string, error)
	StartFunc         func(ctx context.Context) error
	StopFunc          func(ctx context.Context) error

	mu    sync.Mutex
	calls struct {
		GetData       int
		SetData       int
		RemoveData    int
		GetDataGroups int
	}
}

func (m *repositoryMock) GetData(ctx context.Context, owner, namespace, key string) ([]byte, error) {
	if m.GetDataFunc == nil {
		panic("repositoryMock.GetDataFunc: method is nil but Repository.GetData was just called")
	}
	m.mu.Lock()
	m.calls.GetData++
	m.mu.Unlock()
	return m.GetDataFunc(ctx, owner, namespace, key)
}

func (m *repositoryMock) GetDataCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.GetData
}

func (m *repositoryMock) SetData(ctx context.Context, owner, namespace, key string, value []byte) error {
	if m.SetDataFunc == nil {
		panic("repositoryMock.SetDataFunc: method is nil but Repository.SetData was just called")
	}
	m.mu.Lock()
	m.calls.SetData++
	m.mu.Unlock()
	return m.SetDataFunc(ctx, owner, namespace, key, value)
}

func (m *repositoryMock) SetDataCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.SetData
}

func (m *repositoryMock) RemoveData(ctx context.Context, owner, namespace, key string) error {
	if m.RemoveDataFunc == nil {
		panic("repositoryMock.RemoveDataFunc: method is nil but Repository.RemoveData was just called")
	}
	m.mu.Lock()
	m.calls.RemoveData++
	m.mu.Unlock()
	return m.RemoveDataFunc(ctx, owner, namespace, key)
}

func (m *repositoryMock) RemoveDataCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.RemoveData
}

func (m *repositoryMock) GetDataGroups(ctx context.Context, owner, namespace string) ([]string, error) {
	if m.GetDataGroupsFunc == nil {
		panic("repositoryMock.GetDataGroupsFunc: method is nil but Repository.GetDataGroups was just called")
	}
	m.mu.Lock()
	m.calls.GetDataGroups++
	m.mu.Unlock()
	return m.GetDataGroupsFunc(ctx, owner, namespace)
}

func (m *repositoryMock) GetDataGroupsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls.GetDataGroups
}

func (m *repositoryMock) Start(ctx context.Context) error {
	if m.StartFunc == nil {
		panic("repositoryMock.StartFunc: method is nil but Repository.Start was just called")
	}
	return m.StartFunc(ctx)
}

func (m *repositoryMock) Stop(ctx context.Context) error {
	if m.StopFunc == nil {
		panic("repositoryMock.StopFunc: method is nil but Repository.Stop was just called")
	}
	return m.StopFunc(ctx)
}

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

package runqueue

import (
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// RunQueue executes posted functions one at a time in posting order.
// No goroutine is kept alive while the queue is empty.
type RunQueue struct {
	name   string
	logger kitlog.Logger

	mu        sync.Mutex
	queue     []func()
	running   bool
	stopped   bool
	onStopped func()
}

// New returns a new RunQueue instance.
func New(name string, logger kitlog.Logger) *RunQueue {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &RunQueue{
		name:   name,
		logger: logger,
	}
}

// Run enqueues fn for execution. Calls made after Stop are ignored.
func (q *RunQueue) Run(fn func()) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.queue = append(q.queue, fn)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.process()
}

// Stop prevents new functions from being enqueued.
// onStopped is invoked once every pending function has been executed.
func (q *RunQueue) Stop(onStopped func()) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	if q.running {
		q.onStopped = onStopped
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	if onStopped != nil {
		onStopped()
	}
}

func (q *RunQueue) process() {
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.running = false
			onStopped := q.onStopped
			q.onStopped = nil
			q.mu.Unlock()

			if onStopped != nil {
				onStopped()
			}
			return
		}
		fn := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		q.mu.Unlock()

		q.exec(fn)
	}
}

func (q *RunQueue) exec(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			level.Error(q.logger).Log("msg", "run queue panicked", "queue", q.name, "err", err)
		}
	}()
	fn()
}

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

package router

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// Priority defines the delivery priority of an outbound packet.
type Priority uint8

const (
	// HighPriority packets are delivered first.
	HighPriority Priority = iota

	// LowPriority packets may be delayed in favor of high priority ones.
	LowPriority
)

// String satisfies fmt.Stringer interface.
func (p Priority) String() string {
	if p == LowPriority {
		return "low"
	}
	return "high"
}

// Packet represents an outbound stanza along with its delivery priority.
type Packet struct {
	Stanza   stravaganza.Stanza
	Priority Priority

	// Bypass marks server generated packets that must not be subject to privacy filtering.
	Bypass bool
}

// Queue holds outbound packets in emission order.
type Queue struct {
	packets []Packet
}

// Push appends a high priority stanza to the queue.
func (q *Queue) Push(stanza stravaganza.Stanza) {
	q.PushWithPriority(stanza, HighPriority)
}

// PushWithPriority appends a stanza to the queue using a given priority.
// nil stanzas are ignored.
func (q *Queue) PushWithPriority(stanza stravaganza.Stanza, priority Priority) {
	if stanza == nil {
		return
	}
	q.packets = append(q.packets, Packet{Stanza: stanza, Priority: priority})
}

// PushBypass appends a high priority stanza exempted from privacy filtering.
func (q *Queue) PushBypass(stanza stravaganza.Stanza) {
	if stanza == nil {
		return
	}
	q.packets = append(q.packets, Packet{Stanza: stanza, Priority: HighPriority, Bypass: true})
}

// Append moves all packets from other queue to the end of q.
func (q *Queue) Append(other *Queue) {
	if other == nil {
		return
	}
	q.packets = append(q.packets, other.packets...)
	other.packets = nil
}

// Filter keeps only the packets for which fn returns true, preserving order.
func (q *Queue) Filter(fn func(p Packet) bool) {
	kept := q.packets[:0]
	for _, p := range q.packets {
		if fn(p) {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(q.packets); i++ {
		q.packets[i] = Packet{}
	}
	q.packets = kept
}

// Len returns queued packets count.
func (q *Queue) Len() int {
	return len(q.packets)
}

// Packets returns queued packets in emission order.
func (q *Queue) Packets() []Packet {
	return q.packets
}

// Stanzas returns queued stanzas in emission order.
func (q *Queue) Stanzas() []stravaganza.Stanza {
	ret := make([]stravaganza.Stanza, len(q.packets))
	for i, p := range q.packets {
		ret[i] = p.Stanza
	}
	return ret
}

// Router defines the outbound stanza delivery collaborator.
type Router interface {
	// Route delivers a stanza applying server rules for handling XML stanzas.
	Route(ctx context.Context, stanza stravaganza.Stanza) error
}

// Dispatch routes every queued packet, high priority ones first.
// Relative order within the same priority is preserved. The first routing error is returned
// after all packets have been attempted.
func Dispatch(ctx context.Context, r Router, q *Queue) error {
	var firstErr error
	for _, prio := range []Priority{HighPriority, LowPriority} {
		for _, p := range q.packets {
			if p.Priority != prio {
				continue
			}
			if err := r.Route(ctx, p.Stanza); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

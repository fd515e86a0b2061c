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

package repository

import "context"

const (
	// RosterNamespace is the session data namespace used to store roster items.
	RosterNamespace = "roster"

	// PrivacyNamespace is the session data namespace used to store privacy lists.
	PrivacyNamespace = "privacy"

	// SettingsNamespace is the session data namespace used to store per-user scalar settings.
	SettingsNamespace = "settings"
)

// SessionData defines the per-user key/value storage facade.
// Values are opaque binary blobs, nil meaning not present.
type SessionData interface {
	// GetData fetches the value stored under namespace and key.
	GetData(ctx context.Context, owner, namespace, key string) ([]byte, error)

	// SetData stores a value under namespace and key, replacing any previous one.
	SetData(ctx context.Context, owner, namespace, key string, value []byte) error

	// RemoveData deletes the value stored under namespace and key.
	RemoveData(ctx context.Context, owner, namespace, key string) error

	// GetDataGroups returns all keys stored under namespace in ascending order.
	GetDataGroups(ctx context.Context, owner, namespace string) ([]string, error)
}

// Repository represents the global storage interface.
type Repository interface {
	SessionData

	// Start initializes repository.
	Start(ctx context.Context) error

	// Stop releases all underlying repository resources.
	Stop(ctx context.Context) error
}

// DataKey returns the flattened key used by backends that store all namespaces in a single key space.
func DataKey(namespace, key string) string {
	return namespace + "/" + key
}

// DataKeyPrefix returns the flattened prefix shared by all keys of a namespace.
func DataKeyPrefix(namespace string) string {
	return namespace + "/"
}

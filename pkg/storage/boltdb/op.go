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
	"bytes"

	bolt "go.etcd.io/bbolt"
)

type upsertKeyOp struct {
	tx     *bolt.Tx
	bucket string
	key    string
	val    []byte
}

func (op upsertKeyOp) do() error {
	b, err := op.tx.CreateBucketIfNotExists([]byte(op.bucket))
	if err != nil {
		return err
	}
	return b.Put([]byte(op.key), op.val)
}

type delKeyOp struct {
	tx     *bolt.Tx
	bucket string
	key    string
}

func (op delKeyOp) do() error {
	b := op.tx.Bucket([]byte(op.bucket))
	if b == nil {
		return nil
	}
	if err := b.Delete([]byte(op.key)); err != nil {
		return err
	}
	if k, _ := b.Cursor().First(); k == nil {
		return op.tx.DeleteBucket([]byte(op.bucket))
	}
	return nil
}

type fetchKeyOp struct {
	tx     *bolt.Tx
	bucket string
	key    string
}

func (op fetchKeyOp) do() []byte {
	b := op.tx.Bucket([]byte(op.bucket))
	if b == nil {
		return nil
	}
	data := b.Get([]byte(op.key))
	if data == nil {
		return nil
	}
	// returned slice is only valid during the transaction lifetime
	return append([]byte(nil), data...)
}

type iterPrefixOp struct {
	tx     *bolt.Tx
	bucket string
	prefix string
	iterFn func(k, v []byte) error
}

func (op iterPrefixOp) do() error {
	b := op.tx.Bucket([]byte(op.bucket))
	if b == nil {
		return nil
	}
	prefix := []byte(op.prefix)

	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := op.iterFn(k, v); err != nil {
			return err
		}
	}
	return nil
}

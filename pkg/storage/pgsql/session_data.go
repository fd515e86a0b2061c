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

package pgsqlrepository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
)

const sessionDataTableName = "session_data"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type pgSQLSessionDataRep struct {
	conn   conn
	logger kitlog.Logger
}

func (r *pgSQLSessionDataRep) GetData(ctx context.Context, owner, namespace, key string) ([]byte, error) {
	var val []byte

	err := psql.Select("data_value").
		From(sessionDataTableName).
		Where(sq.Eq{"owner": owner}).
		Where(sq.Eq{"namespace": namespace}).
		Where(sq.Eq{"data_key": key}).
		RunWith(r.conn).
		QueryRowContext(ctx).
		Scan(&val)

	switch err {
	case nil:
		return val, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}

func (r *pgSQLSessionDataRep) SetData(ctx context.Context, owner, namespace, key string, value []byte) error {
	_, err := psql.Insert(sessionDataTableName).
		Columns("owner", "namespace", "data_key", "data_value").
		Values(owner, namespace, key, value).
		Suffix("ON CONFLICT (owner, namespace, data_key) DO UPDATE SET data_value = $4").
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *pgSQLSessionDataRep) RemoveData(ctx context.Context, owner, namespace, key string) error {
	_, err := psql.Delete(sessionDataTableName).
		Where(sq.Eq{"owner": owner}).
		Where(sq.Eq{"namespace": namespace}).
		Where(sq.Eq{"data_key": key}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *pgSQLSessionDataRep) GetDataGroups(ctx context.Context, owner, namespace string) ([]string, error) {
	rows, err := psql.Select("data_key").
		From(sessionDataTableName).
		Where(sq.Eq{"owner": owner}).
		Where(sq.Eq{"namespace": namespace}).
		OrderBy("data_key").
		RunWith(r.conn).
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, r.logger)

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

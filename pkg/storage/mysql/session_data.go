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

package mysqlrepository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
)

const sessionDataTableName = "session_data"

var mysql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type mySQLSessionDataRep struct {
	conn   conn
	logger kitlog.Logger
}

func (r *mySQLSessionDataRep) GetData(ctx context.Context, owner, namespace, key string) ([]byte, error) {
	var val []byte

	err := mysql.Select("data_value").
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

func (r *mySQLSessionDataRep) SetData(ctx context.Context, owner, namespace, key string, value []byte) error {
	_, err := mysql.Insert(sessionDataTableName).
		Columns("owner", "namespace", "data_key", "data_value").
		Values(owner, namespace, key, value).
		Suffix("ON DUPLICATE KEY UPDATE data_value = VALUES(data_value)").
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *mySQLSessionDataRep) RemoveData(ctx context.Context, owner, namespace, key string) error {
	_, err := mysql.Delete(sessionDataTableName).
		Where(sq.Eq{"owner": owner}).
		Where(sq.Eq{"namespace": namespace}).
		Where(sq.Eq{"data_key": key}).
		RunWith(r.conn).
		ExecContext(ctx)
	return err
}

func (r *mySQLSessionDataRep) GetDataGroups(ctx context.Context, owner, namespace string) ([]string, error) {
	rows, err := mysql.Select("data_key").
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

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
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	_ "github.com/go-sql-driver/mysql" // SQL driver
)

const pingInterval = time.Second * 15

// Config contains MySQL configuration value.
type Config struct {
	Host            string        `fig:"host"`
	User            string        `fig:"user"`
	Password        string        `fig:"password"`
	Database        string        `fig:"database"`
	PoolSize        int           `fig:"pool_size" default:"16"`
	ConnMaxLifetime time.Duration `fig:"conn_max_lifetime"`
}

type conn interface {
	sq.StdSqlCtx
}

// Repository represents a MySQL repository implementation.
type Repository struct {
	*mySQLSessionDataRep

	cfg    Config
	db     *sql.DB
	doneCh chan chan struct{}
	logger kitlog.Logger
}

// New creates and returns an initialized MySQL Repository instance.
func New(cfg Config, logger kitlog.Logger) *Repository {
	return &Repository{
		cfg:    cfg,
		doneCh: make(chan chan struct{}, 1),
		logger: logger,
	}
}

// Start implements Start interface method.
func (r *Repository) Start(ctx context.Context) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", r.cfg.User, r.cfg.Password, r.cfg.Host, r.cfg.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysqlrepository: failed to open MySQL connection: %v", err)
	}
	db.SetMaxOpenConns(r.cfg.PoolSize)
	db.SetConnMaxLifetime(r.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysqlrepository: unable to verify MySQL connection: %v", err)
	}
	r.db = db
	r.mySQLSessionDataRep = &mySQLSessionDataRep{conn: db, logger: r.logger}

	go r.loop()

	level.Info(r.logger).Log("msg", "dialed MySQL connection", "host", r.cfg.Host)
	return nil
}

// Stop closes MySQL database.
func (r *Repository) Stop(ctx context.Context) error {
	ch := make(chan struct{})
	r.doneCh <- ch
	select {
	case <-ch:
		level.Info(r.logger).Log("msg", "closed MySQL connection", "host", r.cfg.Host)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Repository) loop() {
	tc := time.NewTicker(pingInterval)
	defer tc.Stop()

	for {
		select {
		case <-tc.C:
			if err := r.db.Ping(); err != nil {
				level.Error(r.logger).Log("msg", "MySQL ping failed", "err", err)
			}
		case ch := <-r.doneCh:
			if err := r.db.Close(); err != nil {
				level.Error(r.logger).Log("msg", "failed to close MySQL connection", "err", err)
			}
			close(ch)
			return
		}
	}
}

func closeRows(rows *sql.Rows, logger kitlog.Logger) {
	if err := rows.Close(); err != nil {
		level.Warn(logger).Log("msg", "failed to close SQL rows", "err", err)
	}
}

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

package storage

import (
	"fmt"

	kitlog "github.com/go-kit/log"
	boltdbrepository "github.com/ortuman/jackal-presence/pkg/storage/boltdb"
	breakerrepository "github.com/ortuman/jackal-presence/pkg/storage/breaker"
	cachedrepository "github.com/ortuman/jackal-presence/pkg/storage/cached"
	measuredrepository "github.com/ortuman/jackal-presence/pkg/storage/measured"
	memoryrepository "github.com/ortuman/jackal-presence/pkg/storage/memory"
	mysqlrepository "github.com/ortuman/jackal-presence/pkg/storage/mysql"
	pgsqlrepository "github.com/ortuman/jackal-presence/pkg/storage/pgsql"
	"github.com/ortuman/jackal-presence/pkg/storage/repository"
)

const (
	memoryRepositoryType = "memory"
	boltDBRepositoryType = "boltdb"
	pgSQLRepositoryType  = "pgsql"
	mySQLRepositoryType  = "mysql"
)

// Config contains repository configuration.
type Config struct {
	Type           string                   `fig:"type" default:"memory"`
	BoltDB         boltdbrepository.Config  `fig:"boltdb"`
	PgSQL          pgsqlrepository.Config   `fig:"pgsql"`
	MySQL          mysqlrepository.Config   `fig:"mysql"`
	Cache          cachedrepository.Config  `fig:"cache"`
	CircuitBreaker breakerrepository.Config `fig:"circuit_breaker"`
}

// New returns an initialized repository stack. Layers are applied from the inside out:
// backend, circuit breaker, cache and metrics.
func New(cfg Config, logger kitlog.Logger) (repository.Repository, error) {
	var rep repository.Repository

	switch cfg.Type {
	case memoryRepositoryType:
		rep = memoryrepository.New()
	case boltDBRepositoryType:
		rep = boltdbrepository.New(cfg.BoltDB, logger)
	case pgSQLRepositoryType:
		rep = pgsqlrepository.New(cfg.PgSQL, logger)
	case mySQLRepositoryType:
		rep = mysqlrepository.New(cfg.MySQL, logger)
	default:
		return nil, fmt.Errorf("unrecognized repository type: %s", cfg.Type)
	}
	if cfg.CircuitBreaker.Enabled {
		rep = breakerrepository.New(cfg.CircuitBreaker, rep, logger)
	}
	if len(cfg.Cache.Type) > 0 {
		var err error
		rep, err = cachedrepository.New(cfg.Cache, rep, logger)
		if err != nil {
			return nil, err
		}
	}
	return measuredrepository.New(rep), nil
}

// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Institute of the Czech National Corpus,
//                Faculty of Arts, Charles University
//   This file is part of KORPEXPORT.
//
//  KORPEXPORT is free software: you can redistribute it and/or modify
//  it under the terms of the GNU General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  KORPEXPORT is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU General Public License for more details.
//
//  You should have received a copy of the GNU General Public License
//  along with KORPEXPORT.  If not, see <https://www.gnu.org/licenses/>.

package rdb

import (
	"context"
	"fmt"
	"time"

	"github.com/czcorpus/cnc-gokit/datetime"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	dfltHost = "localhost"
	dfltPort = 6379
	dfltTTL  = "10m"
)

type Conf struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DB       int    `json:"db"`
	Password string `json:"password"`

	// TTL specifies how long cached query results are kept
	// (e.g. `30m`, `2h`)
	TTL string `json:"ttl"`

	ttl time.Duration
}

func (conf *Conf) TTLDuration() time.Duration {
	return conf.ttl
}

func (conf *Conf) ValidateAndDefaults(confContext string) error {
	if conf.Host == "" {
		conf.Host = dfltHost
		log.Warn().Str("host", conf.Host).Msgf("%s.host not set, using default", confContext)
	}
	if conf.Port == 0 {
		conf.Port = dfltPort
		log.Warn().Int("port", conf.Port).Msgf("%s.port not set, using default", confContext)
	}
	if conf.TTL == "" {
		conf.TTL = dfltTTL
		log.Warn().Str("ttl", conf.TTL).Msgf("%s.ttl not set, using default", confContext)
	}
	var err error
	conf.ttl, err = datetime.ParseDuration(conf.TTL)
	if err != nil {
		return fmt.Errorf("invalid %s.ttl: %w", confContext, err)
	}
	if conf.ttl <= 0 {
		return fmt.Errorf("invalid %s.ttl: value must be positive", confContext)
	}
	return nil
}

// redisClient is the part of the Redis API the adapter needs
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

type Adapter struct {
	ctx context.Context
	c   redisClient
}

// TestConnection pings the Redis server repeatedly until it
// responds or until the timeout elapses.
func (a *Adapter) TestConnection(timeout time.Duration) error {
	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
	timeoutCh := time.After(timeout)
	for {
		err := a.c.Ping(a.ctx).Err()
		if err == nil {
			log.Info().Msg("Redis connection OK")
			return nil
		}
		log.Error().Err(err).Msg("failed to connect to Redis, will retry")
		select {
		case <-timeoutCh:
			return fmt.Errorf("failed to connect to Redis: %w", err)
		case <-tick.C:
		}
	}
}

func NewAdapter(conf *Conf) *Adapter {
	return &Adapter{
		c: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", conf.Host, conf.Port),
			Password: conf.Password,
			DB:       conf.DB,
		}),
		ctx: context.Background(),
	}
}

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
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"korpexport/backend"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const cacheKeyPrefix = "korpexport:result:"

type cacheEntry struct {
	Created time.Time `json:"created"`
	Command string    `json:"command,omitempty"`
	Data    string    `json:"data"`
}

// CacheKey creates a key of a backend request. Parameter order
// does not matter.
func CacheKey(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buff strings.Builder
	for _, k := range keys {
		buff.WriteString(k)
		buff.WriteByte('=')
		buff.WriteString(params[k])
		buff.WriteByte(0)
	}
	hashKey := sha1.Sum([]byte(buff.String()))
	return cacheKeyPrefix + hex.EncodeToString(hashKey[:])
}

func isErrorResult(data []byte) bool {
	var probe struct {
		Error any `json:"ERROR"`
	}
	if err := sonic.Unmarshal(data, &probe); err != nil {
		return true
	}
	return probe.Error != nil
}

// ResultCache wraps a backend and keeps its responses in Redis.
// Error responses are never cached. Redis failures are logged
// and the backend is queried directly.
type ResultCache struct {
	adapter *Adapter
	backend backend.Backend
	ttl     time.Duration
}

func (rc *ResultCache) ServerURL() string {
	return rc.backend.ServerURL()
}

func (rc *ResultCache) QueryRaw(ctx context.Context, params map[string]string) ([]byte, error) {
	key := CacheKey(params)
	cmd := rc.adapter.c.Get(ctx, key)
	if err := cmd.Err(); err == nil {
		var entry cacheEntry
		if err := sonic.UnmarshalString(cmd.Val(), &entry); err == nil {
			log.Debug().
				Str("key", key).
				Time("created", entry.Created).
				Msg("using cached backend result")
			return []byte(entry.Data), nil
		}
		log.Warn().Str("key", key).Msg("invalid result cache entry, ignoring")

	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Msg("failed to read result cache")
	}

	data, err := rc.backend.QueryRaw(ctx, params)
	if err != nil {
		return nil, err
	}
	if isErrorResult(data) {
		return data, nil
	}
	raw, err := sonic.MarshalString(cacheEntry{
		Created: time.Now(),
		Command: params["command"],
		Data:    string(data),
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize result cache entry")
		return data, nil
	}
	if err := rc.adapter.c.Set(ctx, key, raw, rc.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to write result cache")
	}
	return data, nil
}

func NewResultCache(adapter *Adapter, b backend.Backend, ttl time.Duration) *ResultCache {
	return &ResultCache{
		adapter: adapter,
		backend: b,
		ttl:     ttl,
	}
}

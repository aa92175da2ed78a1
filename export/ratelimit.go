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

package export

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterTTL = 15 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client IP address.
// Buckets of clients inactive for limiterTTL are dropped.
type RateLimiter struct {
	limiters  map[string]*clientLimiter
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	ttl       time.Duration
	lastPurge time.Time
}

func (rl *RateLimiter) Allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.Sub(rl.lastPurge) > rl.ttl {
		for k, v := range rl.limiters {
			if now.Sub(v.lastSeen) > rl.ttl {
				delete(rl.limiters, k)
			}
		}
		rl.lastPurge = now
	}
	cl, ok := rl.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) NumClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func NewRateLimiter(rateLimit rate.Limit, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      rateLimit,
		burst:     burst,
		ttl:       ttl,
		lastPurge: time.Now(),
	}
}

// RateLimitMiddleware limits the number of requests per client IP
func RateLimitMiddleware(requestsPerMinute, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(
		rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst, limiterTTL)
	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if ip == "" {
			ip = ctx.RemoteIP()
		}
		if !limiter.Allow(ip, time.Now()) {
			uniresp.RespondWithErrorJSON(
				ctx, errors.New("rate limit exceeded"), http.StatusTooManyRequests)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

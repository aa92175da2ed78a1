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

package worker

import (
	"context"
	"fmt"
	"time"

	"korpexport/merror"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPoolSize    = 4
	poolReleaseTimeout = 3 * time.Second
)

// RenderPool bounds the number of exports rendered concurrently.
// Submitting blocks while all the workers are busy.
type RenderPool struct {
	pool *ants.Pool
}

type outcome[T any] struct {
	value T
	err   error
}

// Run executes fn in the pool and waits for its result. A panic
// in fn is returned as merror.RecoveredError, an expired ctx
// as merror.TimeoutError (fn itself is not interrupted).
func Run[T any](ctx context.Context, rp *RenderPool, fn func() (T, error)) (T, error) {
	var zero T
	ch := make(chan outcome[T], 1)
	err := rp.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				err := merror.PanicValueToErr(r)
				log.Error().Err(err).Msg("rendering failed")
				ch <- outcome[T]{err: merror.RecoveredError{Msg: err.Error()}}
			}
		}()
		v, err := fn()
		ch <- outcome[T]{value: v, err: err}
	})
	if err != nil {
		return zero, fmt.Errorf("failed to schedule rendering: %w", err)
	}
	select {
	case <-ctx.Done():
		return zero, merror.TimeoutError{Msg: fmt.Sprintf("rendering not finished in time: %s", ctx.Err())}
	case ans := <-ch:
		return ans.value, ans.err
	}
}

func (rp *RenderPool) Running() int {
	return rp.pool.Running()
}

func (rp *RenderPool) Cap() int {
	return rp.pool.Cap()
}

func (rp *RenderPool) Start(ctx context.Context) {
	log.Info().Int("size", rp.pool.Cap()).Msg("starting render pool")
}

func (rp *RenderPool) Stop(ctx context.Context) error {
	log.Info().Msg("shutting down render pool")
	return rp.pool.ReleaseTimeout(poolReleaseTimeout)
}

func NewRenderPool(size int) (*RenderPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		log.Error().Any("value", v).Msg("render pool worker panic")
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create render pool: %w", err)
	}
	return &RenderPool{pool: pool}, nil
}

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

package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/rs/zerolog/log"
)

const (
	recentLogSize       = 100
	totalsResetInterval = 24 * time.Hour
	totalsCheckInterval = 60 * time.Second
)

// StatusWriter is a destination of export records other
// than the in-memory log
type StatusWriter interface {
	Write(rec ExportRecord)
}

// ExportLogger keeps statistics of all the exports since the last
// reset and a log of the most recent ones.
type ExportLogger struct {
	totals       ExportsLoad
	dataLock     sync.RWMutex
	recentLog    *collections.CircularList[ExportRecord]
	tz           *time.Location
	statusWriter StatusWriter
}

func (w *ExportLogger) Log(rec ExportRecord) {
	w.dataLock.Lock()
	defer w.dataLock.Unlock()
	w.totals.add(rec)
	w.recentLog.Append(rec)
	if w.statusWriter != nil {
		w.statusWriter.Write(rec)
	}
}

func (w *ExportLogger) TotalLoad() ExportsLoad {
	w.dataLock.RLock()
	defer w.dataLock.RUnlock()
	ans := w.totals
	ans.ByFormat = make(map[string]int, len(w.totals.ByFormat))
	for k, v := range w.totals.ByFormat {
		ans.ByFormat[k] = v
	}
	return ans
}

func (w *ExportLogger) RecentLoad() ExportsLoad {
	w.dataLock.RLock()
	defer w.dataLock.RUnlock()
	var ans ExportsLoad
	w.recentLog.ForEach(func(i int, item ExportRecord) bool {
		ans.add(item)
		return true
	})
	return ans
}

func (w *ExportLogger) RecentRecords() []ExportRecord {
	w.dataLock.RLock()
	defer w.dataLock.RUnlock()
	ans := make([]ExportRecord, w.recentLog.Len())
	w.recentLog.ForEach(func(i int, item ExportRecord) bool {
		ans[i] = item
		return true
	})
	return ans
}

func (w *ExportLogger) resetStaleTotals(now time.Time) {
	w.dataLock.Lock()
	defer w.dataLock.Unlock()
	if !w.totals.LastUpdate.IsZero() && now.Sub(w.totals.LastUpdate) > totalsResetInterval {
		log.Info().
			Int("numExports", w.totals.NumExports).
			Msg("resetting stale export totals")
		w.totals = ExportsLoad{}
	}
}

func (w *ExportLogger) Start(ctx context.Context) {
	log.Info().Msg("starting export logger")
	go func() {
		ticker := time.NewTicker(totalsCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("requesting export logger stop")
				return
			case <-ticker.C:
				w.resetStaleTotals(time.Now().In(w.tz))
			}
		}
	}()
}

func (w *ExportLogger) Stop(ctx context.Context) error {
	log.Info().Msg("shutting down export logger")
	return nil
}

func NewExportLogger(statusWriter StatusWriter, tz *time.Location) *ExportLogger {
	return &ExportLogger{
		statusWriter: statusWriter,
		tz:           tz,
		recentLog:    collections.NewCircularList[ExportRecord](recentLogSize),
	}
}

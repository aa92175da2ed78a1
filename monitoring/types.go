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
	"time"

	"github.com/bytedance/sonic"
)

// ExportRecord describes a single finished export
type ExportRecord struct {
	ID           string
	Format       string
	Corpora      []string
	NumSentences int
	NumBytes     int
	Begin        time.Time
	End          time.Time
	Err          error
}

func (rec ExportRecord) TimeSpent() time.Duration {
	return rec.End.Sub(rec.Begin)
}

func (rec ExportRecord) MarshalJSON() ([]byte, error) {
	var errMsg string
	if rec.Err != nil {
		errMsg = rec.Err.Error()
	}
	return sonic.Marshal(
		struct {
			ID           string    `json:"id"`
			Format       string    `json:"format"`
			Corpora      []string  `json:"corpora,omitempty"`
			NumSentences int       `json:"numSentences"`
			NumBytes     int       `json:"numBytes"`
			Begin        time.Time `json:"begin"`
			End          time.Time `json:"end"`
			TimeSpent    float64   `json:"timeSpentSecs"`
			Error        string    `json:"error,omitempty"`
		}{
			ID:           rec.ID,
			Format:       rec.Format,
			Corpora:      rec.Corpora,
			NumSentences: rec.NumSentences,
			NumBytes:     rec.NumBytes,
			Begin:        rec.Begin,
			End:          rec.End,
			TimeSpent:    rec.TimeSpent().Seconds(),
			Error:        errMsg,
		},
	)
}

// ---

type ExportsLoad struct {
	NumExports    int
	TotalTimeSecs float64
	NumErrors     int
	NumBytes      int64
	FirstUpdate   time.Time
	LastUpdate    time.Time
	ByFormat      map[string]int
}

// TotalSpan returns time span covered by the load info
func (el ExportsLoad) TotalSpan() time.Duration {
	return el.LastUpdate.Sub(el.FirstUpdate)
}

func (el ExportsLoad) AvgTimeSecs() float64 {
	if el.NumExports == 0 {
		return 0
	}
	return el.TotalTimeSecs / float64(el.NumExports)
}

func (el *ExportsLoad) add(rec ExportRecord) {
	if el.NumExports == 0 {
		el.FirstUpdate = rec.Begin
	}
	el.NumExports++
	el.LastUpdate = rec.End
	if rec.Err != nil {
		el.NumErrors++
	}
	el.NumBytes += int64(rec.NumBytes)
	el.TotalTimeSecs += rec.TimeSpent().Seconds()
	if el.ByFormat == nil {
		el.ByFormat = make(map[string]int)
	}
	el.ByFormat[rec.Format]++
}

func (el ExportsLoad) MarshalJSON() ([]byte, error) {
	var t0, t1 *time.Time
	if !el.FirstUpdate.IsZero() {
		t0 = &el.FirstUpdate
	}
	if !el.LastUpdate.IsZero() {
		t1 = &el.LastUpdate
	}
	return sonic.Marshal(
		struct {
			NumExports    int            `json:"numExports"`
			TotalTimeSecs float64        `json:"totalTimeSecs"`
			NumErrors     int            `json:"numErrors"`
			NumBytes      int64          `json:"numBytes"`
			FirstUpdate   *time.Time     `json:"firstUpdate,omitempty"`
			LastUpdate    *time.Time     `json:"lastUpdate,omitempty"`
			AvgTimeSecs   float64        `json:"avgTimeSecs"`
			ByFormat      map[string]int `json:"byFormat"`
		}{
			NumExports:    el.NumExports,
			TotalTimeSecs: el.TotalTimeSecs,
			NumErrors:     el.NumErrors,
			NumBytes:      el.NumBytes,
			FirstUpdate:   t0,
			LastUpdate:    t1,
			AvgTimeSecs:   el.AvgTimeSecs(),
			ByFormat:      el.ByFormat,
		},
	)
}

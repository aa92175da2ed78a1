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
	"time"

	"github.com/czcorpus/hltscl"
	"github.com/rs/zerolog/log"
)

/*
Expected table:

create table korpexport_stats (
  "time" timestamp with time zone NOT NULL,
  format text,
  num_exports int,
  num_errors int,
  num_sentences int,
  num_bytes int,
  duration_secs float
);

select create_hypertable('korpexport_stats', 'time');
*/

const (
	statsTableName = "korpexport_stats"
)

type Conf struct {
	DB hltscl.PgConf `json:"db"`
}

// -----------------------------------

type TimescaleDBWriter struct {
	tableWriter *hltscl.TableWriter
	opsDataCh   chan<- hltscl.Entry
	errCh       <-chan hltscl.WriteError
	location    *time.Location
}

func (sw *TimescaleDBWriter) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("about to close StatusWriter")
				return
			case err := <-sw.errCh:
				log.Error().
					Err(err.Err).
					Str("entry", err.Entry.String()).
					Str("table", statsTableName).
					Msg("error writing data to TimescaleDB")
			}
		}
	}()
}

func (sw *TimescaleDBWriter) Stop(ctx context.Context) error {
	log.Warn().Msg("stopping StatusWriter")
	return nil
}

func (sw *TimescaleDBWriter) Write(rec ExportRecord) {
	var numErr int
	if rec.Err != nil {
		numErr++
	}
	sw.opsDataCh <- *sw.tableWriter.NewEntry(rec.End.In(sw.location)).
		Str("format", rec.Format).
		Int("num_exports", 1).
		Int("num_errors", numErr).
		Int("num_sentences", rec.NumSentences).
		Int("num_bytes", rec.NumBytes).
		Float("duration_secs", rec.TimeSpent().Seconds())
}

func NewTimescaleDBWriter(
	ctx context.Context,
	conf hltscl.PgConf,
	tz *time.Location,
) (*TimescaleDBWriter, error) {

	conn, err := hltscl.CreatePool(conf)
	if err != nil {
		return nil, err
	}
	twriter := hltscl.NewTableWriter(conn, statsTableName, "time", tz)
	opsDataCh, errCh := twriter.Activate(
		ctx,
		hltscl.WithTimeout(20*time.Second),
	)
	return &TimescaleDBWriter{
		tableWriter: twriter,
		opsDataCh:   opsDataCh,
		errCh:       errCh,
		location:    tz,
	}, nil
}

// -----------------------------------

// MultiWriter passes records to all its writers
type MultiWriter []StatusWriter

func (mw MultiWriter) Write(rec ExportRecord) {
	for _, w := range mw {
		w.Write(rec)
	}
}

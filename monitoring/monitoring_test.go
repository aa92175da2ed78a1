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
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	records []ExportRecord
}

func (rw *recordingWriter) Write(rec ExportRecord) {
	rw.records = append(rw.records, rec)
}

func mkRecord(format string, secs int, err error) ExportRecord {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return ExportRecord{
		ID:           "x",
		Format:       format,
		NumSentences: 10,
		NumBytes:     100,
		Begin:        t0,
		End:          t0.Add(time.Duration(secs) * time.Second),
		Err:          err,
	}
}

func TestExportLoggerTotals(t *testing.T) {
	rw := &recordingWriter{}
	logger := NewExportLogger(MultiWriter{rw}, time.UTC)
	logger.Log(mkRecord("csv", 2, nil))
	logger.Log(mkRecord("json", 4, errors.New("failed")))
	logger.Log(mkRecord("csv", 3, nil))

	total := logger.TotalLoad()
	assert.Equal(t, 3, total.NumExports)
	assert.Equal(t, 1, total.NumErrors)
	assert.Equal(t, int64(300), total.NumBytes)
	assert.InDelta(t, 9.0, total.TotalTimeSecs, 0.001)
	assert.InDelta(t, 3.0, total.AvgTimeSecs(), 0.001)
	assert.Equal(t, map[string]int{"csv": 2, "json": 1}, total.ByFormat)
	assert.Len(t, rw.records, 3)

	recent := logger.RecentLoad()
	assert.Equal(t, 3, recent.NumExports)
	assert.Len(t, logger.RecentRecords(), 3)
	assert.Equal(t, "json", logger.RecentRecords()[1].Format)
}

func TestExportLoggerRecentIsBounded(t *testing.T) {
	logger := NewExportLogger(nil, time.UTC)
	for i := 0; i < recentLogSize+20; i++ {
		logger.Log(mkRecord("csv", 1, nil))
	}
	assert.Len(t, logger.RecentRecords(), recentLogSize)
	assert.Equal(t, recentLogSize+20, logger.TotalLoad().NumExports)
}

func TestResetStaleTotals(t *testing.T) {
	logger := NewExportLogger(nil, time.UTC)
	rec := mkRecord("csv", 1, nil)
	logger.Log(rec)
	logger.resetStaleTotals(rec.End.Add(time.Hour))
	assert.Equal(t, 1, logger.TotalLoad().NumExports)
	logger.resetStaleTotals(rec.End.Add(25 * time.Hour))
	assert.Equal(t, 0, logger.TotalLoad().NumExports)
	assert.Len(t, logger.RecentRecords(), 1)
}

func TestExportRecordJSON(t *testing.T) {
	data, err := sonic.Marshal(mkRecord("csv", 2, errors.New("boom")))
	require.NoError(t, err)
	var ans map[string]any
	require.NoError(t, sonic.Unmarshal(data, &ans))
	assert.Equal(t, "csv", ans["format"])
	assert.Equal(t, "boom", ans["error"])
	assert.Equal(t, 2.0, ans["timeSpentSecs"])
}

func TestEmptyLoadJSON(t *testing.T) {
	data, err := sonic.Marshal(ExportsLoad{})
	require.NoError(t, err)
	var ans map[string]any
	require.NoError(t, sonic.Unmarshal(data, &ans))
	assert.NotContains(t, ans, "firstUpdate")
	assert.Equal(t, 0.0, ans["avgTimeSecs"])
}

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestPrometheusWriter(t *testing.T) {
	labels := map[string]string{"format": "vrt", "status": "ok"}
	before := counterValue(t, "korpexport_exports_total", labels)
	PrometheusWriter{}.Write(mkRecord("vrt", 1, nil))
	PrometheusWriter{}.Write(mkRecord("vrt", 1, errors.New("x")))
	assert.Equal(t, before+1, counterValue(t, "korpexport_exports_total", labels))
	assert.Equal(
		t, 1.0,
		counterValue(t, "korpexport_exports_total", map[string]string{"format": "vrt", "status": "error"}))
}

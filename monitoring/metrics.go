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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "korpexport_exports_total",
			Help: "Total number of exports",
		},
		[]string{"format", "status"},
	)
	exportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "korpexport_export_duration_seconds",
			Help:    "Export processing time in seconds (including the backend query)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)
	exportSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "korpexport_export_size_bytes",
			Help:    "Size of produced exports in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"format"},
	)
	exportedSentences = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "korpexport_sentences_total",
			Help: "Total number of exported KWIC sentences",
		},
		[]string{"format"},
	)
)

// PrometheusWriter reports export records to the Prometheus
// collectors exposed via the `/metrics` endpoint
type PrometheusWriter struct{}

func (pw PrometheusWriter) Write(rec ExportRecord) {
	status := "ok"
	if rec.Err != nil {
		status = "error"
	}
	exportsTotal.WithLabelValues(rec.Format, status).Inc()
	exportDuration.WithLabelValues(rec.Format).Observe(rec.TimeSpent().Seconds())
	if rec.Err == nil {
		exportSize.WithLabelValues(rec.Format).Observe(float64(rec.NumBytes))
		exportedSentences.WithLabelValues(rec.Format).Add(float64(rec.NumSentences))
	}
}

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

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"korpexport/monitoring"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(logger *monitoring.ExportLogger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	actions := NewActions(logger)
	engine.GET("/monitoring/exports", actions.ExportsLoad)
	engine.GET("/monitoring/exports/recent", actions.RecentRecords)
	return engine
}

func TestExportsLoad(t *testing.T) {
	logger := monitoring.NewExportLogger(nil, time.UTC)
	t0 := time.Now()
	logger.Log(monitoring.ExportRecord{Format: "csv", Begin: t0, End: t0.Add(time.Second)})
	engine := newEngine(logger)

	for _, span := range []string{"recent", "total"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitoring/exports?span="+span, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var ans map[string]any
		require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &ans))
		assert.Equal(t, 1.0, ans["numExports"])
	}
}

func TestExportsLoadInvalidSpan(t *testing.T) {
	engine := newEngine(monitoring.NewExportLogger(nil, time.UTC))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitoring/exports?span=week", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentRecords(t *testing.T) {
	logger := monitoring.NewExportLogger(nil, time.UTC)
	logger.Log(monitoring.ExportRecord{ID: "a1", Format: "json"})
	engine := newEngine(logger)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitoring/exports/recent", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ans []map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &ans))
	require.Len(t, ans, 1)
	assert.Equal(t, "a1", ans[0]["id"])
}

func TestRecentRecordsLimit(t *testing.T) {
	logger := monitoring.NewExportLogger(nil, time.UTC)
	for _, id := range []string{"a1", "a2", "a3"} {
		logger.Log(monitoring.ExportRecord{ID: id, Format: "csv"})
	}
	engine := newEngine(logger)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitoring/exports/recent?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ans []map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &ans))
	require.Len(t, ans, 2)
	assert.Equal(t, "a2", ans[0]["id"])
	assert.Equal(t, "a3", ans[1]["id"])
}

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
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"korpexport/export"
	"korpexport/formats"
	"korpexport/merror"
	"korpexport/monitoring"
	"korpexport/worker"

	"github.com/bytedance/sonic"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResult = `{"hits": 1, "kwic": [{"corpus": "NEWS", "match": {"start": 1, "end": 2},
	"tokens": [{"word": "The"}, {"word": "cat"}, {"word": "sat"}]}]}`

func newEngine(t *testing.T) (*gin.Engine, *monitoring.ExportLogger) {
	gin.SetMode(gin.TestMode)
	conf := &export.Conf{}
	require.NoError(t, conf.ValidateAndDefaults("export"))
	reg, err := formats.Default()
	require.NoError(t, err)
	pool, err := worker.NewRenderPool(1)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Stop(context.Background()) })
	logger := monitoring.NewExportLogger(nil, time.UTC)
	actions := NewActions(export.NewExporter(conf, reg, nil, pool, logger, "", ""))
	engine := gin.New()
	engine.Use(uniresp.AlwaysJSONContentType())
	engine.GET("/export", actions.Export)
	engine.POST("/export", export.RateLimitMiddleware(60, 2), actions.Export)
	engine.GET("/formats", actions.Formats)
	return engine, logger
}

func postForm(engine *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	engine.ServeHTTP(w, req)
	return w
}

func TestExportAction(t *testing.T) {
	engine, logger := newEngine(t)
	w := postForm(engine, url.Values{
		"format":              {"tsv"},
		"query_result":        {testResult},
		"show_info":           {"False"},
		"show_field_headings": {"False"},
		"sentence_fields":     {"left_context,match,right_context"},
		"filename":            {"cats.tsv"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "The\tcat\tsat\n\n", w.Body.String())
	assert.Equal(t, "text/tsv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=cats.tsv", w.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, w.Header().Get("X-Export-Id"))
	assert.Equal(t, 1, logger.TotalLoad().NumExports)
}

func TestExportActionQueryString(t *testing.T) {
	engine, _ := newEngine(t)
	w := httptest.NewRecorder()
	engine.ServeHTTP(
		w,
		httptest.NewRequest(
			http.MethodGet,
			"/export?format=json&indent=0&query_result="+url.QueryEscape(testResult),
			nil,
		),
	)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "["))
}

func TestExportActionUnsupportedFormat(t *testing.T) {
	engine, logger := newEngine(t)
	w := postForm(engine, url.Values{"format": {"pdf"}, "query_result": {testResult}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported format: pdf")
	assert.Equal(t, 1, logger.TotalLoad().NumErrors)
}

func TestExportActionRateLimit(t *testing.T) {
	engine, _ := newEngine(t)
	form := url.Values{"format": {"json"}, "query_result": {testResult}}
	assert.Equal(t, http.StatusOK, postForm(engine, form).Code)
	assert.Equal(t, http.StatusOK, postForm(engine, form).Code)
	assert.Equal(t, http.StatusTooManyRequests, postForm(engine, form).Code)
}

func TestFormatsAction(t *testing.T) {
	engine, _ := newEngine(t)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/formats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ans []formats.Info
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &ans))
	names := make([]string, len(ans))
	for i, v := range ans {
		names[i] = v.Names[0]
	}
	assert.Contains(t, names, "csv")
	assert.Contains(t, names, "xlsx")
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errorStatus(merror.InputError{Msg: "x"}))
	assert.Equal(t, http.StatusBadRequest, errorStatus(merror.UnsupportedFormatError{Format: "x"}))
	assert.Equal(t, http.StatusGatewayTimeout, errorStatus(merror.TimeoutError{Msg: "x"}))
	assert.Equal(
		t,
		http.StatusBadGateway,
		errorStatus(fmt.Errorf("%w: timeout", export.ErrBackendFailure)),
	)
	assert.Equal(t, http.StatusInternalServerError, errorStatus(errors.New("x")))
}

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
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"korpexport/export"
	"korpexport/merror"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxFormMemory = 32 << 20

type Actions struct {
	exporter *export.Exporter
}

func requestForm(req *http.Request) (map[string]string, error) {
	if err := req.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, merror.InputError{Msg: fmt.Sprintf("failed to parse request: %s", err)}
	}
	ans := make(map[string]string, len(req.Form))
	for k, v := range req.Form {
		if len(v) > 0 {
			ans[k] = v[0]
		}
	}
	return ans, nil
}

func errorStatus(err error) int {
	var ufErr merror.UnsupportedFormatError
	var inpErr merror.InputError
	var tmErr merror.TimeoutError
	switch {
	case errors.As(err, &ufErr), errors.As(err, &inpErr):
		return http.StatusBadRequest
	case errors.As(err, &tmErr):
		return http.StatusGatewayTimeout
	case errors.Is(err, export.ErrBackendFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Export godoc
// @Summary      Export
// @Description  Export a Korp query result (either posted as `query_result` or obtained from the backend using the query parameters) in the requested format
// @Accept       x-www-form-urlencoded
// @Produce      octet-stream
// @Param        format query string false "format name(s), e.g. `csv` or `sentences,tsv`"
// @Param        subformat query string false "comma-separated subformats"
// @Param        query_result formData string false "query result in JSON"
// @Param        query_params formData string false "backend query parameters in JSON"
// @Param        filename query string false "name of the downloaded file"
// @Param        charset query string false "charset of the downloaded file"
// @Success      200 {file} binary
// @Router       /export [post]
func (a *Actions) Export(ctx *gin.Context) {
	form, err := requestForm(ctx.Request)
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusBadRequest)
		return
	}
	logging.AddLogEvent(ctx, "format", form["format"])
	logging.AddLogEvent(ctx, "subformat", form["subformat"])
	if v, ok := form["corpus"]; ok {
		logging.AddLogEvent(ctx, "corpus", v)
	}
	dl, err := a.exporter.Export(ctx.Request.Context(), form)
	if err != nil {
		status := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("export failed")
		}
		uniresp.RespondWithErrorJSON(ctx, err, status)
		return
	}
	logging.AddLogEvent(ctx, "exportId", dl.ID)
	ctx.Header("Content-Type", dl.ContentType())
	ctx.Header(
		"Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}),
	)
	ctx.Header("Content-Length", strconv.Itoa(len(dl.Content)))
	ctx.Header("X-Export-Id", dl.ID)
	ctx.Status(http.StatusOK)
	if _, err := ctx.Writer.Write(dl.Content); err != nil {
		log.Error().Err(err).Str("exportId", dl.ID).Msg("failed to write export")
	}
}

// Formats godoc
// @Summary      Formats
// @Description  List supported export formats
// @Produce      json
// @Success      200 {object} []formats.Info
// @Router       /formats [get]
func (a *Actions) Formats(ctx *gin.Context) {
	uniresp.WriteJSONResponse(ctx.Writer, a.exporter.Registry().Infos())
}

func NewActions(exporter *export.Exporter) *Actions {
	return &Actions{
		exporter: exporter,
	}
}

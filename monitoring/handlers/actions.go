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
	"fmt"
	"net/http"

	"korpexport/monitoring"

	"github.com/czcorpus/cnc-gokit/unireq"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
)

type timeSpan string

func (ts timeSpan) Validate() error {
	if ts != spanTypeRecent && ts != spanTypeTotal {
		return fmt.Errorf("unknown time span `%s`", ts)
	}
	return nil
}

const (
	spanTypeRecent timeSpan = "recent"
	spanTypeTotal  timeSpan = "total"
)

type Actions struct {
	logger *monitoring.ExportLogger
}

// ExportsLoad godoc
// @Summary      ExportsLoad
// @Description  Show statistics of either recent or all exports
// @Produce      json
// @Param        span query string false "time span" enums(recent, total) default(recent)
// @Success      200 {object} any
// @Router       /monitoring/exports [get]
func (a *Actions) ExportsLoad(ctx *gin.Context) {
	span := timeSpan(ctx.DefaultQuery("span", "recent"))
	if err := span.Validate(); err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusBadRequest)
		return
	}
	var ans monitoring.ExportsLoad
	if span == spanTypeRecent {
		ans = a.logger.RecentLoad()

	} else if span == spanTypeTotal {
		ans = a.logger.TotalLoad()
	}
	uniresp.WriteJSONResponse(ctx.Writer, ans)
}

// RecentRecords godoc
// @Summary      RecentRecords
// @Description  List the most recent export records (newest last)
// @Produce      json
// @Param        limit query int false "max. number of records (0 = all)" default(0)
// @Success      200 {object} any
// @Router       /monitoring/exports/recent [get]
func (a *Actions) RecentRecords(ctx *gin.Context) {
	limit, ok := unireq.GetURLIntArgOrFail(ctx, "limit", 0)
	if !ok {
		return
	}
	ans := a.logger.RecentRecords()
	if limit > 0 && limit < len(ans) {
		ans = ans[len(ans)-limit:]
	}
	uniresp.WriteJSONResponse(ctx.Writer, ans)
}

func NewActions(logger *monitoring.ExportLogger) *Actions {
	return &Actions{
		logger: logger,
	}
}

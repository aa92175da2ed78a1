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

package export

import (
	"fmt"

	"korpexport/options"
	"korpexport/tpl"
	"korpexport/worker"

	"github.com/rs/zerolog/log"
)

const (
	dfltFormat            = "json"
	dfltFilenameFormat    = "korp_kwic_{cqpwords:.60}_{date}_{time}{ext}"
	dfltRenderTimeoutSecs = 120
	dfltRequestsPerMinute = 60
	dfltRequestBurst      = 10
)

type Conf struct {

	// FilenameFormat overrides the `filename_format` request
	// parameter if set
	FilenameFormat string `json:"filenameFormat"`

	DefaultFormat        string `json:"defaultFormat"`
	MaxConcurrentRenders int    `json:"maxConcurrentRenders"`
	RenderTimeoutSecs    int    `json:"renderTimeoutSecs"`
	RequestsPerMinute    int    `json:"requestsPerMinute"`
	RequestBurst         int    `json:"requestBurst"`

	// Options override default options of all the formats
	// (request parameters still take precedence)
	Options map[string]any `json:"options"`

	// ValidateQueryResult enables JSON schema validation of query
	// results posted by clients
	ValidateQueryResult bool `json:"validateQueryResult"`

	optionOverrides options.Table
}

// OptionOverrides returns configured format options
// converted to an option table
func (conf *Conf) OptionOverrides() options.Table {
	if conf.optionOverrides == nil {
		return options.FromJSON(conf.Options)
	}
	return conf.optionOverrides
}

func (conf *Conf) ValidateAndDefaults(confContext string) error {
	if conf == nil {
		return fmt.Errorf("missing configuration section `%s`", confContext)
	}
	if conf.DefaultFormat == "" {
		conf.DefaultFormat = dfltFormat
		log.Warn().
			Str("value", conf.DefaultFormat).
			Msgf("%s.defaultFormat not set, using default", confContext)
	}
	if conf.FilenameFormat != "" {
		if err := tpl.Validate(conf.FilenameFormat); err != nil {
			return fmt.Errorf("invalid %s.filenameFormat: %w", confContext, err)
		}
	}
	if conf.MaxConcurrentRenders <= 0 {
		conf.MaxConcurrentRenders = worker.DefaultPoolSize
		log.Warn().
			Int("value", conf.MaxConcurrentRenders).
			Msgf("%s.maxConcurrentRenders not set, using default", confContext)
	}
	if conf.RenderTimeoutSecs <= 0 {
		conf.RenderTimeoutSecs = dfltRenderTimeoutSecs
		log.Warn().
			Int("value", conf.RenderTimeoutSecs).
			Msgf("%s.renderTimeoutSecs not set, using default", confContext)
	}
	if conf.RequestsPerMinute <= 0 {
		conf.RequestsPerMinute = dfltRequestsPerMinute
		log.Warn().
			Int("value", conf.RequestsPerMinute).
			Msgf("%s.requestsPerMinute not set, using default", confContext)
	}
	if conf.RequestBurst <= 0 {
		conf.RequestBurst = dfltRequestBurst
		log.Warn().
			Int("value", conf.RequestBurst).
			Msgf("%s.requestBurst not set, using default", confContext)
	}
	conf.optionOverrides = options.FromJSON(conf.Options)
	if err := options.ValidateTemplates(conf.optionOverrides); err != nil {
		return fmt.Errorf("invalid %s.options: %w", confContext, err)
	}
	return nil
}

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

package backend

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	dfltRequestTimeoutSecs  = 60
	dfltIdleConnTimeoutSecs = 30
)

// Conf configures the query backend. The ServerURL is either
// an HTTP(S) URL of a Korp server or a path to a Korp CGI program
// which is then run as a subprocess.
type Conf struct {
	ServerURL           string `json:"serverUrl"`
	FrontendURL         string `json:"frontendUrl"`
	URNResolver         string `json:"urnResolver"`
	RequestTimeoutSecs  int    `json:"requestTimeoutSecs"`
	IdleConnTimeoutSecs int    `json:"idleConnTimeoutSecs"`

	// MQueryURL, if set, makes the exporter query an MQuery server
	// instead of Korp
	MQueryURL string `json:"mqueryUrl"`
}

// IsCGI tells whether the backend is a local program
func (conf *Conf) IsCGI() bool {
	return conf.ServerURL != "" && !strings.HasPrefix(conf.ServerURL, "http")
}

func (conf *Conf) ValidateAndDefaults(confContext string) error {
	if conf == nil {
		return fmt.Errorf("missing configuration section `%s`", confContext)
	}
	if conf.ServerURL == "" && conf.MQueryURL == "" {
		return fmt.Errorf("%s.serverUrl or %s.mqueryUrl must be set", confContext, confContext)
	}
	if conf.RequestTimeoutSecs == 0 {
		conf.RequestTimeoutSecs = dfltRequestTimeoutSecs
		log.Warn().
			Int("value", conf.RequestTimeoutSecs).
			Msgf("%s.requestTimeoutSecs not set, using default", confContext)
	}
	if conf.IdleConnTimeoutSecs == 0 {
		conf.IdleConnTimeoutSecs = dfltIdleConnTimeoutSecs
		log.Warn().
			Int("value", conf.IdleConnTimeoutSecs).
			Msgf("%s.idleConnTimeoutSecs not set, using default", confContext)
	}
	return nil
}

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
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/czcorpus/cnc-gokit/httpclient"
	"github.com/rs/zerolog/log"
)

// KorpClient queries a Korp server either over HTTP or by running
// the Korp CGI program.
type KorpClient struct {
	conf   *Conf
	client *http.Client
}

func (kc *KorpClient) ServerURL() string {
	return kc.conf.ServerURL
}

func (kc *KorpClient) QueryRaw(ctx context.Context, params map[string]string) ([]byte, error) {
	body := EncodeParams(withLogInfo(params))
	t0 := time.Now()
	var ans []byte
	var err error
	if kc.conf.IsCGI() {
		ans, err = runCGI(ctx, kc.conf.ServerURL, body)

	} else {
		ans, err = kc.post(ctx, body)
	}
	log.Debug().
		Str("server", kc.conf.ServerURL).
		Str("command", params["command"]).
		Float64("procTime", time.Since(t0).Seconds()).
		Int("respSize", len(ans)).
		Err(err).
		Msg("queried Korp backend")
	return ans, err
}

func (kc *KorpClient) post(ctx context.Context, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, kc.conf.ServerURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create Korp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := kc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Korp server: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Korp response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("Korp server responded with status %d", resp.StatusCode)
	}
	return data, nil
}

func newHTTPClient(conf *Conf) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = httpclient.TransportMaxIdleConns
	transport.MaxConnsPerHost = httpclient.TransportMaxConnsPerHost
	transport.MaxIdleConnsPerHost = httpclient.TransportMaxIdleConnsPerHost
	transport.IdleConnTimeout = time.Duration(conf.IdleConnTimeoutSecs) * time.Second
	return &http.Client{
		Timeout:   time.Duration(conf.RequestTimeoutSecs) * time.Second,
		Transport: transport,
	}
}

func NewKorpClient(conf *Conf) *KorpClient {
	return &KorpClient{
		conf:   conf,
		client: newHTTPClient(conf),
	}
}

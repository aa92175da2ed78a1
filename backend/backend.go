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
	"net/url"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

const logInfoClient = "client=korp_download_kwic"

// Backend is a source of Korp query results. Both the query
// and the `info` command results are returned as raw JSON so they
// can be cached without interpretation.
type Backend interface {

	// QueryRaw runs a Korp command (`query` by default, other
	// commands are selected via the `command` parameter)
	QueryRaw(ctx context.Context, params map[string]string) ([]byte, error)

	// ServerURL is the backend address as presented to users
	ServerURL() string
}

// withLogInfo returns a copy of params with the exporter identified
// in the `loginfo` parameter
func withLogInfo(params map[string]string) map[string]string {
	ans := make(map[string]string, len(params)+1)
	for k, v := range params {
		ans[k] = v
	}
	if v, ok := ans["loginfo"]; ok && v != "" {
		ans["loginfo"] = v + " " + logInfoClient

	} else {
		ans["loginfo"] = logInfoClient
	}
	return ans
}

// EncodeParams creates an urlencoded form with keys sorted
func EncodeParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make(url.Values, len(params))
	for _, k := range keys {
		values.Set(k, params[k])
	}
	return values.Encode()
}

// ---------------------------

// CorporaInfo maps lowercase corpus IDs to their info items.
// Items with names containing an underscore are nested, so e.g.
// `metadata_urn` becomes `{"metadata": {"urn": ...}}`.
type CorporaInfo map[string]map[string]any

// AddItem adds an info item of a corpus. The item name is split
// on the first underscore into an item and a subitem.
func (ci CorporaInfo) AddItem(corpus, name string, value any) {
	corpus = strings.ToLower(corpus)
	name = strings.ToLower(name)
	item, sub, hasSub := strings.Cut(name, "_")
	items, ok := ci[corpus]
	if !ok {
		items = make(map[string]any)
		ci[corpus] = items
	}
	if !hasSub {
		if _, ok := items[item]; !ok {
			items[item] = value
		}
		return
	}
	subitems, ok := items[item].(map[string]any)
	if !ok {
		if _, exists := items[item]; exists {
			return
		}
		subitems = make(map[string]any)
		items[item] = subitems
	}
	subitems[sub] = value
}

// Merge adds all the items from other not present yet in ci
func (ci CorporaInfo) Merge(other CorporaInfo) {
	for corpus, items := range other {
		for k, v := range items {
			if _, ok := ci[corpus]; !ok {
				ci[corpus] = make(map[string]any)
			}
			if _, ok := ci[corpus][k]; !ok {
				ci[corpus][k] = v
			}
		}
	}
}

type infoResponse struct {
	Corpora map[string]struct {
		Info map[string]any `json:"info"`
	} `json:"corpora"`
}

// FetchCorporaInfo obtains info of the corpora via the backend
// `info` command. Corpus IDs can contain `|`-separated parallel
// corpora names.
func FetchCorporaInfo(ctx context.Context, b Backend, corpora []string) (CorporaInfo, error) {
	ans := make(CorporaInfo)
	ids := make([]string, 0, len(corpora))
	for _, c := range corpora {
		for _, v := range strings.Split(c, "|") {
			if v != "" {
				ids = append(ids, strings.ToUpper(v))
			}
		}
	}
	if len(ids) == 0 {
		return ans, nil
	}
	raw, err := b.QueryRaw(ctx, map[string]string{
		"command": "info",
		"corpus":  strings.Join(ids, ","),
	})
	if err != nil {
		return ans, fmt.Errorf("failed to fetch corpora info: %w", err)
	}
	var resp infoResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return ans, fmt.Errorf("failed to decode corpora info: %w", err)
	}
	for corpus, data := range resp.Corpora {
		for k, v := range data.Info {
			ans.AddItem(corpus, k, v)
		}
	}
	return ans, nil
}

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
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"korpexport/kwic"

	"github.com/bytedance/sonic"
	"github.com/czcorpus/mquery-common/concordance"
	"github.com/rs/zerolog/log"
)

const (
	mqueryMaxContextWidth = 50
	mqueryDefaultContext  = 10
)

var leadingNumberRx = regexp.MustCompile(`^\s*(\d+)`)

type concordanceResponse struct {
	Lines    []concordance.Line `json:"lines"`
	ConcSize int                `json:"concSize"`
	Error    string             `json:"error,omitempty"`
}

// MQueryClient obtains concordances from an MQuery server and
// presents them as Korp query results. MQuery has no equivalent
// of the Korp `info` command so corpora info is always empty.
type MQueryClient struct {
	baseURL string
	client  *http.Client
}

func (mc *MQueryClient) ServerURL() string {
	return mc.baseURL
}

func contextWidth(defaultContext string) int {
	srch := leadingNumberRx.FindStringSubmatch(defaultContext)
	if srch == nil {
		return mqueryDefaultContext
	}
	v, err := strconv.Atoi(srch[1])
	if err != nil {
		return mqueryDefaultContext
	}
	return min(v, mqueryMaxContextWidth)
}

// Concordance fetches a concordance of a single corpus
func (mc *MQueryClient) Concordance(ctx context.Context, corpusID, query string, ctxWidth int) ([]concordance.Line, int, error) {
	args := make(url.Values)
	args.Set("q", query)
	args.Set("showMarkup", "1")
	args.Set("showTextProps", "1")
	args.Set("contextWidth", strconv.Itoa(ctxWidth))
	reqURL := fmt.Sprintf(
		"%s/concordance/%s?%s",
		strings.TrimRight(mc.baseURL, "/"), url.PathEscape(corpusID), args.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create MQuery request: %w", err)
	}
	resp, err := mc.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query MQuery server: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read MQuery response: %w", err)
	}
	var ans concordanceResponse
	if err := sonic.Unmarshal(data, &ans); err != nil {
		return nil, 0, fmt.Errorf("failed to decode MQuery response (status %d): %w", resp.StatusCode, err)
	}
	if ans.Error != "" {
		return nil, 0, fmt.Errorf("MQuery error: %s", ans.Error)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, 0, fmt.Errorf("MQuery server responded with status %d", resp.StatusCode)
	}
	return ans.Lines, ans.ConcSize, nil
}

func (mc *MQueryClient) QueryRaw(ctx context.Context, params map[string]string) ([]byte, error) {
	command := params["command"]
	if command == "info" {
		log.Debug().Msg("MQuery backend provides no corpora info")
		return []byte(`{"corpora":{}}`), nil
	}
	if command != "" && command != "query" {
		return nil, fmt.Errorf("command %s not supported by MQuery backend", command)
	}
	t0 := time.Now()
	result := &kwic.Result{CorpusHits: make(map[string]int)}
	ctxWidth := contextWidth(params["defaultcontext"])
	for _, corpusID := range strings.Split(params["corpus"], ",") {
		if corpusID == "" {
			continue
		}
		lines, size, err := mc.Concordance(ctx, strings.ToLower(corpusID), params["cqp"], ctxWidth)
		if err != nil {
			result.Error = &kwic.BackendError{Type: "MQueryError", Value: err.Error()}
			break
		}
		result.CorpusHits[strings.ToUpper(corpusID)] = size
		result.Hits += size
		for _, line := range lines {
			result.Sentences = append(result.Sentences, FromConcordance(corpusID, line))
		}
	}
	result.Sentences = sliceHits(result.Sentences, params["start"], params["end"])
	log.Debug().
		Str("server", mc.baseURL).
		Float64("procTime", time.Since(t0).Seconds()).
		Int("hits", result.Hits).
		Msg("queried MQuery backend")
	return sonic.Marshal(result)
}

// sliceHits applies the Korp `start` and `end` (inclusive) params
func sliceHits(sentences []*kwic.Sentence, start, end string) []*kwic.Sentence {
	from, err := strconv.Atoi(start)
	if err != nil || from < 0 {
		from = 0
	}
	to, err := strconv.Atoi(end)
	if err != nil || to+1 > len(sentences) {
		to = len(sentences) - 1
	}
	if from > to {
		return []*kwic.Sentence{}
	}
	return sentences[from : to+1]
}

func tokenAttrs(token *concordance.Token) []kwic.Attr {
	ans := make([]kwic.Attr, 0, len(token.Attrs)+1)
	ans = append(ans, kwic.Attr{Name: "word", Value: token.Word})
	names := make([]string, 0, len(token.Attrs))
	for k := range token.Attrs {
		if k != "word" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		ans = append(ans, kwic.Attr{Name: k, Value: token.Attrs[k]})
	}
	return ans
}

// FromConcordance converts an MQuery concordance line into a Korp
// KWIC sentence. Strong tokens form the match, markup becomes token
// structure info and text properties become sentence structural
// attributes (with `.` replaced by `_`, e.g. `doc_title`).
func FromConcordance(corpusID string, line concordance.Line) *kwic.Sentence {
	ans := &kwic.Sentence{
		Corpus: strings.ToUpper(corpusID),
		Tokens: make([]kwic.Token, 0, len(line.Text)),
	}
	var pendingOpen []string
	matchStart, matchEnd := -1, -1
	for _, elm := range line.Text {
		switch item := elm.(type) {
		case *concordance.Token:
			tk := kwic.Token{Attrs: tokenAttrs(item)}
			if len(pendingOpen) > 0 {
				tk.Structs = &kwic.TokenStructs{Open: pendingOpen}
				pendingOpen = nil
			}
			if item.Strong {
				if matchStart < 0 {
					matchStart = len(ans.Tokens)
				}
				matchEnd = len(ans.Tokens) + 1
			}
			ans.Tokens = append(ans.Tokens, tk)
		case *concordance.Struct:
			if !item.IsSelfClose {
				pendingOpen = append(pendingOpen, item.Name)
			}
		case *concordance.CloseStruct:
			if n := len(ans.Tokens); n > 0 {
				last := &ans.Tokens[n-1]
				if last.Structs == nil {
					last.Structs = &kwic.TokenStructs{}
				}
				last.Structs.Close = append(last.Structs.Close, item.Name)
			}
		}
	}
	if matchStart >= 0 {
		ans.Match = &kwic.Match{Start: matchStart, End: matchEnd}
	}
	if len(line.Props) > 0 {
		names := make([]string, 0, len(line.Props))
		for k := range line.Props {
			names = append(names, k)
		}
		sort.Strings(names)
		ans.Structs = make([]kwic.Attr, len(names))
		for i, k := range names {
			ans.Structs[i] = kwic.Attr{Name: strings.ReplaceAll(k, ".", "_"), Value: line.Props[k]}
		}
	}
	return ans
}

func NewMQueryClient(conf *Conf) *MQueryClient {
	return &MQueryClient{
		baseURL: conf.MQueryURL,
		client:  newHTTPClient(conf),
	}
}

// NewBackend creates a backend client based on the configuration
func NewBackend(conf *Conf) Backend {
	if conf.MQueryURL != "" {
		return NewMQueryClient(conf)
	}
	return NewKorpClient(conf)
}

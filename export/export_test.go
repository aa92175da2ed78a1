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
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"korpexport/formats"
	"korpexport/kwic"
	"korpexport/merror"
	"korpexport/monitoring"
	"korpexport/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResult = `{
	"hits": 1,
	"corpus_hits": {"NEWS": 1},
	"kwic": [
		{
			"corpus": "NEWS",
			"match": {"start": 1, "end": 2, "position": 100},
			"structs": {"text_title": "Cats"},
			"tokens": [
				{"word": "The", "lemma": "the"},
				{"word": "cat", "lemma": "cat"},
				{"word": "sat", "lemma": "sit"}
			]
		}
	]
}`

var testTime = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

type fakeBackend struct {
	mu      sync.Mutex
	queries []map[string]string
	result  string
	info    string
	err     error
}

func (fb *fakeBackend) QueryRaw(ctx context.Context, params map[string]string) ([]byte, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}
	fb.queries = append(fb.queries, cp)
	if fb.err != nil {
		return nil, fb.err
	}
	if params["command"] == "info" {
		if fb.info == "" {
			return []byte(`{"corpora": {}}`), nil
		}
		return []byte(fb.info), nil
	}
	return []byte(fb.result), nil
}

func (fb *fakeBackend) ServerURL() string {
	return "http://korp.example.org/backend"
}

type fakeRecorder struct {
	records []monitoring.ExportRecord
}

func (fr *fakeRecorder) Log(rec monitoring.ExportRecord) {
	fr.records = append(fr.records, rec)
}

func newTestExporter(t *testing.T, conf *Conf, b *fakeBackend) (*Exporter, *fakeRecorder) {
	if conf == nil {
		conf = &Conf{}
	}
	require.NoError(t, conf.ValidateAndDefaults("export"))
	reg, err := formats.Default()
	require.NoError(t, err)
	pool, err := worker.NewRenderPool(2)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Stop(context.Background()) })
	rec := &fakeRecorder{}
	var exp *Exporter
	if b != nil {
		exp = NewExporter(conf, reg, b, pool, rec, "https://korp.example.org/", "https://urn.fi/")

	} else {
		exp = NewExporter(conf, reg, nil, pool, rec, "https://korp.example.org/", "https://urn.fi/")
	}
	exp.now = func() time.Time { return testTime }
	return exp, rec
}

func TestDecodeListParam(t *testing.T) {
	assert.Equal(
		t,
		[]string{"LAM_AHLA", "LAM_ANTR", "SUC"},
		DecodeListParam("LAM_A(HLA,NTR),SUC"),
	)
	assert.Equal(t, []string{"word", "lemma"}, DecodeListParam("word.lemma"))
	assert.Equal(t, []string{""}, DecodeListParam(""))
}

func TestNormalizeQueryParams(t *testing.T) {
	form := map[string]string{
		"corpus":          "LAM_A(HLA,NTR)",
		"show":            "word",
		"show_struct":     "text_id.text_title",
		"default_context": "1 sentence",
	}
	params, err := NormalizeQueryParams(form, true)
	require.NoError(t, err)
	assert.Equal(t, "LAM_AHLA,LAM_ANTR", params["corpus"])
	assert.Equal(t, "word,text_id,text_title", params["show"])
	assert.Equal(t, "text_id,text_title", params["show_struct"])
	assert.Equal(t, "1 sentence", params["defaultcontext"])
	assert.Equal(t, "LAM_A(HLA,NTR)", form["corpus"])

	params, err = NormalizeQueryParams(form, false)
	require.NoError(t, err)
	assert.Equal(t, "word", params["show"])
}

func TestNormalizeQueryParamsJSON(t *testing.T) {
	form := map[string]string{
		"query_params": `{"corpus": "A,B", "start": 0, "end": 9, "incremental": true}`,
		"debug":        "1",
		"format":       "csv",
	}
	params, err := NormalizeQueryParams(form, false)
	require.NoError(t, err)
	assert.Equal(t, "A,B", params["corpus"])
	assert.Equal(t, "0", params["start"])
	assert.Equal(t, "9", params["end"])
	assert.Equal(t, "true", params["incremental"])
	assert.Equal(t, "1", params["debug"])
	assert.NotContains(t, params, "format")

	_, err = NormalizeQueryParams(map[string]string{"query_params": "{"}, false)
	var inpErr merror.InputError
	assert.ErrorAs(t, err, &inpErr)
}

func TestCQPWords(t *testing.T) {
	assert.Equal(t, "cat_s_sit_", CQPWords(`[word="cat's"] []{0,2} [lemma="sit.*"]`))
	assert.Equal(t, `a_b`, CQPWords(`[word="a\"b"]`))
	assert.Equal(t, "", CQPWords(`[]`))
}

func TestMakeFilename(t *testing.T) {
	params := map[string]string{"cqp": `[word="cat"] [word="sat"]`, "start": "0", "end": "9"}
	assert.Equal(
		t,
		"korp_kwic_cat_sat_20240501_123000.csv",
		MakeFilename(map[string]string{}, params, "", ".csv", testTime),
	)
	assert.Equal(
		t,
		"hits_0-9.tsv",
		MakeFilename(map[string]string{}, params, "hits_{start}-{end}{ext}", ".tsv", testTime),
	)
	assert.Equal(
		t,
		"my.csv",
		MakeFilename(map[string]string{"filename": "my.csv"}, params, "", ".csv", testTime),
	)
	long := map[string]string{"cqp": `"` + strings.Repeat("x", 100) + `"`}
	assert.Equal(
		t,
		"korp_kwic_"+strings.Repeat("x", 60)+"_20240501_123000.txt",
		MakeFilename(map[string]string{}, long, "", ".txt", testTime),
	)
}

func TestEncodeContent(t *testing.T) {
	data, err := EncodeContent("café", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, []byte("café"), data)
	data, err = EncodeContent("café", "iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, data)
	_, err = EncodeContent("café", "no-such-charset")
	var inpErr merror.InputError
	assert.ErrorAs(t, err, &inpErr)
}

func TestValidateQueryResult(t *testing.T) {
	assert.NoError(t, ValidateQueryResult([]byte(testResult)))
	err := ValidateQueryResult([]byte(`{"kwic": [{"corpus": 1}]}`))
	var inpErr merror.InputError
	assert.ErrorAs(t, err, &inpErr)
	assert.Error(t, ValidateQueryResult([]byte(`{"hits": -1}`)))
}

func TestConfDefaults(t *testing.T) {
	conf := &Conf{
		Options: map[string]any{"show_info": false, "title_format": "{title}"},
	}
	require.NoError(t, conf.ValidateAndDefaults("export"))
	assert.Equal(t, "json", conf.DefaultFormat)
	assert.Equal(t, worker.DefaultPoolSize, conf.MaxConcurrentRenders)
	assert.Equal(t, false, conf.OptionOverrides()["show_info"])

	conf = &Conf{Options: map[string]any{"title_format": "{title"}}
	assert.Error(t, conf.ValidateAndDefaults("export"))
	conf = &Conf{FilenameFormat: "{date"}
	assert.Error(t, conf.ValidateAndDefaults("export"))
}

func TestCorpusInfoFromConfig(t *testing.T) {
	form := map[string]string{
		"corpus_config": `{"NEWS": {
			"info": {"name": "News"},
			"urn": "urn:x",
			"metadata_url": "http://m",
			"licence": {"name": "CC", "url": "http://cc"},
			"title": "T"
		}}`,
		"corpus_config_info_keys": "licence",
	}
	info, conf, err := corpusInfoFromForm(form)
	require.NoError(t, err)
	assert.Contains(t, conf, "NEWS")
	assert.Equal(
		t,
		map[string]any{
			"name":     "News",
			"urn":      "urn:x",
			"metadata": map[string]any{"url": "http://m"},
			"licence":  map[string]any{"name": "CC", "url": "http://cc"},
		},
		info["news"],
	)
}

func TestAttachCorpusInfo(t *testing.T) {
	result, err := kwic.DecodeResult([]byte(testResult))
	require.NoError(t, err)
	result.Sentences[0].Corpus = "NEWS|NEWS_EN"
	fb := &fakeBackend{
		info: `{"corpora": {"NEWS": {"info": {"Name": "Backend", "Size": "3"}}}}`,
	}
	form := map[string]string{"corpus_info": `{"news": {"name": "Form"}}`}
	require.NoError(t, AttachCorpusInfo(context.Background(), fb, form, result))
	require.Len(t, fb.queries, 1)
	assert.Equal(t, "info", fb.queries[0]["command"])
	assert.Equal(t, "NEWS,NEWS_EN", fb.queries[0]["corpus"])
	assert.Equal(t, map[string]any{"name": "Form", "size": "3"}, result.Sentences[0].CorpusInfo)
}

func TestAttachCorpusInfoBackendFailure(t *testing.T) {
	result, err := kwic.DecodeResult([]byte(testResult))
	require.NoError(t, err)
	fb := &fakeBackend{err: errors.New("connection refused")}
	require.NoError(t, AttachCorpusInfo(context.Background(), fb, map[string]string{}, result))
	assert.Nil(t, result.Sentences[0].CorpusInfo)
}

func TestExportFromBackend(t *testing.T) {
	fb := &fakeBackend{result: testResult}
	exp, rec := newTestExporter(t, nil, fb)
	dl, err := exp.Export(context.Background(), map[string]string{
		"format":              "csv",
		"cqp":                 `[word="cat"]`,
		"corpus":              "NEWS",
		"show_info":           "False",
		"show_field_headings": "False",
		"sentence_fields":     "corpus,match_pos,left_context,match,right_context",
	})
	require.NoError(t, err)
	assert.Equal(t, "\"NEWS\",\"100\",\"The\",\"cat\",\"sat\"\r\n\r\n", string(dl.Content))
	assert.Equal(t, "text/csv; charset=utf-8", dl.ContentType())
	assert.Equal(t, "korp_kwic_cat_20240501_123000.csv", dl.Filename)
	assert.Equal(t, 1, dl.NumSentences)
	assert.NotEmpty(t, dl.ID)

	require.Len(t, fb.queries, 2)
	assert.Equal(t, `[word="cat"]`, fb.queries[0]["cqp"])
	assert.Equal(t, "info", fb.queries[1]["command"])

	require.Len(t, rec.records, 1)
	assert.Equal(t, dl.ID, rec.records[0].ID)
	assert.Equal(t, "csv", rec.records[0].Format)
	assert.Equal(t, []string{"NEWS"}, rec.records[0].Corpora)
	assert.Equal(t, 1, rec.records[0].NumSentences)
	assert.Equal(t, len(dl.Content), rec.records[0].NumBytes)
	assert.NoError(t, rec.records[0].Err)
}

func TestExportInlineResult(t *testing.T) {
	exp, _ := newTestExporter(t, nil, nil)
	dl, err := exp.Export(context.Background(), map[string]string{
		"query_result": testResult,
		"sort_keys":    "False",
		"indent":       "0",
		"filename":     "hits.json",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dl.Content), `[{"structs":{"text_title":"Cats"},"tokens":[`))
	assert.Equal(t, "application/json; charset=utf-8", dl.ContentType())
	assert.Equal(t, "hits.json", dl.Filename)
}

func TestExportOptionPrecedence(t *testing.T) {
	conf := &Conf{
		Options: map[string]any{
			"show_info":           false,
			"show_field_headings": false,
			"sentence_fields":     "match",
		},
	}
	exp, _ := newTestExporter(t, conf, nil)
	dl, err := exp.Export(context.Background(), map[string]string{
		"format":       "tsv",
		"query_result": testResult,
	})
	require.NoError(t, err)
	assert.Equal(t, "cat\n\n", string(dl.Content))

	dl, err = exp.Export(context.Background(), map[string]string{
		"format":          "tsv",
		"query_result":    testResult,
		"sentence_fields": "corpus,match",
	})
	require.NoError(t, err)
	assert.Equal(t, "NEWS\tcat\n\n", string(dl.Content))
}

func TestExportCharsetOverride(t *testing.T) {
	exp, _ := newTestExporter(t, &Conf{Options: map[string]any{"show_info": false}}, nil)
	dl, err := exp.Export(context.Background(), map[string]string{
		"format":              "tsv",
		"query_result":        strings.ReplaceAll(testResult, `"cat"`, `"café"`),
		"sentence_fields":     "match",
		"charset":             "ISO-8859-1",
		"show_field_headings": "False",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/tsv; charset=iso-8859-1", dl.ContentType())
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9, '\n', '\n'}, dl.Content)
}

func TestExportBinary(t *testing.T) {
	exp, _ := newTestExporter(t, nil, nil)
	dl, err := exp.Export(context.Background(), map[string]string{
		"format":       "xlsx",
		"query_result": testResult,
	})
	require.NoError(t, err)
	assert.Equal(t, "", dl.Charset)
	assert.Equal(
		t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		dl.ContentType(),
	)
	assert.True(t, strings.HasSuffix(dl.Filename, ".xlsx"))
	assert.True(t, strings.HasPrefix(string(dl.Content), "PK"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	exp, rec := newTestExporter(t, nil, nil)
	_, err := exp.Export(context.Background(), map[string]string{
		"format":       "pdf",
		"query_result": testResult,
	})
	var ufErr merror.UnsupportedFormatError
	require.ErrorAs(t, err, &ufErr)
	assert.Equal(t, "pdf", ufErr.Format)
	require.Len(t, rec.records, 1)
	assert.Equal(t, "pdf", rec.records[0].Format)
	assert.Error(t, rec.records[0].Err)
}

func TestExportBackendFailure(t *testing.T) {
	exp, _ := newTestExporter(t, nil, &fakeBackend{err: errors.New("connection refused")})
	_, err := exp.Export(context.Background(), map[string]string{"format": "csv", "cqp": "[]"})
	assert.ErrorIs(t, err, ErrBackendFailure)
}

func TestExportBackendErrorResult(t *testing.T) {
	fb := &fakeBackend{result: `{"ERROR": {"type": "CQPError", "value": "syntax error"}}`}
	exp, rec := newTestExporter(t, &Conf{Options: map[string]any{"indent": "0"}}, fb)
	dl, err := exp.Export(context.Background(), map[string]string{"format": "json", "cqp": "["})
	require.NoError(t, err)
	assert.Equal(t, 0, dl.NumSentences)
	assert.Equal(t, "[]", strings.TrimSpace(string(dl.Content)))
	require.Len(t, rec.records, 1)
	assert.NoError(t, rec.records[0].Err)
}

func TestExportWithoutSource(t *testing.T) {
	exp, _ := newTestExporter(t, nil, nil)
	_, err := exp.Export(context.Background(), map[string]string{"format": "csv"})
	var inpErr merror.InputError
	assert.ErrorAs(t, err, &inpErr)
}

func TestExportValidatesPostedResult(t *testing.T) {
	exp, _ := newTestExporter(t, &Conf{ValidateQueryResult: true}, nil)
	_, err := exp.Export(context.Background(), map[string]string{
		"format":       "csv",
		"query_result": `{"kwic": [{"corpus": "A"}]}`,
	})
	var inpErr merror.InputError
	assert.ErrorAs(t, err, &inpErr)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute)
	assert.True(t, rl.Allow("10.0.0.1", testTime))
	assert.True(t, rl.Allow("10.0.0.1", testTime))
	assert.False(t, rl.Allow("10.0.0.1", testTime))
	assert.True(t, rl.Allow("10.0.0.2", testTime))
	assert.True(t, rl.Allow("10.0.0.1", testTime.Add(time.Second)))
	assert.Equal(t, 2, rl.NumClients())
	rl.lastPurge = testTime
	assert.True(t, rl.Allow("10.0.0.3", testTime.Add(2*time.Minute)))
	assert.Equal(t, 1, rl.NumClients())
}

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

package formats

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"korpexport/formatter"
	"korpexport/kwic"
	"korpexport/merror"
	"korpexport/options"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testResult = `{
	"hits": 1,
	"corpus_hits": {"NEWS": 1},
	"kwic": [
		{
			"corpus": "NEWS",
			"match": {"start": 1, "end": 2, "position": 100},
			"tokens": [
				{"word": "The", "lemma": "the", "structs": {"open": ["text", "text_id 1", "p"]}},
				{"word": "cat", "lemma": "cat"},
				{"word": "sat", "lemma": "sit", "structs": {"close": ["p", "text"]}}
			]
		}
	]
}`

var quiet = options.Table{
	"show_info":           "False",
	"show_field_headings": "False",
}

func decode(t *testing.T, data string) *kwic.Result {
	ans, err := kwic.DecodeResult([]byte(data))
	require.NoError(t, err)
	return ans
}

func export(t *testing.T, spec string, result *kwic.Result, subformats []string, overrides options.Table) (*Format, *formatter.Output) {
	reg, err := Default()
	require.NoError(t, err)
	f, err := reg.LookupSpec(spec)
	require.NoError(t, err)
	opts, err := f.Options(subformats, options.Merge(quiet, overrides))
	require.NoError(t, err)
	cfg := f.Config(opts)
	cfg.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	out, err := formatter.Render(result, map[string]string{"corpus": "NEWS"}, cfg)
	require.NoError(t, err)
	return f, out
}

func TestBuiltinRegistry(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	infos := reg.Infos()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Names[0]
	}
	assert.Contains(t, names, "csv")
	assert.Contains(t, names, "nooj")
	assert.NotContains(t, names, "_delimited")
	for _, info := range infos {
		if info.Names[0] == "xlsx" {
			assert.Equal(t, "", info.Charset)
			assert.Equal(t, ".xlsx", info.Extension)
		}
	}
}

func TestDuplicateFormatName(t *testing.T) {
	_, err := NewRegistry(csvPlugin, &Plugin{Names: []string{"xyz", "csv"}})
	var cerr merror.ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestInvalidPluginTemplate(t *testing.T) {
	_, err := NewRegistry(&Plugin{
		Names:    []string{"broken"},
		Defaults: options.Table{"sentence_format": "{tokens"},
	})
	assert.Error(t, err)
}

func TestUnsupportedFormat(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	_, err = reg.LookupSpec("csv,docx")
	var uerr merror.UnsupportedFormatError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "docx", uerr.Format)
	_, err = reg.LookupSpec(" , ")
	assert.Error(t, err)
}

func TestSplitNames(t *testing.T) {
	assert.Equal(
		t,
		[]string{"sentences", "csv", "tsv", "json", "x"},
		SplitNames("Sentences, CSV;tsv+json x"),
	)
}

func TestInvalidOverrideTemplate(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	f, err := reg.LookupSpec("text")
	require.NoError(t, err)
	_, err = f.Options(nil, options.Table{"sentence_format": "{tokens"})
	assert.Error(t, err)
}

func TestCSVRow(t *testing.T) {
	f, out := export(t, "csv", decode(t, testResult), nil, options.Table{
		"sentence_fields": "corpus,match_pos,left_context,match,right_context",
	})
	assert.Equal(t, "text/csv", f.MIMEType())
	assert.Equal(t, "utf-8", f.Charset())
	assert.Equal(t, "\"NEWS\",\"100\",\"The\",\"cat\",\"sat\"\r\n\r\n", out.Text)
}

func TestCSVQuoting(t *testing.T) {
	result := decode(t, `{"hits": 1, "kwic": [{"corpus": "A", "match": {"start": 0, "end": 1},
		"tokens": [{"word": "say \"hi\""}]}]}`)
	_, out := export(t, "csv", result, nil, options.Table{"sentence_fields": "match"})
	assert.Equal(t, "\"say \"\"hi\"\"\"\r\n\r\n", out.Text)
}

func TestTSVRow(t *testing.T) {
	_, out := export(t, "tsv", decode(t, testResult), nil, options.Table{
		"sentence_fields": "corpus,match_pos,left_context,match,right_context",
	})
	assert.Equal(t, "NEWS\t100\tThe\tcat\tsat\n\n", out.Text)
}

func TestJSONSortedAndIndented(t *testing.T) {
	f, out := export(t, "json", decode(t, testResult), nil, nil)
	assert.Equal(t, "application/json", f.MIMEType())
	assert.True(t, strings.HasPrefix(
		out.Text,
		"[\n    {\n        \"corpus\": \"NEWS\",\n        \"match\": {\n            \"end\": 2,",
	))
	assert.True(t, strings.HasSuffix(out.Text, "]\n"))
}

func TestJSONKeepsOrder(t *testing.T) {
	_, out := export(t, "json", decode(t, testResult), nil, options.Table{
		"sort_keys": "False",
		"indent":    "0",
	})
	assert.True(t, strings.HasPrefix(out.Text, `[{"tokens":[`))
}

func TestMultiFormatFirstNameWins(t *testing.T) {
	f, out := export(t, "token_line,csv", decode(t, testResult), nil, options.Table{
		"attrs":           "lemma",
		"sentence_format": "{fields}",
	})
	assert.Equal(t, "text/csv", f.MIMEType())
	assert.Equal(t, ".csv", f.Extension())
	assert.Equal(
		t,
		"\"\",\"The\",\"the\"\r\n\"*\",\"cat\",\"cat\"\r\n\"\",\"sat\",\"sit\"\r\n",
		out.Text,
	)
}

func TestVRT(t *testing.T) {
	f, out := export(t, "vrt", decode(t, testResult), nil, options.Table{
		"attrs":           "lemma",
		"xml_declaration": "True",
	})
	assert.True(t, f.Structured())
	assert.Equal(
		t,
		xmlDeclaration+
			"<korp_kwic>\n"+
			"<text id=\"1\">\n<p>\nThe\tthe\n"+
			"<MATCH position=\"100\">\ncat\tcat\n</MATCH>\n"+
			"sat\tsit\n</p>\n</text>\n"+
			"</korp_kwic>\n",
		out.Text,
	)
}

func TestHTMLEscapesContentOnly(t *testing.T) {
	result := decode(t, `{"hits": 1, "kwic": [{"corpus": "A", "match": {"start": 1, "end": 2},
		"tokens": [{"word": "The"}, {"word": "cat"}, {"word": "a<b"}]}]}`)
	f, out := export(t, "html", result, nil, options.Table{
		"sentence_format": "{tokens}\n",
		"match_open":      "[[",
		"match_close":     "]]",
	})
	assert.Equal(t, "text/html", f.MIMEType())
	assert.True(t, strings.HasPrefix(
		out.Text, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\"/>\n"))
	assert.Contains(t, out.Text, "<p>The <strong>cat</strong> a&lt;b</p>\n")
	assert.True(t, strings.HasSuffix(out.Text, "</body>\n</html>\n"))
}

func TestHTMLTable(t *testing.T) {
	_, out := export(t, "html-table", decode(t, testResult), nil, options.Table{
		"sentence_format": "{corpus}\t{match}\n",
		"heading_cols":    "1",
	})
	assert.Contains(t, out.Text, "<table>\n<tr><th>NEWS</th><td>cat</td></tr>\n</table>\n")
	assert.Contains(t, out.Text, "<style>th { text-align: left; }</style>")
}

func TestExcelWorkbook(t *testing.T) {
	f, out := export(t, "xlsx", decode(t, testResult), nil, options.Table{
		"sentence_fields": "corpus,match_pos,match",
		"title":           "Cats: results",
	})
	require.True(t, out.IsBinary())
	assert.True(t, f.IsBinary())
	wb, err := excelize.OpenReader(bytes.NewReader(out.Binary))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Cats  results")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"NEWS", "100", "cat"}, rows[0])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", sheetName(""))
	assert.Equal(t, "a b (c)", sheetName("a/b [c]"))
	assert.Len(t, []rune(sheetName(strings.Repeat("ä", 40))), 31)
}

func TestNooj(t *testing.T) {
	result := decode(t, `{"hits": 1, "kwic": [{"corpus": "A", "match": {"start": 0, "end": 1},
		"tokens": [
			{"word": "Cats", "lemma": "cat", "pos": "N", "msd": "N|Nom|Pl", "ref": "1", "dephead": "2", "deprel": "nsubj"},
			{"word": "sleep", "lemma": "sleep", "pos": "V", "msd": "V Prs", "ref": "2", "dephead": "0", "deprel": "root"},
			{"word": ",", "lemma": ",", "pos": "PUNCT", "ref": "3", "dephead": "2", "deprel": "punct"}
		]}]}`)
	f, out := export(t, "nooj", result, nil, nil)
	assert.Equal(t, ".xml.txt", f.Extension())
	assert.Equal(
		t,
		"<S>"+
			`<LU LEMMA="cat" CAT="N+nom+pl" ID="1" DEP="NSUBJ+sleep" ID_REF="2">Cats</LU> `+
			`<LU LEMMA="sleep" CAT="V+prs" ID="2" DEP="ROOT+sleep" ID_REF="2">sleep</LU> `+
			`<LU LEMMA="COMMA" CAT="PUNCT" ID="3" DEP="PUNCT+sleep" ID_REF="2">,</LU>`+
			"</S>\r\n\r\n<!--\r\n\r\n-->",
		out.Text,
	)
}

func TestNoojCategoryWithoutPos(t *testing.T) {
	assert.Equal(t, "UNK+n.sg", noojCategory(kwic.Token{Attrs: []kwic.Attr{{Name: "msd", Value: "N.SG"}}}))
	assert.Equal(t, "UNK", noojCategory(kwic.Token{}))
}

func TestSubformats(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	f, err := reg.LookupSpec("csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"lemmas-kwic", "lemmas-resultinfo"}, f.Subformats())
	f, err = reg.LookupSpec("text")
	require.NoError(t, err)
	assert.Equal(t, []string{"bare", "sentences-bare"}, f.Subformats())
	opts, err := f.Options([]string{"bare", "unknown"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", opts["skip_leading_lines"])
}

func TestTextBare(t *testing.T) {
	_, out := export(t, "text", decode(t, testResult), []string{"bare"}, options.Table{
		"show_info": "True",
	})
	assert.Equal(t, "Korp search results | 2024-05-01 12:30:00 | \nThe <<< cat >>> sat\n", out.Text)
}

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

package formatter

import (
	"strings"
	"testing"
	"time"

	"korpexport/kwic"
	"korpexport/options"
	"korpexport/tpl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResult = `{
	"hits": 1,
	"corpus_hits": {"NEWS": 1},
	"kwic": [
		{
			"corpus": "NEWS",
			"match": {"start": 1, "end": 3, "position": 100},
			"structs": {"text_title": "Cats", "text_year": "2000"},
			"tokens": [
				{"word": "The", "lemma": "the", "structs": {"open": ["text", "text_id 1", "text_year 2000", "p"]}},
				{"word": "cat", "lemma": "cat"},
				{"word": "sat", "lemma": "sit"},
				{"word": "down", "lemma": "down", "structs": {"close": ["p", "text"]}}
			]
		}
	]
}`

func decode(t *testing.T, data string) *kwic.Result {
	ans, err := kwic.DecodeResult([]byte(data))
	require.NoError(t, err)
	return ans
}

func quietOptions(overrides options.Table) options.Table {
	return options.Merge(
		DefaultOptions(),
		options.Table{"show_info": "False", "show_field_headings": "False"},
		overrides,
	)
}

func render(t *testing.T, result *kwic.Result, params map[string]string, cfg Config) string {
	out, err := Render(result, params, cfg)
	require.NoError(t, err)
	require.False(t, out.IsBinary())
	return out.Text
}

func TestMatchMarkersAtExactPositions(t *testing.T) {
	cfg := Config{Options: quietOptions(options.Table{
		"sentence_format": "{tokens}\n",
		"match_open":      "[",
		"match_close":     "]",
	})}
	assert.Equal(t, "The [cat sat] down\n", render(t, decode(t, testResult), nil, cfg))
}

func TestMatchMarkerField(t *testing.T) {
	cfg := Config{Options: quietOptions(options.Table{
		"sentence_format":      "{tokens}",
		"token_noattrs_format": "{word}{match_marker}",
	})}
	assert.Equal(t, "The cat* sat* down", render(t, decode(t, testResult), nil, cfg))
}

func TestNoMatchSentence(t *testing.T) {
	result := decode(t, `{"hits": 1, "kwic": [{"corpus": "A", "tokens": [{"word": "a"}, {"word": "b"}]}]}`)
	cfg := Config{Options: quietOptions(options.Table{
		"sentence_format": "{left_context}|{match}|{right_context}|{match_pos}",
		"match_open":      "[",
	})}
	assert.Equal(t, "a b|||-1", render(t, result, nil, cfg))
}

func TestCombinedTokenStructs(t *testing.T) {
	cfg := Config{
		Structured: true,
		Options: quietOptions(options.Table{
			"sentence_format":                  "{tokens}",
			"token_format":                     "{structs_open}{word}{structs_close}",
			"combine_token_structs":            "True",
			"token_struct_open_noattrs_format": "<{name}>",
			"token_struct_open_attrs_format":   "<{name} {attrs}>",
			"token_struct_attr_format":         "{name}=\"{value}\"",
			"token_struct_attr_sep":            " ",
			"token_struct_close_format":        "</{name}>",
		}),
	}
	assert.Equal(
		t,
		`<text id="1" year="2000"><p>The cat sat down</p></text>`,
		render(t, decode(t, testResult), nil, cfg),
	)
}

func TestRawTokenStructs(t *testing.T) {
	cfg := Config{
		Structured: true,
		Options: quietOptions(options.Table{
			"sentence_format":           "{tokens}",
			"token_format":              "{structs_open}{word}{structs_close}",
			"token_struct_open_format":  "<{name}>",
			"token_struct_close_format": "</{name}>",
		}),
	}
	assert.Equal(
		t,
		`<text><text_id 1><text_year 2000><p>The cat sat down</p></text>`,
		render(t, decode(t, testResult), nil, cfg),
	)
}

func TestSentenceFieldsWithHeadings(t *testing.T) {
	cfg := Config{Options: options.Merge(DefaultOptions(), options.Table{
		"show_info":          "False",
		"content_format":     "{sentence_field_headings}{sentences}",
		"sentence_format":    "{fields}",
		"sentence_fields":    "hit_num,corpus,match_pos,left_context,match,right_context,?urn",
		"sentence_field_sep": "\t",
	})}
	out := render(t, decode(t, testResult), map[string]string{"start": "10"}, cfg)
	assert.Equal(
		t,
		"hit number\tcorpus\tmatch position\tleft context\tmatch\tright context\n"+
			"10\tNEWS\t100\tThe\tcat sat\tdown",
		out,
	)
}

func TestSentenceTokenAttrFields(t *testing.T) {
	cfg := Config{Options: options.Merge(DefaultOptions(), options.Table{
		"show_info":            "False",
		"content_format":       "{sentence_field_headings}{sentences}",
		"sentence_format":      "{fields}",
		"sentence_token_attrs": "lemma",
		"sentence_fields":      "?lemmas_all,?lemmas_match,?poss_all",
		"sentence_field_sep":   "\t",
	})}
	assert.Equal(
		t,
		"lemmas\tmatch lemmas\nthe cat sit down\tcat sit",
		render(t, decode(t, testResult), nil, cfg),
	)
}

func TestSentenceStructs(t *testing.T) {
	cfg := Config{Options: quietOptions(options.Table{
		"sentence_format": "{structs} / {text_year} / {struct[text_title]}",
		"structs":         []string{"text_year", "missing"},
	})}
	assert.Equal(
		t,
		"text_year: 2000; missing:  / 2000 / text_title: Cats",
		render(t, decode(t, testResult), nil, cfg),
	)
}

func TestInfoItems(t *testing.T) {
	cfg := Config{
		Options: options.Merge(DefaultOptions(), options.Table{
			"show_field_headings": "False",
			"content_format":      "{info}",
			"infoitems":           "date,hitcount,params,?korp_url",
			"params":              "cqp",
			"date_format":         "%Y-%m-%d",
		}),
		Now: func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) },
	}
	out := render(t, decode(t, testResult), map[string]string{"cqp": `[word="cat"]`}, cfg)
	assert.Equal(
		t,
		"Korp search results\n"+
			"Date: 2024-03-05\n"+
			"Total hits: 1\n"+
			"Query parameters: CQP query: [word=\"cat\"]\n",
		out,
	)
}

func TestItemOverride(t *testing.T) {
	cfg := Config{
		Options: quietOptions(options.Table{"sentence_format": "{tokens}"}),
		Items: map[string]ItemFunc{
			"token": func(r *Renderer, elem any, args tpl.Fields) string {
				return strings.ToUpper(r.Default("token", elem, args))
			},
		},
	}
	assert.Equal(t, "THE CAT SAT DOWN", render(t, decode(t, testResult), nil, cfg))
}

func TestSkipAndNewlines(t *testing.T) {
	result := decode(t, `{"hits": 2, "kwic": [
		{"corpus": "A", "tokens": [{"word": "a"}]},
		{"corpus": "B", "tokens": [{"word": " "}]}
	]}`)
	cfg := Config{Options: quietOptions(options.Table{
		"sentence_format": "{tokens}",
		"sentence_sep":    "\n",
		"sentence_skip":   `\s*`,
		"content_format":  "x\n{sentences}\n",
		"newline":         "\r\n",
	})}
	assert.Equal(t, "x\r\na\r\n", render(t, result, nil, cfg))
}

func TestEncodeAndPostprocess(t *testing.T) {
	cfg := Config{
		Options: quietOptions(options.Table{"sentence_format": "{tokens}\n"}),
		Postprocess: func(r *Renderer, text string) string {
			return strings.TrimSpace(text)
		},
		Encode: func(r *Renderer, text string) ([]byte, error) {
			return []byte("<" + text + ">"), nil
		},
	}
	out, err := Render(decode(t, testResult), nil, cfg)
	require.NoError(t, err)
	assert.True(t, out.IsBinary())
	assert.Equal(t, []byte("<The cat sat down>"), out.Binary)
}

func TestAdjustOptionsSeeExpandedLists(t *testing.T) {
	var seen any
	cfg := Config{
		Options: quietOptions(options.Table{"sentence_format": "{fields}", "sentence_fields": "corpus,?aligned"}),
		AdjustOptions: []func(options.Table){
			func(tbl options.Table) {
				seen = tbl["sentence_fields"]
			},
		},
	}
	assert.Equal(t, "NEWS", render(t, decode(t, testResult), nil, cfg))
	assert.Equal(t, []string{"corpus"}, seen)
}

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

package kwic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResult = `{
	"hits": 12,
	"corpus_hits": {"NEWS": 12},
	"kwic": [
		{
			"structs": {"sentence_id": "s1", "text_title": null},
			"tokens": [
				{"word": "The", "pos": "DT", "structs": {"open": ["s_id 42", "s_type prose", "p"]}},
				{"word": "cat", "pos": "NN"},
				{"word": "sat", "pos": "VB"},
				{"word": "on", "pos": null},
				{"word": "mat", "pos": "NN", "structs": {"close": ["s_id", "s_type", "p"]}}
			],
			"match": {"start": 1, "end": 3, "position": 100},
			"corpus": "NEWS",
			"corpus_info": {"urn": "urn:nbn:fi:1", "licence": {"name": "CC-BY", "url": "https://l.example"}}
		}
	]
}`

func mustDecode(t *testing.T, data string) *Result {
	res, err := DecodeResult([]byte(data))
	require.NoError(t, err)
	return res
}

func TestDecodeKeepsAttrOrder(t *testing.T) {
	res := mustDecode(t, testResult)
	require.Len(t, res.Sentences, 1)
	tok := res.Sentences[0].Tokens[0]
	assert.Equal(t, []Attr{{Name: "word", Value: "The"}, {Name: "pos", Value: "DT"}}, tok.Attrs)
	assert.Equal(t, 12, res.HitCount())
	assert.Equal(t, 12, res.CorpusHitCount("NEWS"))
	assert.Equal(t, 0, res.CorpusHitCount("OTHER"))
}

func TestMatchSpanBoundaries(t *testing.T) {
	s := mustDecode(t, testResult).Sentences[0]
	words := func(tokens []Token) []string {
		ans := make([]string, len(tokens))
		for i, t := range tokens {
			ans[i] = t.Word()
		}
		return ans
	}
	assert.Equal(t, []string{"The"}, words(s.TokenSlice(TokensLeftContext)))
	assert.Equal(t, []string{"cat", "sat"}, words(s.TokenSlice(TokensMatch)))
	assert.Equal(t, []string{"on", "mat"}, words(s.TokenSlice(TokensRightContext)))
	assert.Len(t, s.TokenSlice(TokensAll), 5)
	assert.Equal(t, 100, s.MatchPosition())
}

func TestNoMatchSentence(t *testing.T) {
	res := mustDecode(t, `{"kwic": [{"corpus": "A", "tokens": [{"word": "a"}, {"word": "b"}]}]}`)
	s := res.Sentences[0]
	assert.Len(t, s.TokenSlice(TokensLeftContext), 2)
	assert.Empty(t, s.TokenSlice(TokensMatch))
	assert.Empty(t, s.TokenSlice(TokensRightContext))
	assert.Equal(t, -1, s.MatchStart())
	assert.Equal(t, -1, s.MatchEnd())
}

func TestMatchAsListUsesFirst(t *testing.T) {
	res := mustDecode(t, `{"kwic": [{"corpus": "A", "tokens": [{"word": "a"}, {"word": "b"}],
		"match": [{"start": 1, "end": 2, "position": 7}, {"start": 0, "end": 1, "position": 6}]}]}`)
	assert.Equal(t, 1, res.Sentences[0].MatchStart())
	assert.Equal(t, 7, res.Sentences[0].MatchPosition())
}

func TestOutOfRangeMatchIsClamped(t *testing.T) {
	res := mustDecode(t, `{"kwic": [{"corpus": "A", "tokens": [{"word": "a"}, {"word": "b"}],
		"match": {"start": 1, "end": 9, "position": 7}}]}`)
	s := res.Sentences[0]
	assert.Len(t, s.TokenSlice(TokensMatch), 1)
	assert.Empty(t, s.TokenSlice(TokensRightContext))
}

func TestSentenceStructs(t *testing.T) {
	s := mustDecode(t, testResult).Sentences[0]
	all := s.SentenceStructs(nil)
	assert.Equal(t, []Attr{{Name: "sentence_id", Value: "s1"}, {Name: "text_title", Null: true}}, all)
	sel := s.SentenceStructs([]string{"text_title", "missing", "sentence_id"})
	assert.Equal(t, []Attr{
		{Name: "text_title", Value: ""},
		{Name: "missing", Value: ""},
		{Name: "sentence_id", Value: "s1"},
	}, sel)
}

func TestTokenAttrsSelection(t *testing.T) {
	tok := mustDecode(t, testResult).Sentences[0].Tokens[3]
	assert.Equal(t, []Attr{{Name: "pos", Value: ""}, {Name: "lemma", Value: ""}}, tok.SelectAttrs([]string{"pos", "lemma"}))
	assert.Len(t, tok.SelectAttrs(nil), 2)
}

func TestCombinedStructs(t *testing.T) {
	tok := Token{Structs: &TokenStructs{Open: []string{"s_id 42", "s_type prose"}}}
	assert.Equal(t, []string{"s_id 42", "s_type prose"}, tok.RawStructs(StructsOpen))
	assert.Equal(
		t,
		[]CombinedStruct{{Element: "s", Attrs: []Attr{{Name: "id", Value: "42"}, {Name: "type", Value: "prose"}}}},
		tok.CombinedStructs(StructsOpen),
	)
}

func TestCombinedStructsOnlyAdjacent(t *testing.T) {
	tok := Token{Structs: &TokenStructs{
		Open:  []string{"text_id t1", "p", "text_author X"},
		Close: []string{"s_id", "s_type", "text_id"},
	}}
	open := tok.CombinedStructs(StructsOpen)
	require.Len(t, open, 3)
	assert.Equal(t, "text", open[0].Element)
	assert.Equal(t, "p", open[1].Element)
	assert.Empty(t, open[1].Attrs)
	assert.Equal(t, []Attr{{Name: "author", Value: "X"}}, open[2].Attrs)
	closing := tok.CombinedStructs(StructsClose)
	require.Len(t, closing, 2)
	assert.Equal(t, "s", closing[0].Element)
	assert.Empty(t, closing[0].Attrs)
	assert.Equal(t, "text", closing[1].Element)
}

func TestParallelCorpusDetection(t *testing.T) {
	assert.True(t, mustDecode(t, `{"kwic": [{"corpus": "corpusA|corpusB", "tokens": []}]}`).IsParallelCorpus())
	assert.False(t, mustDecode(t, `{"kwic": [{"corpus": "corpusA", "tokens": []}]}`).IsParallelCorpus())
	assert.False(t, mustDecode(t, `{"kwic": []}`).IsParallelCorpus())
}

func TestAlignedSentencesSorted(t *testing.T) {
	res := mustDecode(t, `{"kwic": [{"corpus": "A|B", "tokens": [],
		"aligned": {"zz": [{"word": "z"}], "aa": [{"word": "a"}]}}]}`)
	al := res.Sentences[0].AlignedSentences()
	require.Len(t, al, 2)
	assert.Equal(t, "aa", al[0].Key)
	assert.Equal(t, "zz", al[1].Key)
}

func TestOccurringNames(t *testing.T) {
	res := mustDecode(t, testResult)
	assert.Equal(t, []string{"pos", "word"}, res.OccurringAttrNames([]string{"lemma", "pos", "word"}, "tokens"))
	assert.Equal(t, []string{"text_title"}, res.OccurringAttrNames([]string{"text_title", "x"}, "structs"))
	info := res.OccurringCorpusInfo()
	assert.True(t, info.Contains("urn"))
	assert.True(t, info.Contains("licence_name"))
	assert.True(t, info.Contains("licence_url"))
	assert.False(t, info.Contains("licence"))
}

func TestCorpusLink(t *testing.T) {
	s := mustDecode(t, testResult).Sentences[0]
	assert.Equal(t, "http://urn.fi/urn:nbn:fi:1", s.CorpusLink("", "http://urn.fi/"))
	assert.Equal(t, "https://l.example", s.CorpusLink("licence", "http://urn.fi/"))
	assert.Equal(t, "", s.CorpusLink("metadata", ""))
	assert.Equal(t, "CC-BY", s.CorpusInfoItem("licence", "name"))
}

func TestTokenWith(t *testing.T) {
	tok := Token{Attrs: []Attr{{Name: "word", Value: "a"}}}
	tok2 := tok.With("word", "b").With("lemma", "c")
	assert.Equal(t, "a", tok.Word())
	assert.Equal(t, "b", tok2.Word())
	assert.Equal(t, "c", tok2.Attr("lemma"))
}

func TestSentenceMarshalPreservesNulls(t *testing.T) {
	res := mustDecode(t, `{"kwic": [{"corpus": "A", "tokens": [{"word": "<a>", "pos": null}], "extra": [1,2]}]}`)
	data, err := MarshalSentences(res.Sentences)
	require.NoError(t, err)
	assert.Equal(t, `[{"tokens":[{"word":"<a>","pos":null}],"corpus":"A","extra":[1,2]}]`, string(data))
}

func TestCorpusNames(t *testing.T) {
	res := mustDecode(t, `{"kwic": [{"corpus": "B", "tokens": []}, {"corpus": "A", "tokens": []}, {"corpus": "B", "tokens": []}]}`)
	assert.Equal(t, []string{"B", "A"}, res.CorpusNames())
}

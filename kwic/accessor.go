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
	"strings"

	"github.com/czcorpus/cnc-gokit/collections"
)

// TokenKind specifies a slice of sentence tokens
type TokenKind string

const (
	TokensAll          TokenKind = "all"
	TokensMatch        TokenKind = "match"
	TokensLeftContext  TokenKind = "left_context"
	TokensRightContext TokenKind = "right_context"

	// ParallelCorpusSeparator joins ids of aligned corpora
	// in the `corpus` field of a sentence.
	ParallelCorpusSeparator = "|"
)

var AllTokenKinds = []TokenKind{TokensAll, TokensMatch, TokensLeftContext, TokensRightContext}

func (tk TokenKind) Validate() bool {
	return collections.SliceContains(AllTokenKinds, tk)
}

// StructKind distinguishes structures opening before
// and closing after a token.
type StructKind string

const (
	StructsOpen  StructKind = "open"
	StructsClose StructKind = "close"
)

// ---------------------------

func (r *Result) HitCount() int {
	if r == nil {
		return 0
	}
	return r.Hits
}

// CorpusHitCount returns the number of hits for a single corpus.
func (r *Result) CorpusHitCount(corpus string) int {
	if r == nil {
		return 0
	}
	return r.CorpusHits[corpus]
}

func (r *Result) CorpusHitCounts() map[string]int {
	if r == nil || r.CorpusHits == nil {
		return map[string]int{}
	}
	return r.CorpusHits
}

func (r *Result) NumSentences() int {
	if r == nil {
		return 0
	}
	return len(r.Sentences)
}

// IsParallelCorpus tests whether the result comes from a parallel
// corpus. The test only looks for the separator in the corpus name
// of the first sentence so it fails for results where the corpus
// names have already been rewritten by a client.
func (r *Result) IsParallelCorpus() bool {
	if r == nil || len(r.Sentences) == 0 || r.Sentences[0] == nil {
		return false
	}
	return strings.Contains(r.Sentences[0].Corpus, ParallelCorpusSeparator)
}

// CorpusNames returns unique corpus names in the order
// of their first occurrence.
func (r *Result) CorpusNames() []string {
	if r == nil {
		return []string{}
	}
	seen := collections.NewSet[string]()
	ans := make([]string, 0, 4)
	for _, s := range r.Sentences {
		if s == nil || seen.Contains(s.Corpus) {
			continue
		}
		seen.Add(s.Corpus)
		ans = append(ans, s.Corpus)
	}
	return ans
}

// OccurringAttrNames returns those of names which occur in
// at least one sentence. The where argument is either "tokens"
// (positional attributes) or "structs" (structural attributes).
func (r *Result) OccurringAttrNames(names []string, where string) []string {
	occurring := collections.NewSet[string]()
	if r != nil {
		for _, s := range r.Sentences {
			if s == nil {
				continue
			}
			switch where {
			case "tokens":
				for _, tok := range s.Tokens {
					for _, a := range tok.Attrs {
						occurring.Add(a.Name)
					}
					if tok.Structs != nil {
						occurring.Add("structs")
					}
				}
			case "structs":
				for _, a := range s.Structs {
					occurring.Add(a.Name)
				}
			}
		}
	}
	ans := make([]string, 0, len(names))
	for _, name := range names {
		if occurring.Contains(name) {
			ans = append(ans, name)
		}
	}
	return ans
}

// OccurringCorpusInfo returns the set of corpus info keys present
// in the result. For nested info items, the keys are in the form
// `item_subitem`.
func (r *Result) OccurringCorpusInfo() *collections.Set[string] {
	ans := collections.NewSet[string]()
	if r == nil {
		return ans
	}
	for _, s := range r.Sentences {
		if s == nil {
			continue
		}
		for key, val := range s.CorpusInfo {
			switch tval := val.(type) {
			case nil:
			case string:
				ans.Add(key)
			case map[string]any:
				for sub := range tval {
					ans.Add(key + "_" + sub)
				}
			case map[string]string:
				for sub := range tval {
					ans.Add(key + "_" + sub)
				}
			default:
				ans.Add(key)
			}
		}
	}
	return ans
}

// ---------------------------

func clampBound(v, size int) int {
	if v < 0 {
		return 0
	}
	if v > size {
		return size
	}
	return v
}

// MatchStart returns the index of the first matching token
// or -1 if the sentence has no match.
func (s *Sentence) MatchStart() int {
	if s.Match == nil {
		return -1
	}
	return s.Match.Start
}

func (s *Sentence) MatchEnd() int {
	if s.Match == nil {
		return -1
	}
	return s.Match.End
}

func (s *Sentence) MatchPosition() int {
	if s.Match == nil {
		return -1
	}
	return s.Match.Position
}

// TokenSlice returns tokens of the specified kind. With no match
// in the sentence, the left context contains all the tokens and
// both the match and the right context are empty.
func (s *Sentence) TokenSlice(kind TokenKind) []Token {
	size := len(s.Tokens)
	switch kind {
	case TokensMatch:
		if s.Match == nil {
			return []Token{}
		}
		start := clampBound(s.Match.Start, size)
		end := clampBound(s.Match.End, size)
		if end < start {
			end = start
		}
		return s.Tokens[start:end]
	case TokensLeftContext:
		if s.Match == nil {
			return s.Tokens
		}
		return s.Tokens[:clampBound(s.Match.Start, size)]
	case TokensRightContext:
		if s.Match == nil {
			return []Token{}
		}
		start := clampBound(s.Match.Start, size)
		end := clampBound(s.Match.End, size)
		if end < start {
			end = start
		}
		return s.Tokens[end:]
	default:
		return s.Tokens
	}
}

// AlignedSentence is a token sequence of a sentence aligned
// with the main one in a parallel corpus.
type AlignedSentence struct {
	Key    string
	Tokens []Token
}

// AlignedSentences returns aligned sentences sorted by their
// align keys.
func (s *Sentence) AlignedSentences() []AlignedSentence {
	keys := sortedKeys(s.Aligned)
	ans := make([]AlignedSentence, len(keys))
	for i, k := range keys {
		ans[i] = AlignedSentence{Key: k, Tokens: s.Aligned[k]}
	}
	return ans
}

func lookupAttr(attrs []Attr, name string) (Attr, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

func selectAttrs(attrs []Attr, names []string) []Attr {
	if names == nil {
		ans := make([]Attr, len(attrs))
		copy(ans, attrs)
		return ans
	}
	ans := make([]Attr, len(names))
	for i, name := range names {
		a, _ := lookupAttr(attrs, name)
		ans[i] = Attr{Name: name, Value: a.Value}
	}
	return ans
}

// SentenceStructs returns structural attributes of the sentence.
// With nil names, all the attributes are returned in their original
// order. Otherwise, exactly the named attributes are returned
// with missing ones set to an empty value.
func (s *Sentence) SentenceStructs(names []string) []Attr {
	if s.Structs == nil && names == nil {
		return []Attr{}
	}
	return selectAttrs(s.Structs, names)
}

// Struct returns a value of a single structural attribute.
func (s *Sentence) Struct(name string) (string, bool) {
	a, ok := lookupAttr(s.Structs, name)
	return a.Value, ok
}

// StructMap returns the structural attributes as a map
func (s *Sentence) StructMap() map[string]string {
	ans := make(map[string]string, len(s.Structs))
	for _, a := range s.Structs {
		ans[a.Name] = a.Value
	}
	return ans
}

// CorpusInfoItem returns a value of a corpus info item. With a non-empty
// sub, the item is expected to be a nested map. Missing values
// are returned as an empty string.
func (s *Sentence) CorpusInfoItem(item, sub string) string {
	val, ok := s.CorpusInfo[item]
	if !ok || val == nil {
		return ""
	}
	if sub == "" {
		if sval, ok := val.(string); ok {
			return sval
		}
		return ""
	}
	switch tval := val.(type) {
	case map[string]any:
		if v, ok := tval[sub].(string); ok {
			return v
		}
	case map[string]string:
		return tval[sub]
	}
	return ""
}

// CorpusLink returns URN (preferred) or URL of the corpus or
// of a corpus info item (e.g. `licence`). A URN is prefixed
// by urnResolver.
func (s *Sentence) CorpusLink(item, urnResolver string) string {
	for _, linkType := range []string{"urn", "url"} {
		var link string
		if item != "" {
			link = s.CorpusInfoItem(item, linkType)

		} else {
			link = s.CorpusInfoItem(linkType, "")
		}
		if link != "" {
			if linkType == "urn" {
				link = urnResolver + link
			}
			return link
		}
	}
	return ""
}

// ---------------------------

// Attr returns value of the token attribute. Missing and null
// values are returned as an empty string.
func (t Token) Attr(name string) string {
	a, _ := lookupAttr(t.Attrs, name)
	return a.Value
}

// LookupAttr returns the token attribute and true if the token
// has the attribute.
func (t Token) LookupAttr(name string) (Attr, bool) {
	return lookupAttr(t.Attrs, name)
}

func (t Token) Word() string {
	return t.Attr("word")
}

// SelectAttrs returns positional attributes of the token. With nil
// names, all the attributes are returned. Otherwise, exactly the named
// attributes are returned with missing ones set to an empty value.
func (t Token) SelectAttrs(names []string) []Attr {
	return selectAttrs(t.Attrs, names)
}

// With returns a copy of the token with the attribute set to value
func (t Token) With(name, value string) Token {
	ans := Token{Attrs: make([]Attr, 0, len(t.Attrs)+1), Structs: t.Structs}
	var found bool
	for _, a := range t.Attrs {
		if a.Name == name {
			ans.Attrs = append(ans.Attrs, Attr{Name: name, Value: value})
			found = true

		} else {
			ans.Attrs = append(ans.Attrs, a)
		}
	}
	if !found {
		ans.Attrs = append(ans.Attrs, Attr{Name: name, Value: value})
	}
	return ans
}

// RawStructs returns structures opening or closing at the token
// as encoded by Corpus Workbench.
func (t Token) RawStructs(kind StructKind) []string {
	if t.Structs == nil {
		return []string{}
	}
	var ans []string
	if kind == StructsOpen {
		ans = t.Structs.Open

	} else {
		ans = t.Structs.Close
	}
	if ans == nil {
		return []string{}
	}
	return ans
}

// CombinedStruct is an XML-like element reconstructed from
// Corpus Workbench structural attributes `elem_attr`.
type CombinedStruct struct {
	Element string
	Attrs   []Attr
}

// CombinedStructs groups adjacent structural attributes of the same
// element into a single element with a list of attributes. Element
// names are expected not to contain underscores.
func (t Token) CombinedStructs(kind StructKind) []CombinedStruct {
	raw := t.RawStructs(kind)
	ans := make([]CombinedStruct, 0, len(raw))
	for _, item := range raw {
		var value string
		var hasValue bool
		if kind == StructsOpen {
			item, value, hasValue = strings.Cut(item, " ")
		}
		elem, attrName, _ := strings.Cut(item, "_")
		if len(ans) == 0 || ans[len(ans)-1].Element != elem {
			ans = append(ans, CombinedStruct{Element: elem, Attrs: []Attr{}})
		}
		if hasValue {
			last := &ans[len(ans)-1]
			last.Attrs = append(last.Attrs, Attr{Name: attrName, Value: value})
		}
	}
	return ans
}

// AttrNames returns sorted names of all attributes
// present in any of the tokens.
func AttrNames(tokens []Token) []string {
	names := make(map[string]bool)
	for _, t := range tokens {
		for _, a := range t.Attrs {
			names[a.Name] = true
		}
	}
	return sortedKeys(names)
}

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
	"korpexport/kwic"
	"korpexport/tpl"
)

var defaultItems map[string]ItemFunc

// infoitemRenderers lists info items which are formatted
// by their own renderers instead of being taken from options.
var infoitemRenderers = map[string]bool{
	"date":     true,
	"hitcount": true,
	"params":   true,
	"title":    true,
}

func init() {
	defaultItems = map[string]ItemFunc{
		"content":             formatContent,
		"infoitems":           formatInfoitems,
		"infoitem":            formatInfoitem,
		"title":               formatTitle,
		"date":                formatDate,
		"hitcount":            formatHitcount,
		"params":              formatParams,
		"param":               formatParam,
		"field_headings":      formatFieldHeadings,
		"sentences":           formatSentences,
		"sentence":            formatSentence,
		"sentence_field":      formatSentenceField,
		"corpus_info":         formatCorpusInfo,
		"corpus_info_field":   formatCorpusInfoField,
		"aligned_sentences":   formatAlignedSentences,
		"aligned":             formatAligned,
		"structs":             formatStructs,
		"struct":              formatStruct,
		"tokens":              formatTokens,
		"token":               formatToken,
		"token_field":         formatTokenField,
		"token_attrs":         formatTokenAttrs,
		"attr":                formatAttr,
		"token_structs_open":  formatTokenStructsOpen,
		"token_struct_open":   formatTokenStructOpen,
		"token_structs_close": formatTokenStructsClose,
		"token_struct_close":  formatTokenStructClose,
		"token_struct_attr":   formatTokenStructAttr,
	}
}

// ItemNames returns names of all the items a format plugin
// may override.
func ItemNames() []string {
	ans := make([]string, 0, len(defaultItems))
	for k := range defaultItems {
		ans = append(ans, k)
	}
	return ans
}

func asString(elem any) string {
	if s, ok := elem.(string); ok {
		return s
	}
	return ""
}

// ---------------------------

func formatContent(r *Renderer, _ any, args tpl.Fields) string {
	fields := args.With(tpl.Fields{
		"info":      tpl.LazyStr(func() string { return r.Call("infoitems", nil, args) }),
		"sentences": tpl.LazyStr(func() string { return r.Call("sentences", nil, args) }),
	})
	return r.Item("content", fields.Update(r.infoitems))
}

func formatInfoitems(r *Renderer, _ any, args tpl.Fields) string {
	if !r.Bool("show_info") {
		return ""
	}
	fields := args.With(r.infoitems)
	fields["infoitems"] = tpl.LazyStr(func() string {
		return List(r, "infoitem", r.opts.List("infoitems"), nil, tpl.Fields{})
	})
	return r.Item("infoitems", fields)
}

func formatInfoitem(r *Renderer, elem any, args tpl.Fields) string {
	key := asString(elem)
	var value any
	if infoitemRenderers[key] {
		value = r.Call(key, nil, tpl.Fields{})

	} else if r.opts.Has(key) {
		value = r.opts.Value(key)
	}
	return r.LabelListItem("infoitem", key, value, args)
}

func formatTitle(r *Renderer, _ any, args tpl.Fields) string {
	if !r.opts.Has("title") {
		return ""
	}
	return r.Item("title", args.With(tpl.Fields{"title": tpl.Eager(r.opts.Str("title"))}))
}

func formatDate(r *Renderer, _ any, _ tpl.Fields) string {
	return r.formatDate()
}

func formatHitcount(r *Renderer, _ any, args tpl.Fields) string {
	return r.Item("hitcount", args.With(tpl.Fields{"hitcount": tpl.Eager(r.result.HitCount())}))
}

func formatParams(r *Renderer, _ any, args tpl.Fields) string {
	fields := args.With(tpl.FromStrings(r.queryParams))
	fields["param"] = tpl.Eager(r.queryParams)
	fields["params"] = tpl.LazyStr(func() string {
		return List(r, "param", r.opts.List("params"), nil, tpl.Fields{})
	})
	return r.Item("params", fields)
}

func formatParam(r *Renderer, elem any, args tpl.Fields) string {
	key := asString(elem)
	var value any
	if v, ok := r.queryParams[key]; ok {
		value = v
	}
	return r.LabelListItem("param", key, value, args)
}

// formatFieldHeadings formats headings of the fields listed in the option
// `<itemType>_fields` where itemType is passed as elem ("sentence" or
// "token").
func formatFieldHeadings(r *Renderer, elem any, args tpl.Fields) string {
	if !r.Bool("show_field_headings") {
		return ""
	}
	itemType := asString(elem)
	fields := r.opts.List(itemType + "_fields")
	var headings tpl.Field
	if len(fields) > 0 {
		headingType := itemType + "_field"
		headings = tpl.LazyStr(func() string {
			return List(
				r,
				headingType,
				fields,
				func(key string, _ tpl.Fields) string {
					return r.LabelListItem(
						headingType, key, r.opts.Label(headingType+"_labels", key), tpl.Fields{})
				},
				args,
			)
		})

	} else {
		headings = tpl.Eager("")
	}
	return r.Item("field_headings", args.With(tpl.Fields{"field_headings": headings}))
}

// ---------------------------

func formatSentences(r *Renderer, _ any, args tpl.Fields) string {
	return List(r, "sentence", r.result.Sentences, nil, args)
}

// formattedSentenceStructs returns all the structural attributes
// of the sentence, each lazily formatted using `struct_format`.
func formattedSentenceStructs(r *Renderer, s *kwic.Sentence, args tpl.Fields) tpl.Fields {
	ans := make(tpl.Fields, len(s.Structs))
	for _, st := range s.SentenceStructs(nil) {
		ans[st.Name] = tpl.LazyStr(func() string {
			return r.Call("struct", st, args)
		})
	}
	return ans
}

type tokensTypeInfo struct {
	field string
	kind  kwic.TokenKind
	extra tpl.Fields
}

func formatSentence(r *Renderer, elem any, args tpl.Fields) string {
	s, ok := elem.(*kwic.Sentence)
	if !ok || s == nil {
		return ""
	}
	corpusInfo := r.corpusInfoFields(s)
	sentenceNum, _ := args.Int("sentence_num")
	fields := tpl.Fields{
		"corpus":      tpl.Eager(s.Corpus),
		"match_pos":   tpl.Eager(s.MatchPosition()),
		"match_open":  tpl.Eager(r.opts.Str("match_open")),
		"match_close": tpl.Eager(r.opts.Str("match_close")),
		"aligned": tpl.LazyStr(func() string {
			return r.Call("aligned_sentences", s, tpl.Fields{})
		}),
		"structs": tpl.LazyStr(func() string {
			return r.Call("structs", s, tpl.Fields{})
		}),
		"struct":            tpl.Eager(formattedSentenceStructs(r, s, args)),
		"corpus_info_field": tpl.Eager(corpusInfo),
		"hit_num": tpl.Lazy(func() any {
			return r.hitNum(sentenceNum)
		}),
		"arg": tpl.Eager(args),
	}
	withMarkers := r.opts.Str("match_open") != "" || r.opts.Str("match_close") != "" ||
		r.opts.Str("match_marker") != ""
	typesInfo := []tokensTypeInfo{
		{field: "tokens", kind: kwic.TokensAll},
		{
			field: "match",
			kind:  kwic.TokensMatch,
			extra: tpl.Fields{"match_mark": tpl.Eager(r.opts.Str("match_marker"))},
		},
		{field: "left_context", kind: kwic.TokensLeftContext},
		{field: "right_context", kind: kwic.TokensRightContext},
	}
	for _, info := range typesInfo {
		tokens := s.TokenSlice(info.kind)
		opts := tpl.Fields{"tokens_type": tpl.Eager(string(info.kind))}.
			Update(info.extra).Update(args)
		if withMarkers {
			switch info.kind {
			case kwic.TokensAll:
				opts["match_start"] = tpl.Eager(s.MatchStart())
				opts["match_end"] = tpl.Eager(s.MatchEnd())
			case kwic.TokensMatch:
				opts["match_start"] = tpl.Eager(0)
				opts["match_end"] = tpl.Eager(len(tokens))
			}
		}
		fields[info.field] = tpl.LazyStr(func() string {
			return r.Call("tokens", tokens, opts)
		})
		for _, attr := range r.sentenceTokenAttrs {
			fieldName := r.sentenceTokenAttrLabels[attr] + "_" + string(info.kind)
			attrOpts := opts.With(tpl.Fields{"attr_only": tpl.Eager(attr)})
			fields[fieldName] = tpl.LazyStr(func() string {
				return r.Call("tokens", tokens, attrOpts)
			})
		}
	}
	fields.Update(args)
	for _, st := range s.SentenceStructs(r.opts.List("structs")) {
		fields[st.Name] = tpl.Eager(st.Value)
	}
	fields.Update(r.infoitems)
	fields.Update(corpusInfo)
	infoArgs := fields.Clone()
	fields["corpus_info"] = tpl.LazyStr(func() string {
		return r.Call("corpus_info", nil, infoArgs)
	})
	infoArgs["corpus_info"] = fields["corpus_info"]
	fields["info"] = tpl.LazyStr(func() string {
		return r.Item("sentence_info", infoArgs)
	})
	fieldsArgs := fields.Clone()
	fields["fields"] = tpl.LazyStr(func() string {
		return List(r, "sentence_field", r.opts.List("sentence_fields"), nil, fieldsArgs)
	})
	return r.Item("sentence", fields)
}

// fieldValue returns a value of a field for a field list item: the field
// itself if it is lazy or has a non-nil value, otherwise fallback[key].
func fieldValue(args tpl.Fields, key, fallback string) any {
	if f, ok := args[key]; ok && (f.IsLazy() || f.Value() != nil) {
		return f
	}
	if fb, ok := args.Get(fallback).(tpl.Fields); ok {
		if f, ok := fb[key]; ok {
			return f
		}
	}
	return ""
}

func formatSentenceField(r *Renderer, elem any, args tpl.Fields) string {
	key := asString(elem)
	return r.LabelListItem("sentence_field", key, fieldValue(args, key, "struct"), args)
}

func formatCorpusInfo(r *Renderer, _ any, args tpl.Fields) string {
	fields := args.With(tpl.Fields{
		"fields": tpl.LazyStr(func() string {
			return List(r, "corpus_info_field", r.opts.List("corpus_info_fields"), nil, args)
		}),
	})
	return r.Item("corpus_info", fields)
}

func formatCorpusInfoField(r *Renderer, elem any, args tpl.Fields) string {
	key := asString(elem)
	return r.LabelListItem("corpus_info_field", key, fieldValue(args, key, "corpus_info_field"), args)
}

func formatAlignedSentences(r *Renderer, elem any, args tpl.Fields) string {
	s, ok := elem.(*kwic.Sentence)
	if !ok || s == nil {
		return ""
	}
	return List(r, "aligned", s.AlignedSentences(), nil, args)
}

func formatAligned(r *Renderer, elem any, args tpl.Fields) string {
	aligned, ok := elem.(kwic.AlignedSentence)
	if !ok {
		return ""
	}
	tokensArgs := args.With(tpl.Fields{"tokens_type": tpl.Eager("aligned")})
	return r.Item("aligned", args.With(tpl.Fields{
		"align_key": tpl.Eager(aligned.Key),
		"sentence": tpl.LazyStr(func() string {
			return r.Call("tokens", aligned.Tokens, tokensArgs)
		}),
	}))
}

// formatStructs formats the sentence structural attributes selected
// by the option `structs`.
func formatStructs(r *Renderer, elem any, args tpl.Fields) string {
	s, ok := elem.(*kwic.Sentence)
	if !ok || s == nil {
		return ""
	}
	return List(r, "struct", s.SentenceStructs(r.opts.List("structs")), nil, args)
}

func formatStruct(r *Renderer, elem any, args tpl.Fields) string {
	st, ok := elem.(kwic.Attr)
	if !ok {
		return ""
	}
	return r.Item("struct", args.With(tpl.Fields{
		"name":  tpl.Eager(st.Name),
		"value": tpl.Eager(st.Value),
	}))
}

// ---------------------------

func formatTokens(r *Renderer, elem any, args tpl.Fields) string {
	tokens, ok := elem.([]kwic.Token)
	if !ok {
		return ""
	}
	return List(r, "token", tokens, nil, args)
}

// selectedAttrs returns the token attributes selected by
// the option `attrs`.
func (r *Renderer) selectedAttrs(token kwic.Token) []kwic.Attr {
	return token.SelectAttrs(r.opts.List("attrs"))
}

// MatchMarkers returns the match open, close and marker strings
// for a token based on the fields `token_num`, `match_start`
// and `match_end` in args.
func (r *Renderer) MatchMarkers(args tpl.Fields) (open, close, marker string) {
	matchEnd, ok := args.Int("match_end")
	if !ok || matchEnd <= 0 {
		return
	}
	tokenNum, ok := args.Int("token_num")
	if !ok {
		tokenNum = -1
	}
	matchStart, _ := args.Int("match_start")
	if tokenNum == matchStart {
		open = r.opts.Str("match_open")
	}
	if tokenNum == matchEnd-1 {
		close = r.opts.Str("match_close")
	}
	if matchStart <= tokenNum && tokenNum < matchEnd {
		marker = r.opts.Str("match_marker")
	}
	return
}

// TokenFields returns the basic fields of a token: `attrs`,
// `structs_open`, `structs_close`, `word` and the selected raw
// attribute values, all overridden by args.
func (r *Renderer) TokenFields(token kwic.Token, args tpl.Fields) tpl.Fields {
	fields := tpl.Fields{
		"attrs": tpl.LazyStr(func() string {
			return r.Call("token_attrs", token, tpl.Fields{})
		}),
		"structs_open": tpl.LazyStr(func() string {
			return r.Call("token_structs_open", token, tpl.Fields{})
		}),
		"structs_close": tpl.LazyStr(func() string {
			return r.Call("token_structs_close", token, tpl.Fields{})
		}),
		"word": tpl.LazyStr(func() string {
			return r.Item("word", tpl.Fields{"word": tpl.Eager(token.Word())})
		}),
	}
	for _, a := range r.selectedAttrs(token) {
		fields[a.Name] = tpl.Eager(a.Value)
	}
	return fields.Update(args)
}

func formatToken(r *Renderer, elem any, args tpl.Fields) string {
	token, ok := elem.(kwic.Token)
	if !ok {
		return ""
	}
	attrOnly := args.Str("attr_only")
	if attrOnly == "word" {
		attrOnly = ""
	}
	var formatName string
	switch {
	case attrOnly != "":
		formatName = "token_attr"
	case len(r.opts.List("attrs")) > 0 || r.cfg.Structured || len(r.opts.List("token_fields")) > 1:
		formatName = "token"
	default:
		formatName = "token_noattrs"
	}
	fields := r.TokenFields(token, args)
	if attrOnly != "" {
		attr := kwic.Attr{Name: attrOnly, Value: token.Attr(attrOnly)}
		delete(fields, "word")
		fields["attr"] = tpl.LazyStr(func() string {
			return formatTokenAttr(r, attr, "attr_only", args)
		})
		fields["fields"] = tpl.Eager("")

	} else {
		fieldsArgs := fields.Clone()
		fields["fields"] = tpl.LazyStr(func() string {
			return List(r, "token_field", r.opts.List("token_fields"), nil, fieldsArgs)
		})
	}
	open, close, marker := r.MatchMarkers(args)
	fields["match_open"] = tpl.Eager(open)
	fields["match_close"] = tpl.Eager(close)
	fields["match_marker"] = tpl.Eager(marker)
	return r.Item(formatName, fields)
}

func truthyField(f tpl.Field) bool {
	if f.IsLazy() {
		return true
	}
	switch tv := f.Value().(type) {
	case nil:
		return false
	case string:
		return tv != ""
	case int:
		return tv != 0
	case bool:
		return tv
	default:
		return true
	}
}

func formatTokenField(r *Renderer, elem any, args tpl.Fields) string {
	key := asString(elem)
	var value any = ""
	if f, ok := args[key]; ok && truthyField(f) {
		value = f
	}
	return r.LabelListItem("token_field", key, value, args)
}

func formatTokenAttrs(r *Renderer, elem any, args tpl.Fields) string {
	token, ok := elem.(kwic.Token)
	if !ok {
		return ""
	}
	return List(r, "attr", r.selectedAttrs(token), nil, args)
}

func formatTokenAttr(r *Renderer, attr kwic.Attr, itemType string, args tpl.Fields) string {
	return r.Item(itemType, args.With(tpl.Fields{
		"name":  tpl.Eager(attr.Name),
		"value": tpl.Eager(attr.Value),
	}))
}

func formatAttr(r *Renderer, elem any, args tpl.Fields) string {
	attr, ok := elem.(kwic.Attr)
	if !ok {
		return ""
	}
	return formatTokenAttr(r, attr, "attr", args)
}

func formatTokenStructsOpen(r *Renderer, elem any, args tpl.Fields) string {
	token, ok := elem.(kwic.Token)
	if !ok {
		return ""
	}
	if r.Bool("combine_token_structs") {
		return List(r, "token_struct_open", token.CombinedStructs(kwic.StructsOpen), nil, args)
	}
	return List(r, "token_struct_open", token.RawStructs(kwic.StructsOpen), nil, args)
}

func formatTokenStructOpen(r *Renderer, elem any, args tpl.Fields) string {
	switch st := elem.(type) {
	case kwic.CombinedStruct:
		formatName := "token_struct_open_noattrs"
		fields := args.With(tpl.Fields{"name": tpl.Eager(st.Element)})
		if len(st.Attrs) > 0 {
			formatName = "token_struct_open_attrs"
			fields["attrs"] = tpl.LazyStr(func() string {
				return List(r, "token_struct_attr", st.Attrs, nil, args)
			})
		}
		return r.Item(formatName, fields)
	case string:
		return r.Item("token_struct_open", args.With(tpl.Fields{"name": tpl.Eager(st)}))
	default:
		return ""
	}
}

func formatTokenStructAttr(r *Renderer, elem any, args tpl.Fields) string {
	attr, ok := elem.(kwic.Attr)
	if !ok {
		return ""
	}
	return r.Item("token_struct_attr", args.With(tpl.Fields{
		"name":  tpl.Eager(attr.Name),
		"value": tpl.Eager(attr.Value),
	}))
}

func formatTokenStructsClose(r *Renderer, elem any, args tpl.Fields) string {
	token, ok := elem.(kwic.Token)
	if !ok {
		return ""
	}
	if r.Bool("combine_token_structs") {
		return List(r, "token_struct_close", token.CombinedStructs(kwic.StructsClose), nil, args)
	}
	return List(r, "token_struct_close", token.RawStructs(kwic.StructsClose), nil, args)
}

func formatTokenStructClose(r *Renderer, elem any, args tpl.Fields) string {
	var name string
	switch st := elem.(type) {
	case kwic.CombinedStruct:
		name = st.Element
	case string:
		name = st
	default:
		return ""
	}
	return r.Item("token_struct_close", args.With(tpl.Fields{"name": tpl.Eager(name)}))
}

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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"korpexport/formatter"
	"korpexport/kwic"
	"korpexport/options"
	"korpexport/tpl"
)

var (
	noojMsdSplitRx = regexp.MustCompile(`[| ;]`)

	// lemmas which would break the NooJ markup
	noojLemmaRenames = map[string]string{
		`"`: "QUOTE",
		",": "COMMA",
		"<": "A_BRACKET_LEFT",
		">": "A_BRACKET_RIGHT",
	}
)

// noojMsd returns morphosyntactic features of a token with the part
// of speech removed. Features are sorted and joined with `+`.
func noojMsd(msd, pos string) string {
	uniq := make(map[string]bool)
	for _, v := range noojMsdSplitRx.Split(msd, -1) {
		if v != "" && v != pos {
			uniq[v] = true
		}
	}
	ans := make([]string, 0, len(uniq))
	for v := range uniq {
		ans = append(ans, v)
	}
	sort.Strings(ans)
	return strings.Join(ans, "+")
}

// noojCategory returns the part of speech and the morphosyntactic
// features of a token in the form `POS+feat1+feat2`.
func noojCategory(token kwic.Token) string {
	msdAttr, hasMsd := token.LookupAttr("msd")
	msd := strings.ReplaceAll(msdAttr.Value, ">>>", "(")
	pos, hasPos := token.LookupAttr("pos")
	var category string
	switch {
	case hasPos:
		if msdAttr.Null {
			msd = "None"
		}
		category = strings.ToUpper(pos.Value) + "+" + strings.ToLower(noojMsd(msd, pos.Value))
	case hasMsd:
		category = "UNK+" + strings.ToLower(msd)
	default:
		category = "UNK+"
	}
	return strings.TrimSuffix(category, "+")
}

// noojLemma returns a lemma of a token in a form usable in the NooJ
// markup and true if the token has a lemma.
func noojLemma(token kwic.Token) (string, bool) {
	lemma, ok := token.LookupAttr("lemma")
	if !ok {
		return "", false
	}
	if renamed, found := noojLemmaRenames[lemma.Value]; found {
		return renamed, true
	}
	return lemma.Value, true
}

// noojDependency returns the dependency markup of a token. The heads
// are looked up among the tokens of the sentence.
func noojDependency(token kwic.Token, sentence []kwic.Token) string {
	dephead, ok := token.LookupAttr("dephead")
	if !ok {
		return ""
	}
	lemma, hasLemma := noojLemma(token)
	depLemmas := make(map[string]string)
	if hasLemma {
		for _, t := range sentence {
			if _, ok := t.LookupAttr("deprel"); ok {
				depLemmas[t.Attr("ref")], _ = noojLemma(t)
			}
		}
	}
	ref := token.Attr("ref")
	head := dephead.Value
	var depLemma string
	if head == "0" {
		depLemma = lemma
		head = ref

	} else if v, ok := depLemmas[head]; ok {
		depLemma = v

	} else if head == "_" {
		depLemma = "phrase"

	} else {
		depLemma = "[   ]"
	}
	return fmt.Sprintf(
		` ID="%s" DEP="%s+%s" ID_REF="%s"`,
		ref, strings.ToUpper(token.Attr("deprel")), depLemma, head)
}

// formatNoojTokens formats only complete sentences, NooJ has
// no use for contexts.
func formatNoojTokens(r *formatter.Renderer, elem any, args tpl.Fields) string {
	tokens, ok := elem.([]kwic.Token)
	if !ok || args.Str("tokens_type") != string(kwic.TokensAll) {
		return ""
	}
	return formatter.List(r, "token", tokens, nil, args.With(tpl.Fields{"token_list": tpl.Eager(tokens)}))
}

func formatNoojToken(r *formatter.Renderer, elem any, args tpl.Fields) string {
	token, ok := elem.(kwic.Token)
	if !ok {
		return ""
	}
	sentence, _ := args.Get("token_list").([]kwic.Token)
	lemma, hasLemma := noojLemma(token)
	category := noojCategory(token)
	dep := noojDependency(token, sentence)
	if hasLemma {
		token = token.With("lemma", lemma)
	}
	fields := r.TokenFields(token, args)
	fields["nooj_attrs"] = tpl.Eager(category)
	fields["nooj_dep"] = tpl.Eager(dep)
	if hasLemma {
		fields["lemma"] = tpl.Eager(lemma)
	}
	fieldsArgs := fields.Clone()
	fields["fields"] = tpl.LazyStr(func() string {
		return formatter.List(r, "token_field", r.Opts().List("token_fields"), nil, fieldsArgs)
	})
	return r.Item("token", fields)
}

var noojPlugin = &Plugin{
	Names:     []string{"nooj"},
	MIMEType:  "application/xml",
	Extension: ".xml.txt",
	Defaults: options.Table{
		"newline":            "\r\n",
		"content_format":     "{sentences}\n\n<!--\n{info}\n-->",
		"infoitem_format":    "## {label}:{sp_or_nl}{value}",
		"title_format":       "## {title} \n",
		"param_format":       "## {label}: {value}",
		"param_sep":          "\n",
		"sentence_format":    "<S>{tokens}</S>",
		"sentence_sep":       "\n\n",
		"sentence_fields":    "tokens",
		"sentence_field_sep": " ",
		"token_format":       `<LU LEMMA="{lemma}" CAT="{nooj_attrs}"{nooj_dep}>{word}</LU>`,
		"attr_sep":           " ",
		"delimiter":          ",",
		"quote":              "\"",
		"replace_quote":      "\"",
	},
	Hooks: Hooks{
		Items: map[string]formatter.ItemFunc{
			"tokens": formatNoojTokens,
			"token":  formatNoojToken,
		},
	},
}

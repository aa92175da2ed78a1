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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"korpexport/kwic"
	"korpexport/options"
	"korpexport/tpl"

	"github.com/ncruces/go-strftime"
	"github.com/rs/zerolog/log"
)

var (
	sentenceTokenAttrFieldRx = regexp.MustCompile(`^(.*?)e?s_(?:all|match|(?:left|right)_context)`)
	pluralEsRx               = regexp.MustCompile(`([sz]|[cs]h)$`)

	defaultEngine = tpl.NewEngine("")
)

// ItemFunc renders a single item (a component of a query result or
// of the export meta information). The elem argument depends on the
// item type (e.g. *kwic.Sentence for "sentence", kwic.Token for
// "token", a key string for labelled list items).
type ItemFunc func(r *Renderer, elem any, args tpl.Fields) string

// PostprocessFunc transforms fully rendered content.
type PostprocessFunc func(r *Renderer, text string) string

// EncodeFunc produces binary output from the rendered content.
type EncodeFunc func(r *Renderer, text string) ([]byte, error)

// Config specifies how a query result is rendered.
type Config struct {

	// Options is the merged (but not yet expanded) option table
	Options options.Table

	// Defaults are used as fallback values for invalid integer options
	Defaults options.Table

	// Structured formats use open/close structure info in tokens
	Structured bool

	// Items override the default item renderers by name
	Items map[string]ItemFunc

	// AdjustOptions are applied in order after list-valued options
	// have been expanded
	AdjustOptions []func(t options.Table)

	Postprocess PostprocessFunc

	// Encode, if set, produces binary output instead of text
	Encode EncodeFunc

	URNResolver string

	// Now provides the current time (for the `date` info item);
	// time.Now is used if nil
	Now func() time.Time

	// Engine is the template engine used for rendering; a shared
	// engine with an empty placeholder is used if nil
	Engine *tpl.Engine
}

// Output is a rendered export. Exactly one of Text and Binary
// is used.
type Output struct {
	Text   string
	Binary []byte
}

func (o *Output) IsBinary() bool {
	return o.Binary != nil
}

// Renderer holds a per-export rendering state. It must not
// be shared between exports.
type Renderer struct {
	cfg                     Config
	engine                  *tpl.Engine
	opts                    *options.Options
	result                  *kwic.Result
	queryParams             map[string]string
	infoitems               tpl.Fields
	sentenceTokenAttrs      []string
	sentenceTokenAttrLabels map[string]string
	corpusInfo              map[string]tpl.Fields
	now                     time.Time
}

func (r *Renderer) Opts() *options.Options {
	return r.opts
}

func (r *Renderer) Result() *kwic.Result {
	return r.result
}

func (r *Renderer) QueryParams() map[string]string {
	return r.queryParams
}

// Infoitems returns query and result info fields usable
// in most of the templates.
func (r *Renderer) Infoitems() tpl.Fields {
	return r.infoitems
}

// Format fills a template with fields.
func (r *Renderer) Format(src string, fields tpl.Fields) string {
	return r.engine.Format(src, fields)
}

// Item renders an item using the option `<itemType>_format`
// as a template.
func (r *Renderer) Item(itemType string, args tpl.Fields) string {
	return r.engine.Format(r.opts.Str(itemType+"_format"), args)
}

// Call renders elem using the item renderer registered for name.
// Plugin overrides take precedence over the default renderers.
func (r *Renderer) Call(name string, elem any, args tpl.Fields) string {
	if fn, ok := r.cfg.Items[name]; ok {
		return fn(r, elem, args)
	}
	return r.Default(name, elem, args)
}

// Default renders elem using the default item renderer.
func (r *Renderer) Default(name string, elem any, args tpl.Fields) string {
	fn, ok := defaultItems[name]
	if !ok {
		log.Debug().Str("item", name).Msg("no renderer for item")
		return ""
	}
	return fn(r, elem, args)
}

// Bool is a shortcut for Opts().Bool()
func (r *Renderer) Bool(name string) bool {
	return r.opts.Bool(name)
}

// Int returns an integer option with zero for missing
// or invalid values.
func (r *Renderer) Int(name string) int {
	v, _ := r.opts.Int(name)
	return v
}

func (r *Renderer) optValue(name string) any {
	if !r.opts.Has(name) {
		return nil
	}
	return r.opts.Value(name)
}

func (r *Renderer) convertNewlines(text string) string {
	nl := r.opts.Str("newline")
	if nl == "" || nl == "\n" {
		return text
	}
	return strings.ReplaceAll(text, "\n", nl)
}

func (r *Renderer) formatDate() string {
	return strftime.Format(r.opts.Str("date_format"), r.now)
}

// ---------------------------

// List renders elems as a list of items of itemType. Each element
// gets args extended by `<itemType>_num` (a zero-based index). Items
// are joined with the option `<itemType>_sep`. Formatted items
// matching the regular expression in the option `<itemType>_skip`
// are left out.
func List[E any](r *Renderer, itemType string, elems []E, fn func(elem E, args tpl.Fields) string, args tpl.Fields) string {
	if fn == nil {
		fn = func(elem E, args tpl.Fields) string {
			return r.Call(itemType, elem, args)
		}
	}
	var skipRx *regexp.Regexp
	if skip := r.opts.Str(itemType + "_skip"); skip != "" {
		var err error
		skipRx, err = regexp.Compile("^(?:" + skip + ")$")
		if err != nil {
			log.Debug().Err(err).Str("item", itemType).Msg("ignoring invalid skip expression")
		}
	}
	sep := r.opts.Str(itemType + "_sep")
	numKey := itemType + "_num"
	var ans strings.Builder
	var written int
	for i, elem := range elems {
		itemArgs := args.With(tpl.Fields{numKey: tpl.Eager(i)})
		formatted := fn(elem, itemArgs)
		if skipRx != nil && skipRx.MatchString(formatted) {
			continue
		}
		if written > 0 {
			ans.WriteString(sep)
		}
		ans.WriteString(formatted)
		written++
	}
	return ans.String()
}

// LabelListItem renders a labelled list item of itemType with
// the fields `key`, `label` (from the option `<itemType>_labels`),
// `value` and `sp_or_nl` (a newline if the value contains one,
// otherwise the option `<itemType>_spacechar` or a space).
func (r *Renderer) LabelListItem(itemType, key string, value any, args tpl.Fields) string {
	space := " "
	if r.opts.Has(itemType + "_spacechar") {
		space = r.opts.Str(itemType + "_spacechar")
	}
	valueField := tpl.Eager(value)
	fields := args.With(tpl.Fields{
		"key": tpl.Eager(key),
		"label": tpl.LazyStr(func() string {
			return r.opts.Label(itemType+"_labels", key)
		}),
		"value": valueField,
		"sp_or_nl": tpl.LazyStr(func() string {
			if !valueField.IsLazy() && strings.Contains(tpl.Stringify(valueField.Value(), ""), "\n") {
				return "\n"
			}
			return space
		}),
	})
	return r.Item(itemType, fields)
}

// ---------------------------

func (r *Renderer) infoIsAvailable(t options.Table) func(string) bool {
	available := r.result.OccurringCorpusInfo()
	if available.Contains("urn") || available.Contains("url") {
		available.Add("link")
	}
	for _, linkType := range []string{"licence", "metadata"} {
		if available.Contains(linkType+"_urn") || available.Contains(linkType+"_url") {
			available.Add(linkType + "_link")
		}
	}
	if r.result.IsParallelCorpus() {
		available.Add("aligned")
	}
	for _, item := range []string{"korp_url", "korp_server_url"} {
		if _, ok := t[item]; ok {
			available.Add(item)
		}
	}
	return func(item string) bool {
		if available.Contains(item) {
			return true
		}
		m := sentenceTokenAttrFieldRx.FindStringSubmatch(item)
		if m == nil {
			return false
		}
		return len(r.result.OccurringAttrNames([]string{m[1]}, "tokens")) > 0
	}
}

// initSentenceTokenAttrs creates labels for the sentence fields
// listing values of a token attribute. The field names contain
// the attribute name pluralized.
func (r *Renderer) initSentenceTokenAttrs(t options.Table) {
	r.sentenceTokenAttrs = []string{}
	if v, ok := t["sentence_token_attrs"].([]string); ok {
		r.sentenceTokenAttrs = v
	}
	labels, ok := t["sentence_field_labels"].(map[string]string)
	if !ok {
		labels = make(map[string]string)
		t["sentence_field_labels"] = labels
	}
	labelOrKey := func(k string) string {
		if v, ok := labels[k]; ok {
			return v
		}
		return k
	}
	for _, attr := range r.sentenceTokenAttrs {
		base := attr
		if pluralEsRx.MatchString(attr) {
			base += "e"
		}
		base += "s"
		readable := labelOrKey(base)
		r.sentenceTokenAttrLabels[attr] = base
		labels[base+"_all"] = readable
		for _, tokensType := range []string{"match", "left_context", "right_context"} {
			labels[base+"_"+tokensType] = labelOrKey(tokensType) + " " + readable
		}
	}
}

func (r *Renderer) initInfoitems() {
	params := make(map[string]string, len(r.queryParams))
	for k, v := range r.queryParams {
		params[k] = v
	}
	r.infoitems = tpl.Fields{
		"params": tpl.LazyStr(func() string { return r.Call("params", nil, tpl.Fields{}) }),
		"param":  tpl.Eager(params),
		"date":   tpl.LazyStr(func() string { return r.Call("date", nil, tpl.Fields{}) }),
		"hitcount": tpl.LazyStr(func() string {
			return r.Call("hitcount", nil, tpl.Fields{})
		}),
		"sentence_field_headings": tpl.LazyStr(func() string {
			return r.Call("field_headings", "sentence", tpl.Fields{})
		}),
		"token_field_headings": tpl.LazyStr(func() string {
			return r.Call("field_headings", "token", tpl.Fields{})
		}),
		"title":           tpl.LazyStr(func() string { return r.Call("title", nil, tpl.Fields{}) }),
		"korp_url":        tpl.Eager(r.optValue("korp_url")),
		"korp_server_url": tpl.Eager(r.optValue("korp_server_url")),
	}
}

// corpusInfoFields returns corpus info items for the corpus
// of a sentence.
func (r *Renderer) corpusInfoFields(s *kwic.Sentence) tpl.Fields {
	if ans, ok := r.corpusInfo[s.Corpus]; ok {
		return ans
	}
	ans := tpl.Fields{
		"corpus_name":   tpl.Eager(s.Corpus),
		"urn":           tpl.Eager(s.CorpusInfoItem("urn", "")),
		"link":          tpl.Eager(s.CorpusLink("", r.cfg.URNResolver)),
		"licence_name":  tpl.Eager(s.CorpusInfoItem("licence", "name")),
		"licence_link":  tpl.Eager(s.CorpusLink("licence", r.cfg.URNResolver)),
		"metadata_link": tpl.Eager(s.CorpusLink("metadata", r.cfg.URNResolver)),
	}
	r.corpusInfo[s.Corpus] = ans
	return ans
}

func (r *Renderer) hitNum(sentenceNum int) int {
	start, err := strconv.Atoi(strings.TrimSpace(r.queryParams["start"]))
	if err != nil {
		start = 0
	}
	return start + sentenceNum
}

// ---------------------------

// Render renders the query result using the configuration.
func Render(result *kwic.Result, queryParams map[string]string, cfg Config) (*Output, error) {
	if result == nil {
		result = &kwic.Result{}
	}
	if queryParams == nil {
		queryParams = map[string]string{}
	}
	r := &Renderer{
		cfg:                     cfg,
		engine:                  cfg.Engine,
		result:                  result,
		queryParams:             queryParams,
		sentenceTokenAttrLabels: make(map[string]string),
		corpusInfo:              make(map[string]tpl.Fields),
		now:                     time.Now(),
	}
	if r.engine == nil {
		r.engine = defaultEngine
	}
	if cfg.Now != nil {
		r.now = cfg.Now()
	}
	tbl := cfg.Options.Clone()
	options.ExpandLists(tbl, r.infoIsAvailable(tbl))
	for _, adjust := range cfg.AdjustOptions {
		adjust(tbl)
	}
	r.initSentenceTokenAttrs(tbl)
	r.opts = options.New(tbl, cfg.Defaults)
	r.initInfoitems()

	text := r.Call("content", nil, tpl.Fields{})
	if cfg.Postprocess != nil {
		text = cfg.Postprocess(r, text)
	}
	if cfg.Encode != nil {
		data, err := cfg.Encode(r, text)
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		if data == nil {
			data = []byte{}
		}
		return &Output{Binary: data}, nil
	}
	return &Output{Text: r.convertNewlines(text)}, nil
}

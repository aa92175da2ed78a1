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
	"fmt"
	"strings"
	"time"

	"korpexport/backend"
	"korpexport/formats"
	"korpexport/formatter"
	"korpexport/kwic"
	"korpexport/merror"
	"korpexport/monitoring"
	"korpexport/options"
	"korpexport/worker"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrBackendFailure marks errors caused by an unavailable
// or misbehaving backend
var ErrBackendFailure = errors.New("backend failure")

// Recorder receives a record of each finished export
type Recorder interface {
	Log(rec monitoring.ExportRecord)
}

// Download is a finished export ready to be sent to a client.
type Download struct {
	ID           string
	Content      []byte
	MIMEType     string
	Charset      string
	Filename     string
	NumSentences int
}

// ContentType returns a value for the Content-Type header
func (d *Download) ContentType() string {
	if d.Charset == "" {
		return d.MIMEType
	}
	return d.MIMEType + "; charset=" + d.Charset
}

// ---------------------------

// Exporter turns export requests into downloadable files.
// A request is a flat string map (an HTTP form or CLI arguments)
// with the format specification, rendering options and either
// an inline query result or query parameters for the backend.
type Exporter struct {
	conf        *Conf
	registry    *formats.Registry
	backend     backend.Backend
	pool        *worker.RenderPool
	recorder    Recorder
	frontendURL string
	urnResolver string
	now         func() time.Time
}

func (e *Exporter) Registry() *formats.Registry {
	return e.registry
}

func splitSubformats(spec string) []string {
	ans := make([]string, 0, 3)
	for _, v := range strings.Split(spec, ",") {
		v = strings.TrimSpace(strings.ToLower(v))
		if v != "" {
			ans = append(ans, v)
		}
	}
	return ans
}

// processQuery obtains the query result either from the request
// (`query_result`) or from the backend. A result the backend
// reports as failed is logged and replaced by an empty result.
func (e *Exporter) processQuery(
	ctx context.Context,
	form map[string]string,
	structured bool,
) (map[string]string, *kwic.Result, error) {
	var queryParams map[string]string
	var result *kwic.Result
	if src, ok := form["query_result"]; ok {
		queryParams = make(map[string]string)
		if _, ok := form["query_params"]; ok {
			var err error
			queryParams, err = NormalizeQueryParams(form, structured)
			if err != nil {
				return nil, nil, err
			}
		}
		if e.conf.ValidateQueryResult {
			if err := ValidateQueryResult([]byte(src)); err != nil {
				return nil, nil, err
			}
		}
		var err error
		result, err = kwic.DecodeResult([]byte(src))
		if err != nil {
			return nil, nil, merror.InputError{Msg: err.Error()}
		}

	} else {
		if e.backend == nil {
			return nil, nil, merror.InputError{Msg: "no query_result provided and no backend configured"}
		}
		var err error
		queryParams, err = NormalizeQueryParams(form, structured)
		if err != nil {
			return nil, nil, err
		}
		data, err := e.backend.QueryRaw(ctx, queryParams)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrBackendFailure, err)
		}
		result, err = kwic.DecodeResult(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrBackendFailure, err)
		}
		if _, ok := queryParams["sort"]; !ok {
			queryParams["sort"] = "none"
		}
	}
	if result.Error != nil {
		log.Warn().
			Str("type", result.Error.Type).
			Str("value", result.Error.Value).
			Msg("backend reported query error, exporting empty result")
		result = &kwic.Result{Sentences: []*kwic.Sentence{}}
	}
	return queryParams, result, nil
}

// extractOptions collects per-request option overrides. Any form
// argument named like a default option of the format overrides
// the option. The `attrs` and `structs` arguments are resolved
// against the `show` and `show_struct` query parameters.
func (e *Exporter) extractOptions(
	form map[string]string,
	f *formats.Format,
	queryParams map[string]string,
	result *kwic.Result,
) (options.Table, error) {
	ans := make(options.Table)
	for name, dflt := range f.Defaults() {
		v, ok := form[name]
		if !ok || name == options.ListValuedOpts {
			continue
		}
		if _, isMap := dflt.(map[string]string); isMap {
			var labels map[string]string
			if err := sonic.UnmarshalString(v, &labels); err != nil {
				return nil, merror.InputError{Msg: fmt.Sprintf("invalid value of option %s: %s", name, err)}
			}
			ans[name] = labels
			continue
		}
		ans[name] = v
	}
	if v, ok := form["attrs"]; ok {
		ans["attrs"] = options.ExtractShow(
			v,
			queryParams["show"],
			func(names []string) []string {
				return result.OccurringAttrNames(names, "tokens")
			},
		)
	}
	if v, ok := form["structs"]; ok {
		ans["structs"] = options.ExtractShow(
			v,
			queryParams["show_struct"],
			func(names []string) []string {
				return result.OccurringAttrNames(names, "structs")
			},
		)
	}
	if v := form["korp_url"]; v != "" {
		ans["korp_url"] = v

	} else if e.frontendURL != "" {
		ans["korp_url"] = e.frontendURL
	}
	var serverURL string
	if e.backend != nil {
		serverURL = e.backend.ServerURL()
	}
	if serverURL == "" {
		serverURL = form["korp_server_url"]
	}
	ans["korp_server_url"] = serverURL
	return ans, nil
}

// Export creates a downloadable file for the request. Each export
// (including failed ones) is recorded.
func (e *Exporter) Export(ctx context.Context, form map[string]string) (*Download, error) {
	begin := e.now()
	rec := monitoring.ExportRecord{
		ID:    uuid.New().String(),
		Begin: begin,
	}
	ans, result, err := e.export(ctx, form, &rec)
	rec.End = e.now()
	rec.Err = err
	if result != nil {
		rec.Corpora = result.CorpusNames()
		rec.NumSentences = result.NumSentences()
	}
	if ans != nil {
		rec.NumBytes = len(ans.Content)
	}
	if e.recorder != nil {
		e.recorder.Log(rec)
	}
	return ans, err
}

func (e *Exporter) export(
	ctx context.Context,
	form map[string]string,
	rec *monitoring.ExportRecord,
) (*Download, *kwic.Result, error) {
	spec := form["format"]
	if spec == "" {
		spec = e.conf.DefaultFormat
	}
	rec.Format = strings.ToLower(spec)
	f, err := e.registry.LookupSpec(spec)
	if err != nil {
		return nil, nil, err
	}
	rec.Format = strings.Join(f.Names(), ",")
	queryParams, result, err := e.processQuery(ctx, form, f.Structured())
	if err != nil {
		return nil, nil, err
	}
	if err := AttachCorpusInfo(ctx, e.backend, form, result); err != nil {
		return nil, result, err
	}
	overrides, err := e.extractOptions(form, f, queryParams, result)
	if err != nil {
		return nil, result, err
	}
	opts, err := f.Options(
		splitSubformats(form["subformat"]),
		options.Merge(e.conf.OptionOverrides(), overrides),
	)
	if err != nil {
		return nil, result, merror.InputError{Msg: err.Error()}
	}
	cfg := f.Config(opts)
	cfg.URNResolver = e.urnResolver
	cfg.Now = e.now

	renderCtx, cancel := context.WithTimeout(
		ctx, time.Duration(e.conf.RenderTimeoutSecs)*time.Second)
	defer cancel()
	out, err := worker.Run(renderCtx, e.pool, func() (*formatter.Output, error) {
		return formatter.Render(result, queryParams, cfg)
	})
	if err != nil {
		return nil, result, err
	}

	ans := &Download{
		ID:           rec.ID,
		MIMEType:     f.MIMEType(),
		NumSentences: result.NumSentences(),
	}
	if out.IsBinary() {
		ans.Content = out.Binary

	} else {
		ans.Charset = f.Charset()
		if v := form["charset"]; v != "" {
			ans.Charset = strings.ToLower(v)
		}
		ans.Content, err = EncodeContent(out.Text, ans.Charset)
		if err != nil {
			return nil, result, err
		}
	}
	filenameFormat := e.conf.FilenameFormat
	if filenameFormat == "" {
		filenameFormat = form["filename_format"]
	}
	ans.Filename = MakeFilename(form, queryParams, filenameFormat, f.Extension(), rec.Begin)
	log.Debug().
		Str("exportId", ans.ID).
		Str("format", rec.Format).
		Int("numSentences", ans.NumSentences).
		Int("size", len(ans.Content)).
		Msg("export created")
	return ans, result, nil
}

func NewExporter(
	conf *Conf,
	registry *formats.Registry,
	b backend.Backend,
	pool *worker.RenderPool,
	recorder Recorder,
	frontendURL string,
	urnResolver string,
) *Exporter {
	return &Exporter{
		conf:        conf,
		registry:    registry,
		backend:     b,
		pool:        pool,
		recorder:    recorder,
		frontendURL: frontendURL,
		urnResolver: urnResolver,
		now:         time.Now,
	}
}

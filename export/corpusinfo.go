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
	"fmt"
	"strings"

	"korpexport/backend"
	"korpexport/kwic"
	"korpexport/merror"

	"github.com/bytedance/sonic"
	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/rs/zerolog/log"
)

type corpusConfig map[string]map[string]any

// corpusInfoFromForm reads corpus info passed by the client either
// directly (`corpus_info`) or as a part of the frontend corpus
// configuration (`corpus_config`). In the latter case, the config
// items `urn`, `url`, `*_urn`, `*_url` and the items listed in
// `corpus_config_info_keys` are used.
func corpusInfoFromForm(form map[string]string) (backend.CorporaInfo, corpusConfig, error) {
	info := make(backend.CorporaInfo)
	if src, ok := form["corpus_info"]; ok {
		if err := sonic.UnmarshalString(src, &info); err != nil {
			return nil, nil, merror.InputError{Msg: fmt.Sprintf("invalid corpus_info: %s", err)}
		}
		return info, nil, nil
	}
	src, ok := form["corpus_config"]
	if !ok {
		return info, nil, nil
	}
	var conf corpusConfig
	if err := sonic.UnmarshalString(src, &conf); err != nil {
		return nil, nil, merror.InputError{Msg: fmt.Sprintf("invalid corpus_config: %s", err)}
	}
	var infoKeys []string
	if v, ok := form["corpus_config_info_keys"]; ok {
		infoKeys = strings.Split(v, ",")
	}
	for corpus, cc := range conf {
		corpus = strings.ToLower(corpus)
		if ci, ok := cc["info"].(map[string]any); ok {
			info[corpus] = ci

		} else {
			info[corpus] = make(map[string]any)
		}
		for key, value := range cc {
			key = strings.ToLower(key)
			switch {
			case key == "urn" || key == "url" ||
				strings.HasSuffix(key, "_urn") || strings.HasSuffix(key, "_url"):
				info.AddItem(corpus, key, value)
			case collections.SliceContains(infoKeys, key):
				if sub, ok := value.(map[string]any); ok {
					for sk, sv := range sub {
						info.AddItem(corpus, key+"_"+sk, sv)
					}
				}
			}
		}
	}
	return info, conf, nil
}

// AttachCorpusInfo adds corpus info (and the corpus configuration
// if available) to each sentence of the result. Info obtained from
// the request takes precedence over the one provided by the backend.
// Backend failures are not fatal here, the export just lacks
// the info.
func AttachCorpusInfo(
	ctx context.Context,
	b backend.Backend,
	form map[string]string,
	result *kwic.Result,
) error {
	info, conf, err := corpusInfoFromForm(form)
	if err != nil {
		return err
	}
	if b != nil {
		fetched, err := backend.FetchCorporaInfo(ctx, b, result.CorpusNames())
		if err != nil {
			log.Warn().Err(err).Msg("failed to obtain corpora info from backend")

		} else {
			info.Merge(fetched)
		}
	}
	confData := make(map[string][]byte)
	for corpus, cc := range conf {
		enc, err := sonic.Marshal(cc)
		if err != nil {
			return merror.InputError{Msg: fmt.Sprintf("invalid corpus_config of %s: %s", corpus, err)}
		}
		confData[strings.ToLower(corpus)] = enc
	}
	for _, s := range result.Sentences {
		corpus, _, _ := strings.Cut(s.Corpus, "|")
		corpus = strings.ToLower(corpus)
		if ci, ok := info[corpus]; ok {
			s.CorpusInfo = ci
		}
		if enc, ok := confData[corpus]; ok {
			s.Extra = append(s.Extra, kwic.RawAttr{Name: "corpus_config", Value: enc})
		}
	}
	return nil
}

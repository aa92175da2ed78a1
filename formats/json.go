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
	"encoding/json"
	"strings"

	"korpexport/formatter"
	"korpexport/kwic"
	"korpexport/options"
	"korpexport/tpl"

	"github.com/rs/zerolog/log"
)

// encodeSentencesJSON writes the sentences of the result as they came
// from the backend. With sortKeys, object keys are sorted, otherwise
// their original order is kept. Non-positive indent means compact output.
func encodeSentencesJSON(sentences []*kwic.Sentence, sortKeys bool, indent int) ([]byte, error) {
	if sentences == nil {
		sentences = []*kwic.Sentence{}
	}
	data, err := kwic.MarshalSentences(sentences)
	if err != nil {
		return nil, err
	}
	var indentStr string
	if indent > 0 {
		indentStr = strings.Repeat(" ", indent)
	}
	if !sortKeys {
		if indentStr == "" {
			return data, nil
		}
		var buff bytes.Buffer
		if err := json.Indent(&buff, data, "", indentStr); err != nil {
			return nil, err
		}
		return buff.Bytes(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	var buff bytes.Buffer
	enc := json.NewEncoder(&buff)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indentStr)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buff.Bytes(), "\n"), nil
}

func formatJSONContent(r *formatter.Renderer, _ any, _ tpl.Fields) string {
	indent, _ := r.Opts().Int("indent")
	data, err := encodeSentencesJSON(r.Result().Sentences, r.Bool("sort_keys"), indent)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode sentences as JSON")
		return ""
	}
	return string(data) + "\n"
}

var jsonPlugin = &Plugin{
	Names:     []string{"json"},
	MIMEType:  "application/json",
	Extension: ".json",
	Defaults: options.Table{
		"sort_keys": "True",
		"indent":    "4",
	},
	Hooks: Hooks{
		Items: map[string]formatter.ItemFunc{
			"content": formatJSONContent,
		},
	},
}

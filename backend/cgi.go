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

package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

var cgiHeadersRx = regexp.MustCompile(`(?s)^.*?\r?\n\r?\n`)

// stripCGIHeaders removes the HTTP headers a CGI program writes
// before the response body
func stripCGIHeaders(out []byte) []byte {
	loc := cgiHeadersRx.FindIndex(out)
	if loc == nil {
		return out
	}
	return out[loc[1]:]
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

// adjustPath makes a path which relates to refDst the same way
// name relates to refSrc. It is used to derive SCRIPT_NAME of the
// Korp program from the SCRIPT_FILENAME and SCRIPT_NAME of the
// current process (if run as CGI itself).
func adjustPath(name, refSrc, refDst string) string {
	prefix := commonPrefix(name, refSrc)
	refSuffixLen := len(refSrc) - len(prefix)
	var head string
	if refSuffixLen <= len(refDst) {
		head = refDst[:len(refDst)-refSuffixLen]
	}
	return head + name[len(prefix):]
}

// runCGI runs the Korp program as a CGI script with the form
// as a POST body
func runCGI(ctx context.Context, prog, body string) ([]byte, error) {
	scriptName := adjustPath(prog, os.Getenv("SCRIPT_FILENAME"), os.Getenv("SCRIPT_NAME"))
	cmd := exec.CommandContext(ctx, prog)
	cmd.Env = append(
		os.Environ(),
		"SCRIPT_FILENAME="+prog,
		"SCRIPT_NAME="+scriptName,
		"REQUEST_URI="+scriptName,
		"REQUEST_METHOD=POST",
		"QUERY_STRING=",
		"CONTENT_TYPE=application/x-www-form-urlencoded",
		"CONTENT_LENGTH="+strconv.Itoa(len(body)),
	)
	cmd.Stdin = strings.NewReader(body)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf(
			"failed to run Korp program %s: %w (%s)", prog, err, strings.TrimSpace(stderr.String()))
	}
	return stripCGIHeaders(out), nil
}

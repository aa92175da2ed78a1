// Copyright 2023 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2023 Martin Zimandl <martin.zimandl@gmail.com>
// Copyright 2023 Institute of the Czech National Corpus,
//                Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"korpexport/backend"
	"korpexport/cnf"
	"korpexport/export"
	"korpexport/formats"
	"korpexport/general"
	"korpexport/rdb"
	"korpexport/worker"
)

const (
	redisConnectionTestTimeout = 120 * time.Second
)

var (
	version   string
	buildDate string
	gitCommit string
)

type service interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

func getRequestOrigin(ctx *gin.Context) string {
	currOrigin, ok := ctx.Request.Header["Origin"]
	if ok {
		return currOrigin[0]
	}
	return ""
}

func additionalLogEvents() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		logging.AddLogEvent(ctx, "userAgent", ctx.Request.UserAgent())
		ctx.Next()
	}
}

func CORSMiddleware(conf *cnf.Conf) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if strings.HasSuffix(ctx.Request.URL.Path, "/openapi") {
			ctx.Header("Access-Control-Allow-Origin", "*")
			ctx.Header("Access-Control-Allow-Methods", "GET")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type")

		} else {
			var allowedOrigin string
			currOrigin := getRequestOrigin(ctx)
			for _, origin := range conf.CorsAllowedOrigins {
				if currOrigin == origin {
					allowedOrigin = origin
					break
				}
			}
			if allowedOrigin != "" {
				ctx.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				ctx.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
				ctx.Writer.Header().Set(
					"Access-Control-Allow-Headers",
					"Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With",
				)
				ctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
				ctx.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Export-Id")
			}

			if ctx.Request.Method == "OPTIONS" {
				ctx.AbortWithStatus(204)
				return
			}
		}
		ctx.Next()
	}
}

func AuthRequired(conf *cnf.Conf) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if len(conf.AuthHeaderName) > 0 && !collections.SliceContains(conf.AuthTokens, ctx.GetHeader(conf.AuthHeaderName)) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx.Next()
	}
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

// newBackend creates the configured backend, wrapped by the result
// cache if Redis is configured. Nil is returned if no backend
// is configured.
func newBackend(ctx context.Context, conf *cnf.Conf) (backend.Backend, error) {
	if conf.Korp == nil {
		return nil, nil
	}
	ans := backend.NewBackend(conf.Korp)
	if conf.Redis != nil {
		radapter := rdb.NewAdapter(conf.Redis, ctx)
		if err := radapter.TestConnection(redisConnectionTestTimeout); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		ans = rdb.NewResultCache(radapter, ans, conf.Redis.TTLDuration())
		log.Info().
			Str("host", conf.Redis.Host).
			Dur("ttl", conf.Redis.TTLDuration()).
			Msg("enabled query result cache")
	}
	return ans, nil
}

// ---------------------------

type paramsFlag map[string]string

func (pf paramsFlag) String() string {
	return backend.EncodeParams(pf)
}

func (pf paramsFlag) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("invalid parameter %s, expected key=value", v)
	}
	pf[key] = value
	return nil
}

func runExport(conf *cnf.Conf, args []string) {
	params := make(paramsFlag)
	cmd := flag.NewFlagSet("export", flag.ExitOnError)
	format := cmd.String("format", "", "export format(s), e.g. csv or sentences,tsv")
	subformat := cmd.String("subformat", "", "comma-separated subformats")
	input := cmd.String("input", "", "file with a query result in JSON (- for stdin); if omitted, the backend is queried")
	output := cmd.String("output", "", "output file (default: the generated file name)")
	cmd.Var(params, "param", "export or query parameter as key=value (repeatable)")
	cmd.Parse(args)

	form := map[string]string(params)
	if *format != "" {
		form["format"] = *format
	}
	if *subformat != "" {
		form["subformat"] = *subformat
	}
	if *input != "" {
		var data []byte
		var err error
		if *input == "-" {
			data, err = io.ReadAll(os.Stdin)

		} else {
			data, err = os.ReadFile(*input)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read query result")
		}
		form["query_result"] = string(data)
	}

	ctx := context.Background()
	b, err := newBackend(ctx, conf)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend")
	}
	registry, err := formats.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize formats")
	}
	pool, err := worker.NewRenderPool(1)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize render pool")
	}
	defer pool.Stop(ctx)
	var frontendURL, urnResolver string
	if conf.Korp != nil {
		frontendURL = conf.Korp.FrontendURL
		urnResolver = conf.Korp.URNResolver
	}
	exporter := export.NewExporter(conf.Export, registry, b, pool, nil, frontendURL, urnResolver)
	dl, err := exporter.Export(ctx, form)
	if err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
	dest := *output
	if dest == "" {
		dest = filepath.Base(dl.Filename)
	}
	if dest == "-" {
		os.Stdout.Write(dl.Content)
		return
	}
	if err := os.WriteFile(dest, dl.Content, 0644); err != nil {
		log.Fatal().Err(err).Msg("failed to write export")
	}
	log.Info().
		Str("file", dest).
		Str("contentType", dl.ContentType()).
		Int("numSentences", dl.NumSentences).
		Msg("export written")
}

func printFormats() {
	registry, err := formats.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize formats")
	}
	for _, info := range registry.Infos() {
		charset := info.Charset
		if charset == "" {
			charset = "binary"
		}
		fmt.Printf("%s\n\tnames: %s\n\ttype: %s (%s), extension: %s\n",
			info.Names[0], strings.Join(info.Names, ", "), info.MIMEType, charset, info.Extension)
		if len(info.Subformats) > 0 {
			fmt.Printf("\tsubformats: %s\n", strings.Join(info.Subformats, ", "))
		}
	}
}

func main() {
	version := general.VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "KORPEXPORT - Korp query result export server\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n\t%s [options] server [config.json]\n\t", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "%s [options] export config.json [export options]\n\t", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "%s [options] test config.json\n\t", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "%s [options] formats\n\t", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "%s [options] version\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	action := flag.Arg(0)
	switch action {
	case "version":
		fmt.Printf("korpexport %s\nbuild date: %s\nlast commit: %s\n", version.Version, version.BuildDate, version.GitCommit)
		return
	case "formats":
		printFormats()
		return
	}
	conf := cnf.LoadConfig(flag.Arg(1))

	if action == "test" {
		cnf.ValidateAndDefaults(conf)
		log.Info().Msg("config OK")
		return

	} else if action == "export" {
		logging.SetupLogging("", conf.LogLevel)

	} else {
		logging.SetupLogging(conf.LogFile, conf.LogLevel)
	}

	cnf.ValidateAndDefaults(conf)

	switch action {
	case "server":
		log.Info().Msg("Starting KorpExport")
		runApiServer(conf, version)
	case "export":
		runExport(conf, flag.Args()[2:])
	default:
		log.Fatal().Msgf("Unknown action %s", action)
	}
}

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
	"embed"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"korpexport/cnf"
	"korpexport/docs"
	"korpexport/export"
	exportActions "korpexport/export/handlers"
	"korpexport/formats"
	"korpexport/general"
	"korpexport/monitoring"
	monitoringActions "korpexport/monitoring/handlers"
	"korpexport/worker"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type apiServer struct {
	server   *http.Server
	conf     *cnf.Conf
	version  general.VersionInfo
	exporter *export.Exporter
	logger   *monitoring.ExportLogger
}

//go:embed docs/swagger.json
var swaggerJSON embed.FS

func mkServerInfo(conf *cnf.Conf, version general.VersionInfo) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		uniresp.WriteJSONResponse(
			ctx.Writer,
			map[string]any{
				"name":      "KorpExport",
				"version":   version,
				"publicUrl": conf.PublicURL,
			},
		)
	}
}

func (api *apiServer) Start(ctx context.Context) {
	if !api.conf.IsDebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(additionalLogEvents())
	engine.Use(logging.GinMiddleware())
	engine.Use(uniresp.AlwaysJSONContentType())
	engine.Use(CORSMiddleware(api.conf))
	engine.NoMethod(uniresp.NoMethodHandler)
	engine.NoRoute(uniresp.NotFoundHandler)

	protected := engine.Group("/monitoring").Use(AuthRequired(api.conf))

	engine.GET("/", mkServerInfo(api.conf, api.version))

	docs.SwaggerInfo.Version = api.version.Version
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// also serve the JSON variant of the docs on the legacy URL:
	engine.GET(
		"/openapi",
		func(ctx *gin.Context) {
			jsonFile, err := swaggerJSON.ReadFile("docs/swagger.json")
			if err != nil {
				err = fmt.Errorf("Failed to read Swagger file: %w", err)
				uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
				return
			}
			uniresp.WriteRawJSONResponse(ctx.Writer, jsonFile)
		},
	)

	exActions := exportActions.NewActions(api.exporter)
	rateLimit := export.RateLimitMiddleware(
		api.conf.Export.RequestsPerMinute, api.conf.Export.RequestBurst)

	engine.GET(
		"/export", rateLimit, exActions.Export)

	engine.POST(
		"/export", rateLimit, exActions.Export)

	engine.GET(
		"/formats", exActions.Formats)

	monActions := monitoringActions.NewActions(api.logger)

	protected.GET(
		"/exports", monActions.ExportsLoad)

	protected.GET(
		"/exports/recent", monActions.RecentRecords)

	engine.GET(
		"/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Msgf("starting to listen at %s:%d", api.conf.ListenAddress, api.conf.ListenPort)
	api.server = &http.Server{
		Handler:      engine,
		Addr:         fmt.Sprintf("%s:%d", api.conf.ListenAddress, api.conf.ListenPort),
		WriteTimeout: time.Duration(api.conf.ServerWriteTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(api.conf.ServerReadTimeoutSecs) * time.Second,
	}
	go func() {
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

}

func (s *apiServer) Stop(ctx context.Context) error {
	log.Warn().Msg("shutting down KorpExport HTTP API server")
	return s.server.Shutdown(ctx)
}

func runApiServer(
	conf *cnf.Conf,
	version general.VersionInfo,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(ctx, conf)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend")
		return
	}
	registry, err := formats.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize formats")
		return
	}
	pool, err := worker.NewRenderPool(conf.Export.MaxConcurrentRenders)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize render pool")
		return
	}

	services := []service{pool}
	statusWriters := monitoring.MultiWriter{&monitoring.PrometheusWriter{}}
	if conf.TimescaleDB != nil {
		tsWriter, err := monitoring.NewTimescaleDBWriter(ctx, conf.TimescaleDB.DB, conf.TimezoneLocation())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize TimescaleDB writer")
			return
		}
		statusWriters = append(statusWriters, tsWriter)
		services = append(services, tsWriter)
	}
	logger := monitoring.NewExportLogger(statusWriters, conf.TimezoneLocation())
	services = append(services, logger)

	var frontendURL, urnResolver string
	if conf.Korp != nil {
		frontendURL = conf.Korp.FrontendURL
		urnResolver = conf.Korp.URNResolver
	}
	exporter := export.NewExporter(
		conf.Export, registry, b, pool, logger, frontendURL, urnResolver)
	server := newAPIServer(conf, version, exporter, logger)
	services = append(services, server)

	for _, m := range services {
		m.Start(ctx)
	}
	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range services {
		wg.Add(1)
		go func(srv service) {
			defer wg.Done()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Type("service", srv).Msg("Error shutting down service")
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timed out")
	}
}

func newAPIServer(
	conf *cnf.Conf,
	version general.VersionInfo,
	exporter *export.Exporter,
	logger *monitoring.ExportLogger,
) *apiServer {
	return &apiServer{
		conf:     conf,
		version:  version,
		exporter: exporter,
		logger:   logger,
	}
}

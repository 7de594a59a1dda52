package main

import (
	"flag"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yuxishi/aws-quota-compare/internal/aws"
	"github.com/yuxishi/aws-quota-compare/internal/config"
	"github.com/yuxishi/aws-quota-compare/internal/handler"
	"github.com/yuxishi/aws-quota-compare/internal/orchestrator"
	"github.com/yuxishi/aws-quota-compare/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("loading config")
	}

	st, err := store.OpenBolt(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("opening snapshot store")
	}
	defer st.Close()

	fetcher := aws.NewQuotaFetcher(cfg.Fetch.MaxAttempts, cfg.GetBaseDelay(), log.With().Str("component", "fetcher").Logger())
	tracker := aws.NewRequestTracker(cfg.Fetch.MaxAttempts, cfg.GetBaseDelay(), log.With().Str("component", "tracker").Logger())
	orch := orchestrator.New(fetcher, st, log.With().Str("component", "orchestrator").Logger())
	h := handler.New(orch, fetcher, tracker, st, cfg.Compare.Epsilon, log.With().Str("component", "api").Logger())

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/regions", h.GetRegions)
		api.POST("/compare", h.Compare)
		api.GET("/cache", h.ListCache)
		api.DELETE("/cache", h.ClearCache)
		api.DELETE("/cache/:account/:region", h.DeleteCacheEntry)
		api.POST("/requests", h.SubmitRequests)
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.RequestStatus)
		api.GET("/usage", h.GetUsage)
		api.GET("/export/json", h.ExportJSON)
		api.GET("/export/csv", h.ExportCSV)
	}

	port := cfg.GetPort()
	log.Info().Str("port", port).Msg("starting server")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

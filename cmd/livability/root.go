package main

import (
	"context"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/livability/internal/config"
	"github.com/i474232898/livability/internal/dataset"
	"github.com/i474232898/livability/internal/geocode"
	"github.com/i474232898/livability/internal/livability"
	"github.com/i474232898/livability/internal/livability/joiners"
	"github.com/i474232898/livability/internal/oracle"
	"github.com/i474232898/livability/internal/scheduler"
	"github.com/i474232898/livability/internal/store"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.AppConfig

var rootCmd = &cobra.Command{
	Use:           "livability",
	Short:         "Estimate livability scores for California addresses",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		return config.InitLogger(cfg.LogLevel, cfg.LogFormat)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(matchCmd)
}

// pipeline bundles everything a command needs to evaluate addresses.
type pipeline struct {
	refs    *store.ReferenceStore
	reload  *scheduler.Scheduler
	service *livability.Service
	closers []io.Closer
}

func (p *pipeline) Close() {
	p.reload.Stop()
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// newPipeline wires the reference store, geocoders, joiners and oracle from
// cfg and performs the initial reference load.
func newPipeline(ctx context.Context, cfg *config.AppConfig) (*pipeline, error) {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	src, err := dataset.NewSource(ctx, cfg.DataSource, cfg.S3())
	if err != nil {
		return nil, err
	}
	files := cfg.DatasetFiles()

	refs := store.NewReferenceStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	reload := scheduler.New(func(ctx context.Context) (*livability.Reference, error) {
		return dataset.Load(ctx, src, files)
	}, refs, cfg.ReloadInterval, 0)
	if err := reload.Reload(ctx); err != nil {
		return nil, err
	}

	// Geocoders are tried in order; Google is only used when a key is set.
	providers := []geocode.Provider{
		geocode.NewNominatim(geocode.NominatimConfig{
			BaseURL:       cfg.NominatimURL,
			UserAgent:     cfg.NominatimUserAgent,
			RatePerSecond: cfg.NominatimRate,
			Client:        httpClient,
		}),
	}
	if cfg.GoogleGeocodingKey != "" {
		providers = append(providers, geocode.NewGoogle(cfg.GoogleGeocodingKey))
	}
	geocoder := geocode.NewCascade(providers...)

	oracleCfg := cfg.Oracle()
	oracleCfg.HTTPClient = httpClient
	scorer, err := oracle.New(ctx, oracleCfg)
	if err != nil {
		return nil, err
	}
	var closers []io.Closer
	if c, ok := scorer.(io.Closer); ok {
		closers = append(closers, c)
	}

	prompt, err := oracle.LoadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		return nil, err
	}

	js := []livability.Joiner{
		joiners.NewSafety(),
		joiners.NewWalk(cfg.WalkScoreURL, cfg.WalkScoreAPIKey, httpClient),
		joiners.NewEnvironment(),
		joiners.NewEducation(),
		joiners.NewHealth(cfg.HospitalRadiusMiles),
	}

	service := livability.NewService(refs, geocoder, scorer, js,
		livability.WithMaxMatchMiles(cfg.MatchMaxMiles),
		livability.WithTimeouts(cfg.GeocoderTimeout, cfg.JoinerTimeout, cfg.OracleTimeout),
		livability.WithSystemPrompt(prompt),
	)

	zap.L().Info("pipeline ready",
		zap.String("data_source", src.String()),
		zap.Strings("geocoders", geocoder.Providers()),
		zap.String("oracle", scorer.Name()),
	)

	return &pipeline{
		refs:    refs,
		reload:  reload,
		service: service,
		closers: closers,
	}, nil
}

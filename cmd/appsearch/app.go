package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/config"
	dbRedis "github.com/kailas-cloud/appsearch/internal/db/redis"
	"github.com/kailas-cloud/appsearch/internal/domain/typemap"
	"github.com/kailas-cloud/appsearch/internal/metrics"
	recordrepo "github.com/kailas-cloud/appsearch/internal/repository/record"
	"github.com/kailas-cloud/appsearch/internal/repository/suggestcache"
	"github.com/kailas-cloud/appsearch/internal/transport/appsearch"
	bleveTransport "github.com/kailas-cloud/appsearch/internal/transport/bleve"
	esTransport "github.com/kailas-cloud/appsearch/internal/transport/elasticsearch"
	clickthroughuc "github.com/kailas-cloud/appsearch/internal/usecase/clickthrough"
	healthuc "github.com/kailas-cloud/appsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/appsearch/internal/usecase/search"
	spellcheckuc "github.com/kailas-cloud/appsearch/internal/usecase/spellcheck"
)

// upstream is everything the services need from App Search.
type upstream interface {
	searchuc.Transport
	spellcheckuc.QuerySuggester
	clickthroughuc.ClickLogger
}

// app is the composition root shared by serve and the one-shot commands.
type app struct {
	records    *recordrepo.Store
	types      *typemap.Map
	search     *searchuc.Service
	spellcheck *spellcheckuc.Service
	clicks     *clickthroughuc.Service
	health     *healthuc.Service
	closers    []func()
}

// Close releases every opened resource in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterSearchMetrics()

	a := &app{types: typemap.New(cfg.Types)}

	records, err := recordrepo.Open(ctx, cfg.Records.DSN, cfg.Records.Classes)
	if err != nil {
		return nil, err
	}
	a.records = records
	a.closers = append(a.closers, func() { _ = records.Close() })
	logger.Info("Opened record store", zap.String("driver", cfg.Records.Driver))

	// Pass nil interfaces (not typed nil pointers) for absent health components.
	var cachePinger, suggesterPinger healthuc.Pinger

	var cache *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create suggestion cache: %w", err)
		}
		a.closers = append(a.closers, cache.Close)
		if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			a.Close()
			return nil, fmt.Errorf("suggestion cache not ready: %w", err)
		}
		cachePinger = cache
		logger.Info("Connected to suggestion cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	terms, pinger, err := a.buildTermSuggester(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if pinger != nil {
		suggesterPinger = pinger
	}
	if terms != nil && cache != nil {
		terms = suggestcache.New(terms, cache,
			time.Duration(cfg.Spellcheck.CacheTTLSec)*time.Second, metrics.SuggestionCacheTotal, logger)
	}

	up, err := buildUpstream(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	mapper := searchuc.NewMapper(records, a.types, searchuc.MapperConfig{
		PageLimit:           cfg.Search.PageLimit,
		AbsoluteResultLimit: cfg.Search.AbsoluteResultLimit,
		ClickthroughEnabled: *cfg.Search.ClickthroughEnabled,
		ClickthroughBaseURL: cfg.Search.ClickthroughBaseURL,
	}, logger)

	a.search = searchuc.New(up, mapper, searchuc.Config{
		PaginationSize: cfg.Search.PaginationSize,
		EngineVariant:  cfg.AppSearch.EngineVariant,
	}, logger)
	a.spellcheck = spellcheckuc.New(terms, up, spellcheckConfig(cfg), logger)
	a.clicks = clickthroughuc.New(records, a.types, up, logger)
	a.health = healthuc.New(records, cachePinger, suggesterPinger)
	return a, nil
}

// buildTermSuggester returns the secondary engine for the configured backend.
// The app_search backend has none: suggestions come from query_suggestion.
func (a *app) buildTermSuggester(
	cfg config.Config, logger *zap.Logger,
) (spellcheckuc.TermSuggester, healthuc.Pinger, error) {
	switch cfg.Spellcheck.Backend {
	case config.BackendElasticsearch:
		es := cfg.Elasticsearch
		if es.Endpoint == "" && es.CloudID == "" {
			logger.Warn("Elasticsearch is not configured, term suggestions disabled")
			return nil, nil, nil
		}
		client, err := esTransport.New(esTransport.Config{
			Endpoint: es.Endpoint,
			CloudID:  es.CloudID,
			APIKeyID: es.APIKeyID,
			APIKey:   es.APIKey,
			Timeout:  time.Duration(es.TimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create elasticsearch client: %w", err)
		}
		return client, client, nil
	case config.BackendBleve:
		s := bleveTransport.New(cfg.Spellcheck.BleveDir)
		a.closers = append(a.closers, func() { _ = s.Close() })
		logger.Info("Using embedded spellcheck indexes", zap.String("dir", cfg.Spellcheck.BleveDir))
		return s, nil, nil
	default:
		return nil, nil, nil
	}
}

func buildUpstream(cfg config.Config, logger *zap.Logger) (upstream, error) {
	if cfg.AppSearch.FakeResponse != "" {
		fake := appsearch.NewFake()
		if err := fake.SetResponseFromFile(cfg.AppSearch.FakeResponse); err != nil {
			return nil, fmt.Errorf("load fake response: %w", err)
		}
		logger.Warn("Serving canned App Search responses", zap.String("file", cfg.AppSearch.FakeResponse))
		return fake, nil
	}
	return appsearch.New(appsearch.Config{
		Endpoint: cfg.AppSearch.Endpoint,
		APIKey:   cfg.AppSearch.APIKey,
		Timeout:  time.Duration(cfg.AppSearch.TimeoutSec) * time.Second,
		Logger:   logger,
	}), nil
}

func spellcheckConfig(cfg config.Config) spellcheckuc.Config {
	engines := make(map[string]spellcheckuc.EngineConfig, len(cfg.Spellcheck.Engines))
	for name, e := range cfg.Spellcheck.Engines {
		engines[name] = spellcheckuc.EngineConfig{
			InternalIndex:  e.InternalIndex,
			Fields:         e.Fields,
			AppSearchTypes: e.AppSearchTypes,
		}
	}
	return spellcheckuc.Config{
		MaxSuggestions: cfg.Spellcheck.MaxSuggestions,
		QueryParam:     cfg.Spellcheck.QueryParam,
		Engines:        engines,
		EngineVariant:  cfg.AppSearch.EngineVariant,
	}
}

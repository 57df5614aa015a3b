package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-discovery/internal/billing"
	"github.com/sells-group/contact-discovery/internal/provider"
	"github.com/sells-group/contact-discovery/internal/search"
	"github.com/sells-group/contact-discovery/internal/store"
	"github.com/sells-group/contact-discovery/pkg/apollo"
	"github.com/sells-group/contact-discovery/pkg/hunter"
	"github.com/sells-group/contact-discovery/pkg/perplexity"
)

// engine bundles a store and a fully wired orchestrator for command code.
type engine struct {
	Store        store.Store
	Orchestrator *search.Orchestrator
}

func (e *engine) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "contacts.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initRegistry() (*provider.Registry, error) {
	if cfg.Apollo.Key == "" {
		return nil, eris.New("apollo API key is required (CONTACT_APOLLO_KEY)")
	}
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity API key is required (CONTACT_PERPLEXITY_KEY)")
	}
	if cfg.Hunter.Key == "" {
		return nil, eris.New("hunter API key is required (CONTACT_HUNTER_KEY)")
	}

	reg := provider.NewRegistry()
	reg.Register(provider.NewApolloAdapter(apollo.NewClient(cfg.Apollo.Key,
		apollo.WithBaseURL(cfg.Apollo.BaseURL),
		apollo.WithRateLimit(cfg.Apollo.RateLimit),
	)))
	reg.Register(provider.NewEnrichAdapter(perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithRateLimit(cfg.Perplexity.RateLimit),
	), cfg.Perplexity.Model))
	reg.Register(provider.NewHunterAdapter(hunter.NewClient(cfg.Hunter.Key,
		hunter.WithBaseURL(cfg.Hunter.BaseURL),
	)))
	reg.Register(provider.NewCrawlerAdapter())

	return reg, nil
}

func initEngine(ctx context.Context) (*engine, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg, err := initRegistry()
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.Billing.BaseURL == "" {
		st.Close()
		return nil, eris.New("billing base URL is required (CONTACT_BILLING_BASE_URL)")
	}
	ledger := billing.NewLedger(cfg.Billing.BaseURL, cfg.Billing.Key,
		billing.WithSearchCost(cfg.Billing.SearchCost),
	)

	opts := []search.Option{
		search.WithProviderTimeout(cfg.Search.ProviderTimeout()),
		search.WithSearchCost(cfg.Billing.SearchCost),
		search.WithCrawlLimits(cfg.Crawl.MaxDepth, cfg.Crawl.MaxPages),
	}
	if cfg.Search.ApproachesPath != "" {
		approaches, err := search.LoadApproaches(cfg.Search.ApproachesPath)
		if err != nil {
			st.Close()
			return nil, err
		}
		a, ok := approaches[cfg.Search.Approach]
		if !ok {
			st.Close()
			return nil, eris.Errorf("approach %q not found in %s", cfg.Search.Approach, cfg.Search.ApproachesPath)
		}
		opts = append(opts, search.WithApproach(a))
	}

	return &engine{
		Store:        st,
		Orchestrator: search.NewOrchestrator(st, reg, ledger, opts...),
	}, nil
}

// Package main is the entry point for the rebalancing planner CLI. It
// loads an ideal-portfolio index file and a broker account, computes an
// order plan, and either logs a summary of it or (with --submit) executes
// it through the broker adapter. With --serve it also exposes a
// read-only HTTP surface for the last computed plan — the server never
// accepts a request that would submit an order.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/config"
	"github.com/aristath/sentinel/internal/indexfile"
	"github.com/aristath/sentinel/internal/money"
	"github.com/aristath/sentinel/internal/rebalance/broker/local"
	"github.com/aristath/sentinel/internal/rebalance/planner"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
	"github.com/aristath/sentinel/internal/scheduler"
	"github.com/aristath/sentinel/pkg/logger"
)

func main() {
	var dataDirFlag string
	var indexPath string
	var schedule string
	var submit bool
	var serveAddr string
	flag.StringVar(&dataDirFlag, "data-dir", "", "base data directory (overrides REBALANCER_DATA_DIR)")
	flag.StringVar(&serveAddr, "serve", "", "address for the read-only diagnostics HTTP server (overrides REBALANCER_SERVE_ADDR)")
	flag.StringVar(&indexPath, "index", "", "path to an index CSV/JSON file defining the ideal portfolio")
	flag.StringVar(&schedule, "schedule", "", "cron schedule to run the planner on (empty = run once)")
	flag.BoolVar(&submit, "submit", false, "submit the computed plan through the broker adapters instead of only printing it")
	flag.Parse()

	cfg, err := config.Load(dataDirFlag)
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}
	if serveAddr != "" {
		cfg.ServeAddr = serveAddr
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})
	logger.SetGlobalLogger(log)
	log.Info().Msg("starting rebalancing planner")

	if indexPath == "" {
		log.Fatal().Msg("--index is required")
	}
	idx, err := indexfile.Load(indexPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load index file")
	}
	ideal := idx.ToIdealPortfolio()

	// The CLI always runs against the in-memory local adapter, so the
	// pipeline is runnable without any brokerage account; the broker
	// credentials in Config are not used here.
	provider := local.New(nil, money.New(10000, money.USD), nil, local.NewRandomGenerator(1))
	real, err := provider.GetHoldings(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch holdings")
	}
	composite := portfolio.NewCompositePortfolio([]*portfolio.RealPortfolio{real})

	job := &scheduler.RebalanceJob{
		Name_:     "rebalance",
		Composite: composite,
		Ideal:     ideal,
		Providers: []planner.ProviderPlan{
			{
				Adapter: provider,
				PriceFetcher: func(tickers []portfolio.Ticker) (map[portfolio.Ticker]*decimal.Decimal, error) {
					return provider.GetInstrumentPrices(context.Background(), tickers, nil)
				},
			},
		},
		Options: planner.CompositeOptions{
			Strategy:        planner.LargestDiffFirst,
			SafetyThreshold: decimal.NewFromFloat(0.95),
			Log:             log,
		},
		Submit: submit,
		Log:    log,
	}

	sched := scheduler.New(log)
	if cfg.ServeAddr != "" {
		go serveDiagnostics(cfg.ServeAddr, job, log)
	}

	if schedule == "" {
		if err := sched.RunNow(job); err != nil {
			log.Fatal().Err(err).Msg("rebalance run failed")
		}
		return
	}

	if err := sched.AddJob(schedule, job); err != nil {
		log.Fatal().Err(err).Msg("invalid schedule")
	}
	sched.Start()
	defer sched.Stop()

	waitForShutdown(log)
}

func waitForShutdown(log zerolog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info().Msg("shutting down")
	time.Sleep(200 * time.Millisecond)
}

func serveDiagnostics(addr string, job *scheduler.RebalanceJob, log zerolog.Logger) {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/plan", func(w http.ResponseWriter, req *http.Request) {
		if job.LastPlan == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(job.LastPlan)
	})

	log.Info().Str("addr", addr).Msg("serving diagnostics endpoint")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error().Err(err).Msg("diagnostics server stopped")
	}
}

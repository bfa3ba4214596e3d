package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"biotech-backend/internal/analyses"
	"biotech-backend/internal/companies"
	"biotech-backend/internal/edgar"
	"biotech-backend/internal/llm"
	"biotech-backend/internal/llm/openai"
	"biotech-backend/internal/shared/config"
	"biotech-backend/internal/shared/server"
	"biotech-backend/internal/shared/storage/db"
	"biotech-backend/internal/shared/telemetry"
)

// App holds the wired application.
type App struct {
	Router *gin.Engine
	DB     *sql.DB
	Config config.Config
}

// Close releases app resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Build wires config -> storage -> clients -> services -> handlers -> router.
// When DATABASE_URL is empty in a dev-like environment the repos fall back to
// in-memory implementations so the API runs without Postgres.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	var (
		database     *sql.DB
		companyRepo  companies.Repo
		analysisRepo analyses.Repo
	)

	if cfg.DatabaseURL == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		telemetry.Warn("bootstrap.memory_repos", map[string]any{"env": cfg.Env})
		companyRepo = companies.NewMemoryRepo()
		analysisRepo = analyses.NewMemoryRepo()
	} else {
		var err error
		database, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.RunMigrations(ctx, database); err != nil {
			database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		companyRepo = &companies.PGRepo{DB: database}
		analysisRepo = &analyses.PGRepo{DB: database}
	}

	edgarClient := edgar.NewClient(edgar.Config{
		UserAgent:     cfg.EdgarUserAgent,
		BaseURL:       cfg.EdgarBaseURL,
		DataURL:       cfg.EdgarDataURL,
		MinIntervalMS: cfg.EdgarRateMillis,
	})

	llmClient := buildLLMClient(cfg)

	var reducer *analyses.Reducer
	if cfg.SummarizeFilings {
		reducer = &analyses.Reducer{Client: llmClient}
	}

	companyService := &companies.Service{Repo: companyRepo}
	analysisService := &analyses.Service{
		Repo:      analysisRepo,
		Companies: companyRepo,
		Resolver:  edgarClient,
		Fetcher:   edgarClient,
		Engine: &analyses.Engine{
			Client:       llmClient,
			BudgetTokens: cfg.MaxPromptTokens,
		},
		Reducer:      reducer,
		Dispatch:     cfg.AnalysisDispatch,
		LookbackDays: cfg.LookbackDays,
	}

	companyHandler := &companies.Handler{Service: companyService}
	analysisHandler := &analyses.Handler{Service: analysisService}

	router := server.NewRouter(server.RouterDeps{
		Env:            cfg.Env,
		AllowedOrigins: cfg.CORSAllowOrigin,
		Registrars:     []server.RouteRegistrar{companyHandler, analysisHandler},
		DevRegistrars:  []server.DevRouteRegistrar{analysisHandler},
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":      cfg.Env,
		"dispatch": cfg.AnalysisDispatch,
		"llm":      cfg.LLMProvider,
		"db":       database != nil,
	})

	return &App{Router: router, DB: database, Config: cfg}, nil
}

func buildLLMClient(cfg config.Config) llm.Client {
	if cfg.LLMProvider != "openai" {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderClient{}
	}
	client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
	if err != nil {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"error": err.Error()})
		return llm.PlaceholderClient{}
	}
	return client
}

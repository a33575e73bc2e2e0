package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"policy-backend/internal/answers"
	"policy-backend/internal/blanks"
	"policy-backend/internal/convert"
	"policy-backend/internal/render"
	"policy-backend/internal/services/health"
	"policy-backend/internal/shared/config"
	"policy-backend/internal/shared/server"
	"policy-backend/internal/shared/storage/db"
	"policy-backend/internal/shared/storage/object"
	localstore "policy-backend/internal/shared/storage/object/local"
	s3store "policy-backend/internal/shared/storage/object/s3"
	"policy-backend/internal/shared/telemetry"
	"policy-backend/internal/templates"
	"policy-backend/internal/workflow"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Registry  blanks.Registry
	AnswerSvc *answers.Service
	Workflow  *workflow.Workflow
	Templates *templates.Store
	Workspace convert.Workspace
	Converter convert.Converter
	RenderSvc *render.Service
	Health    *health.Service
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	Store     object.ObjectStore
	Converter convert.Converter
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(context.Background(), cfg, Options{})
}

// BuildWith is Build with explicit overrides.
func BuildWith(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.Configure(os.Stdout, cfg.LogLevel)

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		store, err = buildStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	registry, err := buildRegistry(cfg, sqlDB)
	if err != nil {
		return nil, err
	}

	var answerRepo answers.Repo
	if sqlDB != nil {
		answerRepo = &answers.PGRepo{DB: sqlDB}
	} else {
		answerRepo = answers.NewMemoryRepo()
	}
	answerSvc := answers.NewService(answerRepo, registry)

	ws, err := convert.NewWorkspace(cfg.PreviewWorkDir)
	if err != nil {
		return nil, err
	}
	converter := opts.Converter
	if converter == nil {
		soffice := convert.NewSoffice(cfg.ConverterBinary, ws, cfg.MaxConcurrentConversions)
		if err := soffice.Available(); err != nil {
			telemetry.Warn("bootstrap.converter_unavailable", map[string]any{"err": err})
		}
		converter = soffice
	}

	templateStore := templates.NewStore(store, cfg.TemplatePrefix)
	renderSvc := render.NewService(answerSvc, templateStore, converter, ws, cfg.ConvertTimeout)
	wf := workflow.New(registry, answerSvc, answerSvc)

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Registry:  registry,
		AnswerSvc: answerSvc,
		Workflow:  wf,
		Templates: templateStore,
		Workspace: ws,
		Converter: converter,
		RenderSvc: renderSvc,
		Health:    buildHealth(sqlDB, converter),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Health: app.Health,
		Handlers: []server.RouteRegistrar{
			blanks.NewHandler(registry),
			answers.NewHandler(answerSvc),
			workflow.NewHandler(wf),
			render.NewHandler(renderSvc),
		},
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"database":     sqlDB != nil,
		"workspace":    ws.Dir,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "err": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRegistry(cfg config.Config, sqlDB *sql.DB) (blanks.Registry, error) {
	if sqlDB != nil {
		return &blanks.PGRegistry{DB: sqlDB}, nil
	}
	catalog, err := blanks.LoadCatalogFile(cfg.BlankCatalog)
	if err != nil {
		return nil, fmt.Errorf("load blank catalog: %w", err)
	}
	return blanks.NewMemoryRegistry(catalog), nil
}

type availability interface {
	Available() error
}

func buildHealth(sqlDB *sql.DB, converter convert.Converter) *health.Service {
	svc := health.NewService()
	if sqlDB != nil {
		svc.Register("database", sqlDB.PingContext)
	}
	if a, ok := converter.(availability); ok {
		svc.Register("converter", func(context.Context) error { return a.Available() })
	}
	return svc
}

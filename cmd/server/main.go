package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/storekeep/modules/files"
	"github.com/dmitrymomot/storekeep/modules/identity"
	"github.com/dmitrymomot/storekeep/pkg/config"
	"github.com/dmitrymomot/storekeep/pkg/cookie"
	"github.com/dmitrymomot/storekeep/pkg/httpserver"
	"github.com/dmitrymomot/storekeep/pkg/logger"
	"github.com/dmitrymomot/storekeep/pkg/mailer"
	mongodb "github.com/dmitrymomot/storekeep/pkg/mongo"
	"github.com/dmitrymomot/storekeep/pkg/objstore"
	"github.com/dmitrymomot/storekeep/pkg/ratelimit"
	redisconn "github.com/dmitrymomot/storekeep/pkg/redis"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"production"`
	Log       logger.Config
	HTTP      httpserver.Config
	Cookie    cookie.Config
	Mongo     mongodb.Config
	Redis     redisconn.Config
	Storage   objstore.S3Config
	Mail      mailer.Config
	Identity  identity.Config
	Files     files.Config
	RateLimit ratelimit.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	db, err := mongodb.ConnectDatabase(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	redisClient, err := redisconn.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	store, err := objstore.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return err
	}

	var sender mailer.Sender
	if cfg.Mail.PostmarkServerToken != "" {
		if sender, err = mailer.NewPostmarkClient(cfg.Mail); err != nil {
			return err
		}
	} else {
		log.Warn("no postmark token configured, using dev mail sender")
		sender = mailer.NewDevSender(log)
	}

	identityStorage := identity.NewMongoStorage(db)
	if err := identityStorage.EnsureIndexes(ctx); err != nil {
		return err
	}
	catalog := files.NewMongoCatalog(db)
	if err := catalog.EnsureIndexes(ctx); err != nil {
		return err
	}

	identitySvc := identity.NewServiceFromConfig(cfg.Identity,
		identityStorage,
		identity.NewRedisSessionStore(redisClient),
		sender,
		identity.WithLogger(log),
	)
	filesSvc := files.NewServiceFromConfig(cfg.Files, catalog, store, files.WithLogger(log))

	otpLimiter, err := ratelimit.NewBucket(cfg.RateLimit)
	if err != nil {
		return err
	}
	defer otpLimiter.Close()

	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
	)
	r.Get("/health", httpserver.HealthCheckHandler(log,
		mongodb.Healthcheck(db.Client()),
		redisconn.Healthcheck(redisClient),
	))
	r.Mount("/", identity.Router(identitySvc, cookies,
		ratelimit.Middleware(otpLimiter, ratelimit.ByClientIP)))
	r.Mount("/files", files.Router(filesSvc, identity.RequireAuth(identitySvc, cookies)))

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

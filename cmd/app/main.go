package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sushihentaime/blogsphere/internal/activityservice"
	"github.com/sushihentaime/blogsphere/internal/adminservice"
	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/commentservice"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mailservice"
	"github.com/sushihentaime/blogsphere/internal/realtime"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

type application struct {
	config          *Config
	logger          *slog.Logger
	db              *sql.DB
	cache           *common.Cache
	hub             *realtime.Hub
	limiter         *ipRateLimiter
	providers       map[userservice.Provider]userservice.IdentityProvider
	userService     *userservice.UserService
	blogService     *blogservice.BlogService
	commentService  *commentservice.CommentService
	activityService *activityservice.ActivityService
	adminService    *adminservice.AdminService
	mailService     *mailservice.MailService
	broker          *common.MessageBroker
	relay           *realtime.BrokerRelay
	wg              sync.WaitGroup
}

func newLogger(cfg *Config) *slog.Logger {
	if cfg.production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// newApplication wires the services around db. broker may be nil, in which case real-time events stay on this
// instance and no welcome emails are sent.
func newApplication(cfg *Config, logger *slog.Logger, db *sql.DB, broker *common.MessageBroker) *application {
	c := common.NewCache(cfg.CacheTTL, cfg.CacheCleanupInterval)
	hub := realtime.NewHub(logger, cfg.TrustedOrigins...)
	tokens := userservice.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpiresIn, cfg.JWTRefreshExpiresIn)

	var producer common.MessageProducer
	if broker != nil {
		producer = broker
	}

	users := userservice.NewUserService(db, producer, tokens, hub, logger)
	blogs := blogservice.NewBlogService(db, c, hub)
	comments := commentservice.NewCommentService(db, blogs, c, hub)
	activity := activityservice.NewActivityService(db)

	return &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		cache:           c,
		hub:             hub,
		limiter:         newIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		providers:       map[userservice.Provider]userservice.IdentityProvider{},
		userService:     users,
		blogService:     blogs,
		commentService:  comments,
		activityService: activity,
		adminService:    adminservice.NewAdminService(db, users, blogs, comments, activity, c),
		broker:          broker,
	}
}

// setupProviders registers the third-party login providers that have credentials configured.
func (app *application) setupProviders(ctx context.Context) {
	cfg := app.config

	if cfg.GoogleClientID != "" {
		google, err := userservice.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
		if err != nil {
			app.logger.Error("google login disabled", slog.String("error", err.Error()))
		} else {
			app.providers[userservice.ProviderGoogle] = google
		}
	}

	if cfg.FacebookAppID != "" {
		app.providers[userservice.ProviderFacebook] = userservice.NewFacebookProvider(cfg.FacebookAppID, cfg.FacebookAppSecret, cfg.FacebookCallbackURL)
	}
}

// setupBroker starts the real-time relay and, when SMTP is configured, the welcome email consumer.
func (app *application) setupBroker() error {
	if err := common.SetupUserExchange(app.broker); err != nil {
		return err
	}

	relay, err := realtime.NewBrokerRelay(app.broker, app.hub, app.logger)
	if err != nil {
		return err
	}
	if err := relay.Run(); err != nil {
		return err
	}
	app.relay = relay

	cfg := app.config
	if cfg.MailHost != "" {
		app.mailService = mailservice.NewMailService(app.broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.FrontendURL, cfg.MailPort, app.logger)
		app.mailService.SendWelcomeEmail()
	}

	return nil
}

func main() {
	configPath := flag.String("config", ".env", "path to the dotenv configuration file")
	migrations := flag.String("migrations", "file://migrations", "migration source URL")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)

	db, err := common.NewDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, 25, 25, 15*time.Minute)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.DBAutoMigrate {
		m, err := common.Migrate(*migrations, common.PostgresDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName))
		if err != nil {
			logger.Error("failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		m.Close()
		logger.Info("database migrations applied")
	}

	var broker *common.MessageBroker
	if cfg.MQHost != "" {
		broker, err = common.NewMessageBroker(common.AMQPURI(cfg.MQHost, cfg.MQPort, cfg.MQUser, cfg.MQPassword))
		if err != nil {
			logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Info("no message broker configured, real-time events stay local and welcome emails are disabled")
	}

	app := newApplication(cfg, logger, db, broker)

	if broker != nil {
		if err := app.setupBroker(); err != nil {
			logger.Error("failed to set up the message broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.setupProviders(ctx)
	app.background(func() { app.limiter.cleanup(ctx, time.Minute) })

	err = app.serve()
	cancel()
	app.shutdown()

	if err != nil {
		logger.Error("server stopped with an error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

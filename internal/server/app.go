// Package server initializes and runs the portfolio server. It opens the
// database and object storage, seeds the owner account, wires the data
// gateway, renderer and form services, and serves HTTP until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/auth"
	"github.com/dmitrijs2005/portfolio/internal/server/blobstore"
	"github.com/dmitrijs2005/portfolio/internal/server/config"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/httpapi"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/notify"
	"github.com/dmitrijs2005/portfolio/internal/server/render"
	"github.com/dmitrijs2005/portfolio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/portfolio/internal/server/revalidate"
	"github.com/dmitrijs2005/portfolio/internal/server/rewrite"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rdb      *redis.Client
	notifier notify.Notifier
	cache    *revalidate.PageCache
	webhook  *revalidate.Webhook
	server   *httpapi.Server
}

// cachedPages maps each collection to the pages rendered from it.
var cachedPages = map[string][]string{
	models.CollectionProjects: services.ProjectPaths,
	models.CollectionSkills:   services.SkillPaths,
	models.CollectionProfiles: services.ProfilePaths,
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	users := services.NewUserService(db, rm, c, logger)
	if err := users.EnsureOwner(ctx, c.OwnerID, c.OwnerEmail, c.OwnerPasswordHash); err != nil {
		app.close()
		return nil, err
	}

	app.notifier = notify.NewMemory()
	if c.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.notifier = notify.NewRedis(app.rdb)
	}

	blobs, err := blobstore.New(ctx, c)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	gw := gateway.New(rm.Documents(db), blobs, app.notifier, logger)

	app.cache = revalidate.NewPageCache(c.PageCacheTTL)
	reval := revalidate.Multi{app.cache}
	if c.RevalidationURL != "" {
		app.webhook = revalidate.NewWebhook(c.RevalidationURL, c.RevalidationSecret, logger)
		reval = append(reval, app.webhook)
	}

	pages, err := render.New(gw, app.cache, c.OwnerID, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("templates: %w", err)
	}

	var rw services.TextRewriter
	if c.GeminiAPIKey != "" {
		g, err := rewrite.NewGemini(ctx, c.GeminiAPIKey, c.GeminiModel)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("gemini init error: %w", err)
		}
		rw = g
	} else {
		logger.Warn(ctx, "no Gemini API key configured, CV enhancer disabled")
	}

	app.server = httpapi.NewServer(httpapi.Options{
		Address:        c.HTTPAddr,
		Pages:          pages,
		Resolver:       auth.NewResolver([]byte(c.SecretKey), c.OwnerID),
		Sessions:       users,
		Projects:       services.NewProjectService(gw, reval, logger),
		Skills:         services.NewSkillService(gw, reval, logger),
		Profile:        services.NewProfileService(gw, reval, logger, c.OwnerID),
		CV:             services.NewCVService(rw, logger),
		Lists:          gw,
		AllowedOrigins: c.AllowedOrigins,
		SecureCookies:  c.SecureCookies,
		TrustProxy:     c.TrustProxy,
		AccessTTL:      c.AccessTokenValidityDuration,
		RefreshTTL:     c.RefreshTokenValidityDuration,
		Logger:         logger,
	})
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// close releases what NewApp opened. Pending webhook calls are waited for.
func (app *App) close() {
	if app.webhook != nil {
		app.webhook.Wait()
	}
	if app.rdb != nil {
		_ = app.rdb.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	follower, err := revalidate.Follow(ctx, app.notifier, app.cache, cachedPages, app.logger)
	if err != nil {
		app.logger.Error(ctx, "page cache not following collection changes, pages expire by TTL only", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	if follower != nil {
		follower.Stop()
	}
	app.close()
	app.logger.Info(context.WithoutCancel(ctx), "Stopped")
}

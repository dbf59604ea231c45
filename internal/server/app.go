// Package server initializes and runs the application server.
// It opens the database, applies migrations, wires up the services, handles
// graceful shutdown, and starts the HTTP server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/knowyourenemy/statsadmit-backend/internal/logging"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/config"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/httpapi"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/repomanager"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/services"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	sessionService *services.SessionService
	userService    *services.UserService
	profileService *services.ProfileService
	mediaService   *services.MediaService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	ss := services.NewSessionService(db, m, cfg)
	us := services.NewUserService(db, m, ss, cfg)
	ps := services.NewProfileService(db, m)
	ms := services.NewMediaService(cfg)

	return &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		sessionService: ss,
		userService:    us,
		profileService: ps,
		mediaService:   ms,
	}, nil
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

	s := httpapi.NewServer(app.config, app.logger,
		app.userService, app.sessionService, app.profileService, app.mediaService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

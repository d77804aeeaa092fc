// Package app wires the console: local database, session, interpreter,
// store and view builder, all driven by one Config.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"academydesk/internal/actions"
	"academydesk/internal/config"
	"academydesk/internal/db"
	"academydesk/internal/derive"
	"academydesk/internal/dispatch"
	"academydesk/internal/journal"
	"academydesk/internal/migrate"
	"academydesk/internal/observability"
	"academydesk/internal/session"
	"academydesk/internal/store"
	"academydesk/internal/validate"
	"academydesk/internal/views"
)

// ErrInFlight is returned when a fetch is dispatched while the same slice is
// still loading.
var ErrInFlight = errors.New("already loading")

type Options struct {
	Workspace string
	// Viper carries flag and environment overrides; nil reads only the
	// environment.
	Viper *viper.Viper
	// InMemory keeps the console database in memory, for tests.
	InMemory   bool
	LogOutput  io.Writer
	HTTPClient *http.Client
	Now        func() time.Time
}

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *sql.DB
	Session     *session.Session
	Journal     journal.Writer
	Registry    *prometheus.Registry
	Store       *store.Store
	Interpreter *dispatch.Interpreter
	Actions     *actions.Creators
	Validator   *validate.Validator
	Views       *views.Builder
	Cache       *derive.Cache

	now         func() time.Time
	unsubscribe func()
}

// Open loads configuration for the workspace and builds the console. The
// auth slice starts from whatever session the database remembers.
func Open(ctx context.Context, opts Options) (*App, error) {
	if err := config.LoadDotEnv(opts.Workspace); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.Workspace)
	if err != nil {
		return nil, err
	}
	v := opts.Viper
	if v == nil {
		v = config.NewViper()
	}
	if err := cfg.Overlay(v); err != nil {
		return nil, err
	}

	var logger *zap.Logger
	if opts.LogOutput != nil {
		logger = observability.NewLogger(cfg.Log, opts.LogOutput)
	} else if logger, err = observability.SetupLogger(cfg.Log); err != nil {
		return nil, err
	}

	conn, err := db.Open(db.Config{Workspace: opts.Workspace, InMemory: opts.InMemory})
	if err != nil {
		return nil, fmt.Errorf("open console db: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate console db: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        conn,
		Session:   session.New(session.SQLStore{DB: conn, Now: now}),
		Journal:   journal.Writer{DB: conn, Logger: logger},
		Registry:  prometheus.NewRegistry(),
		Validator: validate.New(),
		Cache:     derive.NewCache(cfg.Console.CacheSize),
		now:       now,
	}
	a.Views = views.NewBuilder(a.Cache)
	auth, err := a.restoreAuth(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.Store = store.New(actions.Reducers(auth)...)
	signOut := a.Store.Subscribe(actions.SignOutOnAuthError(context.WithoutCancel(ctx), a.Session, logger))
	forget := a.Store.Subscribe(a.forgetViews)
	a.unsubscribe = func() {
		signOut()
		forget()
	}
	a.Actions = actions.New(a.Validator, a.Session)
	a.Interpreter = dispatch.New(dispatch.Config{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		HTTPClient:  opts.HTTPClient,
		Credentials: a.Session,
		Dispatcher:  a.Store,
		Logger:      logger,
		Metrics:     dispatch.NewMetrics(a.Registry),
		Observer:    a.Journal.Observe,
		Now:         now,
	})
	return a, nil
}

// forgetViews drops memoized view models once the console signs out, so
// nothing derived from the previous session is served again.
func (a *App) forgetViews(act store.Action) {
	if act.Type == store.ActionLogout || act.Type == store.ActionAuthError {
		a.Cache.Purge()
	}
}

func (a *App) restoreAuth(ctx context.Context) (store.AuthSlice, error) {
	if _, err := a.Session.Token(ctx); err != nil {
		if errors.Is(err, session.ErrNoCredential) {
			return store.AuthSlice{}, nil
		}
		return store.AuthSlice{}, err
	}
	p, err := a.Session.Profile(ctx)
	if err != nil {
		return store.AuthSlice{}, err
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(a.now()) {
		a.Logger.Info("stored session expired", zap.Time("expired_at", *p.ExpiresAt))
		return store.AuthSlice{}, a.Session.SignOut(ctx)
	}
	return store.AuthSlice{LoggedIn: true, Email: p.Email, Roles: p.Roles}, nil
}

func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	_ = a.Logger.Sync()
	return a.DB.Close()
}

// Run dispatches the descriptor a creator built, or returns the creator's
// validation error without touching the network. A fetch whose slice is
// still loading is not sent again.
func (a *App) Run(ctx context.Context, d dispatch.Descriptor, err error) error {
	if err != nil {
		return err
	}
	if m, ok := d.OnStart.(dispatch.Marker); ok && a.Store.InFlight(m.Type) {
		a.Logger.Info("fetch already in flight", zap.String("path", d.Path))
		return fmt.Errorf("%s: %w", d.Path, ErrInFlight)
	}
	return a.Interpreter.Dispatch(ctx, d)
}

// Runner binds ctx so a creator's two results can be passed straight in:
// a.Runner(ctx)(a.Actions.CreateStudent(s)).
func (a *App) Runner(ctx context.Context) func(dispatch.Descriptor, error) error {
	return func(d dispatch.Descriptor, err error) error {
		return a.Run(ctx, d, err)
	}
}

// RunAll dispatches descriptors in order, stopping at the first failure.
func (a *App) RunAll(ctx context.Context, ds ...dispatch.Descriptor) error {
	for _, d := range ds {
		if err := a.Run(ctx, d, nil); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Auth() store.AuthSlice {
	return store.Select[store.AuthSlice](a.Store, store.AuthSliceName)
}

func (a *App) Notice() store.Notice {
	return store.Select[store.Notice](a.Store, store.NoticeSliceName)
}

func (a *App) State() views.State {
	return views.FromStore(a.Store)
}

// UI returns the screen state defaults from configuration.
func (a *App) UI() views.UI {
	return views.UI{
		PageSize: a.Config.Console.PageSize,
		Now:      a.now(),
		Location: a.Config.Location(),
	}
}

// Quote returns the next motivational quote, avoiding repeats until every
// configured quote has been shown once.
func (a *App) Quote(ctx context.Context) string {
	quotes := a.Config.Console.Quotes
	if len(quotes) == 0 {
		return ""
	}
	i, err := a.Session.NextQuote(ctx, len(quotes))
	if err != nil {
		a.Logger.Warn("quote rotation failed", zap.Error(err))
		return quotes[0]
	}
	return quotes[i]
}

// Workspace resolves an empty workspace flag to the working directory.
func Workspace(flag string) string {
	if flag != "" {
		return flag
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staffDirectoryViewer/internal/audit"
	"staffDirectoryViewer/internal/metrics"
	"staffDirectoryViewer/internal/store"
	"staffDirectoryViewer/internal/utils"
	"staffDirectoryViewer/internal/viewer"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"
)

type App struct {
	Config       *Config
	DB           *sql.DB
	SessionStore *sessions.CookieStore
	Viewers      *viewer.Registry
	Audit        *audit.Log
	Metrics      *metrics.Recorder
	Templates    *TemplateCache
	SaveLimiter  *RateLimiter
}

func main() {
	config, err := LoadConfig()
	if err != nil {
		utils.AppLogger.WithError(err).Fatal("Failed to load configuration")
	}
	utils.InitializeLogger(config.LogLevel, config.Environment)

	db, err := sql.Open("sqlite3", config.DatabasePath)
	if err != nil {
		utils.AppLogger.WithError(err).Fatal("Failed to open database")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	defer db.Close()

	ctx := context.Background()
	remote, err := newRemoteStore(ctx, config, db)
	if err != nil {
		utils.AppLogger.WithError(err).Fatal("Failed to set up list store")
	}

	app, err := newApp(config, db, remote)
	if err != nil {
		utils.AppLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer app.Close()

	server := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		utils.AppLogger.WithFields(map[string]interface{}{
			"port":      config.Port,
			"backend":   config.Backend,
			"list":      config.ListName,
			"partition": config.PartitionURL,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.AppLogger.WithError(err).Fatal("Error starting server")
		}
	}()

	<-stop
	utils.AppLogger.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.AppLogger.WithError(err).Error("Error shutting down server")
	}

	utils.AppLogger.Info("Server stopped")
}

// newApp wires the application around remote. The audit table lives in db.
func newApp(config *Config, db *sql.DB, remote store.RemoteStore) (*App, error) {
	sessionStore := sessions.NewCookieStore(config.SessionSecret)
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   config.SessionMaxAge,
		HttpOnly: true,
		Secure:   config.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	}

	auditLog, err := audit.New(db)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	remote = auditLog.Wrap(recorder.Instrument(remote))

	observe := viewer.WithObserver(func(from, to viewer.Phase) {
		recorder.ObserveTransition(string(from), string(to))
	})
	registry := viewer.NewRegistry(config.ViewerIdleTTL, func() *viewer.Component {
		return viewer.NewComponent(remote, config.ListName, config.PartitionURL, observe)
	})

	limiter := NewRateLimiter(config.SaveRatePerMinute, config.SaveRatePerMinute)
	limiter.StartCleanupRoutine()

	return &App{
		Config:       config,
		DB:           db,
		SessionStore: sessionStore,
		Viewers:      registry,
		Audit:        auditLog,
		Metrics:      recorder,
		Templates:    NewTemplateCache("templates"),
		SaveLimiter:  limiter,
	}, nil
}

// Close stops the background cleanup of viewers and rate limit buckets.
func (app *App) Close() {
	app.Viewers.Close()
	app.SaveLimiter.Stop()
}

func (app *App) Routes() http.Handler {
	r := mux.NewRouter()

	r.Use(app.RecoveryMiddleware)
	r.Use(app.LoggingMiddleware)

	r.HandleFunc("/healthz", app.handleHealth).Methods("GET")
	r.Handle("/metrics", app.Metrics.Handler()).Methods("GET")

	pages := r.NewRoute().Subrouter()
	pages.Use(app.SessionMiddleware)
	pages.HandleFunc("/", app.handleList).Methods("GET")
	pages.HandleFunc("/sort/{column}", app.CSRFMiddleware(app.handleSort)).Methods("POST")
	pages.HandleFunc("/edit/{id:[0-9]+}", app.CSRFMiddleware(app.handleEdit)).Methods("POST")
	pages.Handle("/save", app.RateLimitMiddleware(app.SaveLimiter)(app.CSRFMiddleware(app.handleSave))).Methods("POST")
	pages.HandleFunc("/cancel", app.CSRFMiddleware(app.handleCancel)).Methods("POST")
	pages.HandleFunc("/reload", app.CSRFMiddleware(app.handleReload)).Methods("POST")

	api := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	pages.Handle("/api/staff", api.Handler(http.HandlerFunc(app.handleAPIStaff))).Methods("GET", "OPTIONS")
	r.Handle("/api/audit", api.Handler(http.HandlerFunc(app.handleAPIAudit))).Methods("GET", "OPTIONS")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFoundError(w, fmt.Sprintf("Route %s", r.URL.Path))
	})

	return r
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/lecternapp/lectern/internal/server"
)

func main() {
	app, syncQueue := server.Setup()

	router := mux.NewRouter().StrictSlash(true)

	router.Use(app.SessionMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/articles", app.ListArticlesHandler).Methods("GET")
	api.HandleFunc("/articles", app.CreateArticleHandler).Methods("POST")
	api.HandleFunc("/articles/{slug}", app.GetArticleHandler).Methods("GET")
	api.HandleFunc("/articles/{slug}", app.UpdateArticleHandler).Methods("PUT")
	api.HandleFunc("/articles/{slug}", app.DeleteArticleHandler).Methods("DELETE")
	api.HandleFunc("/articles/{slug}/history", app.HistoryHandler).Methods("GET")
	api.HandleFunc("/articles/{slug}/restore/{version}", app.RestoreHandler).Methods("POST")
	api.HandleFunc("/articles/{slug}/diff", app.DiffHandler).Methods("GET")
	api.HandleFunc("/search", app.SearchHandler).Methods("GET")

	api.HandleFunc("/courses", app.ListCoursesHandler).Methods("GET")
	api.HandleFunc("/courses", app.CreateCourseHandler).Methods("POST")
	api.HandleFunc("/courses/{slug}", app.GetCourseHandler).Methods("GET")
	api.HandleFunc("/courses/{slug}/enroll", app.EnrollHandler).Methods("POST")

	api.HandleFunc("/login", app.LoginHandler).Methods("POST")
	api.HandleFunc("/logout", app.LogoutHandler).Methods("POST")
	api.HandleFunc("/register", app.RegisterHandler).Methods("POST")

	handler := server.SlogLoggingMiddleware(handlers.RecoveryHandler()(router))

	srv := &http.Server{
		Addr:    app.Config.Host,
		Handler: handler,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server starting", "url", "http://"+app.Config.Host)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server first (stop accepting new requests)
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Shutdown sync queue (wait for in-flight jobs)
	slog.Info("shutting down sync queue...")
	if err := syncQueue.Shutdown(ctx); err != nil {
		slog.Error("sync queue shutdown error", "error", err)
	}

	if err := app.Rel.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

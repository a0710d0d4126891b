package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/mind-engage/mcqexam/internal/api/http"
	auth "github.com/mind-engage/mcqexam/internal/auth/middleware"
	"github.com/mind-engage/mcqexam/internal/config"
	"github.com/mind-engage/mcqexam/internal/db"
	"github.com/mind-engage/mcqexam/internal/exam"
	"github.com/mind-engage/mcqexam/internal/results"
	"github.com/mind-engage/mcqexam/internal/users"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	accounts := users.NewStore(dbh)
	if err := accounts.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	policy, err := results.ParsePolicy(cfg.ResubmitPolicy)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	exams := exam.NewSQLStore(dbh)
	engine := results.NewEngine(exams, exams, results.NewSQLStore(dbh),
		results.WithScale(cfg.ScoreScale),
		results.WithPolicy(policy),
	)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Auth:           auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Users:          accounts,
		Exams:          exams,
		Results:        engine,
		AllowClaimRole: cfg.AllowClaimRole,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("listening on %s (mode=%s, db=%s, scale=%g, resubmit=%s)",
		cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.ScoreScale, policy)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"symptom-triage/internal/audit"
	"symptom-triage/internal/config"
	"symptom-triage/internal/doctor"
	"symptom-triage/internal/history"
	"symptom-triage/internal/logging"
	"symptom-triage/internal/notification"
	"symptom-triage/internal/oracle"
	"symptom-triage/internal/patient"
	"symptom-triage/internal/platform/telegram"
	"symptom-triage/internal/prediction"
	"symptom-triage/internal/records"
	"symptom-triage/internal/report"
	"symptom-triage/internal/symptom"
	"symptom-triage/internal/user"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 1. Infrastructure
	db, err := connectDB(cfg.Database.URL, log)
	if err != nil {
		log.Fatal("could not connect to database", "error", err)
	}

	if err := runMigrations(cfg.Database.MigrationsPath, cfg.Database.URL); err != nil {
		log.Fatal("migrations failed", "error", err)
	}
	log.Info("migrations applied")

	// 2. Clients
	oracleClient := oracle.NewClient(cfg.Oracle, log)

	var alerter notification.Alerter
	if cfg.Alerts.TelegramToken != "" && cfg.Alerts.TelegramChatID != 0 {
		alerter = telegram.NewClient(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID)
		log.Info("telegram alert channel enabled")
	}

	// 3. Repositories
	userRepo := user.NewRepository(db)
	patientRepo := patient.NewRepository(db)
	symptomRepo := symptom.NewRepository(db)
	predictionRepo := prediction.NewRepository(db)
	notificationRepo := notification.NewRepository(db)
	annotationRepo := doctor.NewAnnotationRepository(db)
	issueRepo := doctor.NewIssueRepository(db)
	historyRepo := history.NewRepository(db)
	auditRepo := audit.NewRepository(db)

	// 4. Services
	auditSvc := audit.NewService(auditRepo, log)
	notificationSvc := notification.NewService(notificationRepo, userRepo, patientRepo, alerter, log)
	predictionSvc := prediction.NewService(predictionRepo, oracleClient, notificationSvc, log)
	symptomSvc := symptom.NewService(symptomRepo, patientRepo, predictionSvc, auditSvc, log)
	doctorSvc := doctor.NewService(annotationRepo, issueRepo, predictionRepo, userRepo, patientRepo, symptomRepo, auditSvc, log)
	recordsSvc := records.NewService(symptomRepo, predictionRepo, annotationRepo)
	historySvc := history.NewService(historyRepo)
	reportSvc := report.NewService(predictionRepo, patientRepo, symptomRepo, annotationRepo)

	// 5. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		symptom.RegisterRoutes(r, symptom.NewHandler(symptomSvc))
		records.RegisterRoutes(r, records.NewHandler(recordsSvc))
		notification.RegisterRoutes(r, notification.NewHandler(notificationSvc, userRepo))
		doctor.RegisterRoutes(r, doctor.NewHandler(doctorSvc))
		report.RegisterRoutes(r, report.NewHandler(reportSvc))
		history.RegisterRoutes(r, history.NewHandler(historySvc))
	})

	addr := ":" + cfg.Server.Port
	log.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func connectDB(url string, log *logging.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", url)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			log.Info("connected to database")
			return db, nil
		}
		log.Warn("waiting for database", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	return nil, err
}

func runMigrations(sourcePath, dbURL string) error {
	m, err := migrate.New(sourcePath, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

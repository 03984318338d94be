package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"esign/internal/auth"
	"esign/internal/blob"
	"esign/internal/config"
	"esign/internal/notify"
	"esign/internal/observability/logging"
	"esign/internal/observability/metrics"
	"esign/internal/pdf"
	"esign/internal/service"
	impl "esign/internal/service/impl"
	"esign/internal/store"
	httptransport "esign/internal/transport/http"
	"esign/pkg/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "esign",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	logger.Info("starting service")

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	st := store.New(gdb)
	if err := st.AutoMigrate(); err != nil {
		logger.Error("auto migrate", "error", err)
		os.Exit(1)
	}

	blobs, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		logger.Error("blob store", "error", err)
		os.Exit(1)
	}

	var notifier service.Notifier
	if cfg.SMTPAddr != "" {
		notifier = notify.NewSMTP(notify.SMTPConfig{
			Addr: cfg.SMTPAddr,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}, logger)
	} else {
		notifier = notify.NewLog(logger)
	}

	composer := pdf.NewEngine(logger)

	docs := impl.NewDocumentService(st, notifier, composer, blobs, impl.DocumentConfig{
		TokenTTL:       cfg.TokenTTL,
		SigningBaseURL: cfg.SigningBaseURL,
	}, logger)
	signing := impl.NewSigningService(st, notifier, docs, impl.SigningConfig{
		AcceptTokenPrefix: cfg.AcceptTokenPrefix,
	}, logger)

	validator := auth.NewValidator(cfg.SigningKey, cfg.Issuer)

	metrics.MustRegister()

	router := httptransport.NewRouter(docs, signing, validator, httptransport.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", "addr", srv.Addr, "signing_base_url", cfg.SigningBaseURL)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

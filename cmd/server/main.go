// cmd/server/main.go
package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/mailtrail-backend/internal/config"
	"github.com/unclebandit/mailtrail-backend/internal/controller"
	"github.com/unclebandit/mailtrail-backend/internal/db"
	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/queue"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
	"github.com/unclebandit/mailtrail-backend/internal/service"
	"github.com/unclebandit/mailtrail-backend/internal/transport"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Warn("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	runMigrations(cfg)

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to DB")
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	emailRepo := &repository.EmailRepository{DB: conn}
	eventRepo := &repository.EventRepository{DB: conn}
	templateRepo := &repository.TemplateRepository{DB: conn}
	credentialRepo := &repository.CredentialRepository{DB: conn}

	tracking := &service.TrackingService{
		EmailRepo: emailRepo,
		EventRepo: eventRepo,
		BaseURL:   cfg.BaseURL,
	}
	dispatcher := service.NewDispatcher(
		campaignRepo, emailRepo, tracking,
		cfg.DispatchWorkers, cfg.SendTimeout, cfg.OutboundRate,
	)
	emailService := &service.EmailService{
		CredentialRepo: credentialRepo,
		TemplateRepo:   templateRepo,
		EmailRepo:      emailRepo,
		Tracking:       tracking,
		Dispatcher:     dispatcher,
		SendTimeout:    cfg.SendTimeout,
		NewTransport: func(cred *model.Credential) transport.Transport {
			return transport.NewSMTPTransport(cred)
		},
	}
	statsService := &service.StatsService{
		CampaignRepo: campaignRepo,
		EmailRepo:    emailRepo,
		EventRepo:    eventRepo,
	}

	dispatchQueue := connectQueue(cfg, emailService)

	emailController := &controller.EmailController{
		EmailService: emailService,
		Tracking:     tracking,
		Stats:        statsService,
		CampaignRepo: campaignRepo,
		Queue:        dispatchQueue,
	}
	templateController := &controller.TemplateController{Repo: templateRepo}
	credentialController := &controller.CredentialController{Repo: credentialRepo}

	r := chi.NewRouter()

	// Email routes
	r.Post("/email/send", emailController.SendEmail)
	r.Post("/email/send-bulk", emailController.SendBulk)
	r.Get("/email/track/{trackingID}", emailController.TrackOpen)
	r.Get("/email/campaigns", emailController.ListCampaigns)
	r.Get("/email/campaigns/{id}/stats", emailController.CampaignStats)

	// Template CRUD
	r.Post("/email/templates", templateController.Create)
	r.Get("/email/templates", templateController.List)
	r.Get("/email/templates/{id}", templateController.Get)
	r.Put("/email/templates/{id}", templateController.Update)
	r.Delete("/email/templates/{id}", templateController.Delete)

	// Credential CRUD
	r.Post("/email/credentials", credentialController.Create)
	r.Get("/email/credentials", credentialController.List)
	r.Delete("/email/credentials/{id}", credentialController.Delete)

	log.Infof("🚀 Server running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

func runMigrations(cfg *config.Config) {
	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("could not create migration instance")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.WithError(err).Fatal("could not apply migrations")
	}
	log.Info("database migrations applied")
}

// connectQueue prefers the broker; without one, scheduled dispatches run
// in-process off the in-memory queue.
func connectQueue(cfg *config.Config, emails *service.EmailService) queue.Queue {
	rq, err := queue.NewRabbitMQQueue(cfg.AMQPURL)
	if err != nil {
		log.WithError(err).Warn("⚠️ RabbitMQ unavailable, scheduled dispatches will run in-process")
		q := queue.NewInMemoryQueue()
		if err := queue.StartDispatchSubscriber(context.Background(), q, emails); err != nil {
			log.WithError(err).Fatal("failed to start in-process dispatch subscriber")
		}
		return q
	}
	return rq
}

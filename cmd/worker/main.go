// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/mailtrail-backend/internal/config"
	"github.com/unclebandit/mailtrail-backend/internal/db"
	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/queue"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
	"github.com/unclebandit/mailtrail-backend/internal/service"
	"github.com/unclebandit/mailtrail-backend/internal/transport"
)

// The worker consumes scheduled campaign dispatch jobs published by the API
// server and sends them through the same dispatcher.
func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		log.Warn("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

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

	rq, err := queue.NewRabbitMQQueue(cfg.AMQPURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to RabbitMQ")
	}
	defer rq.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queue.StartDispatchSubscriber(ctx, rq, emailService); err != nil {
		log.WithError(err).Fatal("failed to subscribe to dispatch queue")
	}

	log.Info("Worker running, waiting for dispatch jobs...")

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigchan
	log.Infof("Caught signal %v: terminating", sig)
	cancel()
}

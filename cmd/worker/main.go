package main

import (
	"settlement-service/internal/config"
	"settlement-service/internal/logger"
	"settlement-service/internal/worker"

	"github.com/hibiken/asynq"
)

func main() {
	// Load env
	config.LoadEnv("../../.env", ".env")
	cfg := config.Load()
	log := logger.New(cfg.AppName+"-worker", cfg.LogLevel)

	// Mailer
	var mailer worker.Mailer = &worker.LogMailer{Log: log}
	smtp := &worker.SMTPMailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if smtp.Configured() {
		mailer = smtp
	} else {
		log.Warn("SMTP is not configured, emails will only be logged")
	}

	// Redis
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

	log.Info("Starting Asynq Worker...")
	if err := worker.StartWorker(redisOpt, mailer, log); err != nil {
		log.WithError(err).Fatal("Worker stopped")
	}
}

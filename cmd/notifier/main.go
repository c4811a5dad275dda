// The notifier drains otp.requested events and delivers the codes by mail.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/niveshmitr/gateway/internal/config"
	"github.com/niveshmitr/gateway/internal/log"
	"github.com/niveshmitr/gateway/internal/mail"
	"github.com/niveshmitr/gateway/internal/queue"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Env == "prod")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.Exchange, cfg.Queue, cfg.BindKey)
	if err != nil {
		logger.Fatal("rabbit consumer init", zap.Error(err))
	}
	defer cons.Close()

	sender := mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier up",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue),
		zap.String("key", cfg.BindKey),
		zap.Int("workers", cfg.Concurrency))

	if err := cons.Consume(ctx, cfg.Concurrency, func(b []byte) error {
		var ev queue.OTPRequested
		if err := json.Unmarshal(b, &ev); err != nil {
			// malformed payload, drop rather than requeue forever
			logger.Error("bad event payload", zap.Error(err))
			return nil
		}
		subject, body := mail.OTPMessage(ev.Code)
		if err := sender.Send(ev.Email, subject, body); err != nil {
			logger.Error("mail send failed", zap.String("to", ev.Email), zap.Error(err))
			return err
		}
		logger.Info("otp mail sent", zap.String("to", ev.Email))
		return nil
	}); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}

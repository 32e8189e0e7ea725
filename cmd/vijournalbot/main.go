package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vigliag/vijournalbot/internal/bot"
	"github.com/vigliag/vijournalbot/internal/config"
	"github.com/vigliag/vijournalbot/internal/httpserver"
	"github.com/vigliag/vijournalbot/internal/mail"
	"github.com/vigliag/vijournalbot/internal/repository"
	"github.com/vigliag/vijournalbot/internal/service"
	"github.com/vigliag/vijournalbot/internal/session"
)

func main() {
	sendRecap := flag.Bool("send-recap", false, "mail the weekly recap to every user now and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, cfg.DebugSQL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	userRepo := repository.NewUserRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	updateRepo := repository.NewUpdateRepository(db)

	digest, err := mail.NewDigest()
	if err != nil {
		log.Fatalf("digest: %v", err)
	}
	var mailer service.Mailer
	if cfg.SMTP.Enabled() {
		mailer = mail.NewSMTPMailer(cfg.SMTP.Server, cfg.SMTP.Port, cfg.SMTP.Login, cfg.SMTP.Password)
	} else {
		log.Println("[info] VIJOURNALBOT_SMTP_SERVER not set, weekly recap mails disabled")
	}
	recapSvc := service.NewRecapService(userRepo, updateRepo, digest, mailer)

	if *sendRecap {
		if _, err := recapSvc.SendAll(ctx, time.Now()); err != nil {
			log.Fatalf("weekly recap: %v", err)
		}
		return
	}

	telegramBot, err := bot.New(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	sessions := session.NewRegistry()
	flowSvc := service.NewFlowService(sessions, userRepo, questionRepo, updateRepo, telegramBot, cfg.Password, cfg.DefaultReminder)
	reminderSvc := service.NewReminderService(userRepo, flowSvc, time.Now())

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval("reminder sweep", cfg.ReminderInterval, func(ctx context.Context, now time.Time) error {
		_, err := reminderSvc.Sweep(ctx, now)
		return err
	}); err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}
	if _, err := scheduler.ScheduleDaily("weekly recap", cfg.RecapTime, func(ctx context.Context, now time.Time) error {
		_, err := recapSvc.Run(ctx, now)
		return err
	}); err != nil {
		log.Fatalf("schedule recap: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpserver.New(sqlDB, httpserver.StatusSource{
				Sessions:  sessions.Len,
				LastSweep: reminderSvc.LastSweep,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("[info] status server listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Println("Journal bot started.")
	if err := telegramBot.Start(ctx, flowSvc); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

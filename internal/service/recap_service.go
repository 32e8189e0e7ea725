package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vigliag/vijournalbot/internal/mail"
	"github.com/vigliag/vijournalbot/internal/model"
)

const (
	recapSubject = "Your weekly journal entries"
	recapWindow  = 7 * 24 * time.Hour
)

// DigestRenderer turns a week of entries into a mail body.
type DigestRenderer interface {
	Render(user model.User, days []mail.DayEntries, start, end time.Time) (string, error)
}

// Mailer delivers a plain text mail.
type Mailer interface {
	Send(address, subject, text string) error
}

// RecapService mails each user the entries of the last seven days.
type RecapService struct {
	users    UserStore
	updates  UpdateStore
	renderer DigestRenderer
	mailer   Mailer
	weekday  time.Weekday
}

// NewRecapService builds a recap that fires on Sundays. A nil mailer renders
// digests without delivering them.
func NewRecapService(users UserStore, updates UpdateStore, renderer DigestRenderer, mailer Mailer) *RecapService {
	return &RecapService{
		users:    users,
		updates:  updates,
		renderer: renderer,
		mailer:   mailer,
		weekday:  time.Sunday,
	}
}

// Run is the daily check: it only sends on the recap weekday.
func (s *RecapService) Run(ctx context.Context, now time.Time) (int, error) {
	if now.Weekday() != s.weekday {
		return 0, nil
	}
	return s.SendAll(ctx, now)
}

// SendAll mails the digest to every user with an email address. A failure
// for one user does not stop the others.
func (s *RecapService) SendAll(ctx context.Context, now time.Time) (int, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ok, err := s.sendOne(ctx, user, now)
		if err != nil {
			log.Printf("weekly recap for chat %d: %v", user.ChatID, err)
			errs = append(errs, fmt.Errorf("chat %d: %w", user.ChatID, err))
			continue
		}
		if ok {
			sent++
		}
	}
	log.Printf("[info] weekly recap sent=%d users=%d", sent, len(users))
	return sent, errors.Join(errs...)
}

func (s *RecapService) sendOne(ctx context.Context, user model.User, now time.Time) (bool, error) {
	start := now.Add(-recapWindow)
	updates, err := s.updates.ListSince(ctx, user.ChatID, start)
	if err != nil {
		return false, err
	}

	text, err := s.renderer.Render(user, mail.GroupByDay(updates, now.Location()), start, now)
	if err != nil {
		return false, err
	}

	if user.Email == "" || s.mailer == nil {
		return false, nil
	}
	log.Printf("[info] sending weekly recap to %s", user.Email)
	if err := s.mailer.Send(user.Email, recapSubject, text); err != nil {
		return false, err
	}
	return true, nil
}

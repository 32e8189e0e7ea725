package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vigliag/vijournalbot/internal/model"
)

// RoundStarter begins a questioning round for a chat.
type RoundStarter interface {
	StartRound(ctx context.Context, chatID int64) error
}

// ReminderService runs the periodic sweep that starts a round for every user
// whose reminder time elapsed since the previous sweep.
type ReminderService struct {
	users  UserStore
	rounds RoundStarter

	mu        sync.Mutex
	lastSweep time.Time
}

func NewReminderService(users UserStore, rounds RoundStarter, startedAt time.Time) *ReminderService {
	return &ReminderService{users: users, rounds: rounds, lastSweep: startedAt}
}

// Sweep notifies users with a reminder time in (lastSweep, now], comparing
// times of day only. A window that crosses midnight selects nobody.
// The previous sweep time only advances when the user query succeeds.
func (s *ReminderService) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	after, upTo := model.TimeOfDayOf(s.lastSweep), model.TimeOfDayOf(now)
	users, err := s.users.ListReminderBetween(ctx, after, upTo)
	if err != nil {
		return 0, err
	}

	var errs []error
	notified := 0
	for _, user := range users {
		if err := s.rounds.StartRound(ctx, user.ChatID); err != nil {
			log.Printf("remind chat %d: %v", user.ChatID, err)
			errs = append(errs, fmt.Errorf("chat %d: %w", user.ChatID, err))
			continue
		}
		notified++
	}
	if notified > 0 {
		log.Printf("[info] reminder sweep %s-%s notified=%d", after, upTo, notified)
	}

	s.lastSweep = now
	return notified, errors.Join(errs...)
}

func (s *ReminderService) LastSweep() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSweep
}

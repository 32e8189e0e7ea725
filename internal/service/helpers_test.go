package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/vigliag/vijournalbot/internal/model"
	"github.com/vigliag/vijournalbot/internal/repository"
	"github.com/vigliag/vijournalbot/internal/session"
)

const testPassword = "correctpass"

type sentMessage struct {
	chatID int64
	text   string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingSender) Send(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

// take returns the texts sent so far and forgets them.
func (r *recordingSender) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	texts := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		texts = append(texts, m.text)
	}
	r.sent = nil
	return texts
}

type testEnv struct {
	db        *gorm.DB
	users     *repository.UserRepository
	questions *repository.QuestionRepository
	updates   *repository.UpdateRepository
	sessions  *session.Registry
	sender    *recordingSender
	flow      *FlowService
	clock     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "journal.db"), false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		questions: repository.NewQuestionRepository(db),
		updates:   repository.NewUpdateRepository(db),
		sessions:  session.NewRegistry(),
		sender:    &recordingSender{},
		clock:     time.Date(2024, time.March, 6, 21, 0, 0, 0, time.UTC),
	}
	env.flow = NewFlowService(env.sessions, env.users, env.questions, env.updates, env.sender,
		testPassword, model.NewTimeOfDay(20, 30))
	env.flow.now = func() time.Time { return env.clock }
	return env
}

// say delivers text from chatID and returns the replies.
func (e *testEnv) say(t *testing.T, chatID int64, text string) []string {
	t.Helper()
	if err := e.flow.Handle(context.Background(), Message{ChatID: chatID, Text: text}); err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return e.sender.take()
}

func (e *testEnv) count(t *testing.T, table interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(table).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (e *testEnv) allUpdates(t *testing.T) []model.Update {
	t.Helper()
	var updates []model.Update
	if err := e.db.Order("id ASC").Find(&updates).Error; err != nil {
		t.Fatalf("list updates: %v", err)
	}
	return updates
}

func (e *testEnv) mustUser(t *testing.T, chatID int64, reminder *model.TimeOfDay, email string) {
	t.Helper()
	user := model.User{ChatID: chatID, ReminderTime: reminder, Email: email}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func (e *testEnv) mustQuestion(t *testing.T, chatID int64, text string) model.Question {
	t.Helper()
	q := model.Question{UserID: chatID, Enabled: true, Text: text}
	if err := e.questions.Create(context.Background(), &q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func equalTexts(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func tod(hour, minute int) *model.TimeOfDay {
	t := model.NewTimeOfDay(hour, minute)
	return &t
}

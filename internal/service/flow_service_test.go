package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vigliag/vijournalbot/internal/model"
)

func TestUnauthorizedChatGetsPrompt(t *testing.T) {
	env := newTestEnv(t)

	for _, text := range []string{
		"hello", "/questions", "/add Hello?", "/del 1", "/stop", "/ask",
		"/email me@example.com", "/email", "/reminder 07:00", "/help", "/unknown",
	} {
		got := env.say(t, 1, text)
		if !equalTexts(got, []string{msgUnauthenticated}) {
			t.Errorf("%q: replies = %q", text, got)
		}
	}

	if n := env.count(t, &model.User{}); n != 0 {
		t.Errorf("users = %d, want 0", n)
	}
	if n := env.count(t, &model.Question{}); n != 0 {
		t.Errorf("questions = %d, want 0", n)
	}
	if n := env.count(t, &model.Update{}); n != 0 {
		t.Errorf("updates = %d, want 0", n)
	}
}

func TestEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if got := env.say(t, 5, "/start wrongpass"); !equalTexts(got, []string{msgNotAuthenticated}) {
		t.Fatalf("wrong password replies = %q", got)
	}
	if n := env.count(t, &model.User{}); n != 0 {
		t.Fatalf("users after rejected start = %d", n)
	}

	if got := env.say(t, 5, "/start "+testPassword); !equalTexts(got, []string{msgAuthenticated}) {
		t.Fatalf("start replies = %q", got)
	}
	user, err := env.users.FindByChatID(ctx, 5)
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.ReminderTime == nil || *user.ReminderTime != model.NewTimeOfDay(20, 30) {
		t.Fatalf("reminder time = %v, want 20:30", user.ReminderTime)
	}

	if got := env.say(t, 5, "/add Hello?"); !equalTexts(got, []string{msgQuestionAdded, "1: Hello?"}) {
		t.Fatalf("add replies = %q", got)
	}
	if got := env.say(t, 5, "/ask"); !equalTexts(got, []string{"Hello?"}) {
		t.Fatalf("ask replies = %q", got)
	}
	if got := env.say(t, 5, "fine"); !equalTexts(got, []string{msgAllAnswered}) {
		t.Fatalf("answer replies = %q", got)
	}

	updates := env.allUpdates(t)
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if u.Text != "fine" || u.UserID != 5 || u.QuestionID == nil || *u.QuestionID != 1 {
		t.Fatalf("unexpected update %+v", u)
	}
	if !u.Timestamp.Equal(env.clock) {
		t.Fatalf("timestamp = %v, want %v", u.Timestamp, env.clock)
	}
}

func TestStartWithoutPasswordIsRejected(t *testing.T) {
	env := newTestEnv(t)
	if got := env.say(t, 1, "/start"); !equalTexts(got, []string{msgNotAuthenticated}) {
		t.Fatalf("replies = %q", got)
	}
	if got := env.say(t, 1, "/start CorrectPass"); !equalTexts(got, []string{msgNotAuthenticated}) {
		t.Fatalf("case-insensitive match accepted: %q", got)
	}
	if n := env.count(t, &model.User{}); n != 0 {
		t.Fatalf("users = %d", n)
	}
}

func TestStartKeepsExistingUser(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 3, tod(7, 0), "me@example.com")

	env.say(t, 3, "/start "+testPassword)

	user, err := env.users.FindByChatID(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if *user.ReminderTime != model.NewTimeOfDay(7, 0) || user.Email != "me@example.com" {
		t.Fatalf("existing user overwritten: %+v", user)
	}
}

func TestKnownUserIsAuthorizedFromStore(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 9, nil, "")

	if got := env.say(t, 9, "dear diary"); !equalTexts(got, []string{msgLogged}) {
		t.Fatalf("replies = %q", got)
	}
}

func TestRoundAsksInOrderThenLogsFreeForm(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, 1, "/start "+testPassword)
	q1 := env.mustQuestion(t, 1, "How did you sleep?")
	q2 := env.mustQuestion(t, 1, "What did you eat?")
	env.mustQuestion(t, 2, "someone else's question")

	if got := env.say(t, 1, "/ask"); !equalTexts(got, []string{q1.Text}) {
		t.Fatalf("ask = %q", got)
	}
	if got := env.say(t, 1, "well"); !equalTexts(got, []string{q2.Text}) {
		t.Fatalf("after first answer = %q", got)
	}
	if got := env.say(t, 1, "pasta"); !equalTexts(got, []string{msgAllAnswered}) {
		t.Fatalf("after last answer = %q", got)
	}
	if got := env.say(t, 1, "random thought"); !equalTexts(got, []string{msgLogged}) {
		t.Fatalf("free-form = %q", got)
	}

	updates := env.allUpdates(t)
	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}
	if *updates[0].QuestionID != q1.ID || *updates[1].QuestionID != q2.ID {
		t.Fatalf("answers reference wrong questions: %v %v", *updates[0].QuestionID, *updates[1].QuestionID)
	}
	if updates[2].QuestionID != nil {
		t.Fatalf("free-form entry references question %d", *updates[2].QuestionID)
	}
}

func TestMessageIDIsStored(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")

	if err := env.flow.Handle(context.Background(), Message{ChatID: 1, Text: "note", MessageID: 77}); err != nil {
		t.Fatal(err)
	}
	updates := env.allUpdates(t)
	if len(updates) != 1 || updates[0].MessageID == nil || *updates[0].MessageID != 77 {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestStopReturnsToIdle(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	env.mustQuestion(t, 1, "one")
	env.mustQuestion(t, 1, "two")

	env.say(t, 1, "/ask")
	if got := env.say(t, 1, "/stop"); !equalTexts(got, []string{msgStopped}) {
		t.Fatalf("stop = %q", got)
	}
	if got := env.say(t, 1, "just text"); !equalTexts(got, []string{msgLogged}) {
		t.Fatalf("after stop = %q", got)
	}
	if u := env.allUpdates(t); u[0].QuestionID != nil {
		t.Fatal("message after /stop was logged as an answer")
	}

	// Stopping while idle is harmless.
	if got := env.say(t, 1, "/stop"); !equalTexts(got, []string{msgStopped}) {
		t.Fatalf("second stop = %q", got)
	}
}

func TestAskWithoutQuestions(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")

	if got := env.say(t, 1, "/ask"); !equalTexts(got, []string{msgNoQuestionsYet}) {
		t.Fatalf("ask = %q", got)
	}
	if got := env.say(t, 1, "/questions"); !equalTexts(got, []string{msgNoQuestions}) {
		t.Fatalf("questions = %q", got)
	}
}

func TestAddRequiresText(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")

	got := env.say(t, 1, "/add   ")
	if len(got) != 1 || !strings.HasPrefix(got[0], "Usage:") {
		t.Fatalf("replies = %q", got)
	}
	if n := env.count(t, &model.Question{}); n != 0 {
		t.Fatalf("questions = %d", n)
	}
}

func TestDelDisablesAnsweredQuestion(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	answered := env.mustQuestion(t, 1, "answered")
	fresh := env.mustQuestion(t, 1, "fresh")

	env.say(t, 1, "/ask")
	env.say(t, 1, "yes")
	env.say(t, 1, "/stop")

	got := env.say(t, 1, "/del 1")
	if !equalTexts(got, []string{msgQuestionDeleted, "2: fresh"}) {
		t.Fatalf("del answered = %q", got)
	}
	var kept model.Question
	if err := env.db.First(&kept, answered.ID).Error; err != nil {
		t.Fatalf("answered question was removed: %v", err)
	}
	if kept.Enabled {
		t.Fatal("answered question still enabled")
	}

	got = env.say(t, 1, "/del 2")
	if !equalTexts(got, []string{msgQuestionDeleted, msgNoQuestions}) {
		t.Fatalf("del fresh = %q", got)
	}
	var n int64
	env.db.Model(&model.Question{}).Where("id = ?", fresh.ID).Count(&n)
	if n != 0 {
		t.Fatal("unanswered question was not deleted")
	}
}

func TestDelPendingQuestionLeavesRound(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	env.mustQuestion(t, 1, "How are you?")

	env.say(t, 1, "/ask")
	if got := env.say(t, 1, "/del 1"); !equalTexts(got, []string{msgQuestionDeleted, msgNoQuestions}) {
		t.Fatalf("del = %q", got)
	}
	if got := env.say(t, 1, "good"); !equalTexts(got, []string{msgLogged}) {
		t.Fatalf("after del = %q", got)
	}
	updates := env.allUpdates(t)
	if len(updates) != 1 || updates[0].QuestionID != nil {
		t.Fatalf("updates = %+v, want one free-form entry", updates)
	}
}

func TestDelCurrentQuestionAsksNext(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	env.mustQuestion(t, 1, "first")
	second := env.mustQuestion(t, 1, "second")

	env.say(t, 1, "/ask")
	got := env.say(t, 1, "/del 1")
	if !equalTexts(got, []string{msgQuestionDeleted, "2: second", "second"}) {
		t.Fatalf("del = %q", got)
	}
	if got := env.say(t, 1, "fine"); !equalTexts(got, []string{msgAllAnswered}) {
		t.Fatalf("answer = %q", got)
	}
	updates := env.allUpdates(t)
	if len(updates) != 1 || updates[0].QuestionID == nil || *updates[0].QuestionID != second.ID {
		t.Fatalf("updates = %+v, want an answer to %d", updates, second.ID)
	}
}

func TestDelQueuedQuestionIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	first := env.mustQuestion(t, 1, "first")
	env.mustQuestion(t, 1, "second")
	third := env.mustQuestion(t, 1, "third")

	env.say(t, 1, "/ask")
	got := env.say(t, 1, "/del 2")
	if !equalTexts(got, []string{msgQuestionDeleted, "1: first\n3: third"}) {
		t.Fatalf("del = %q", got)
	}
	if got := env.say(t, 1, "a"); !equalTexts(got, []string{"third"}) {
		t.Fatalf("first answer = %q", got)
	}
	if got := env.say(t, 1, "b"); !equalTexts(got, []string{msgAllAnswered}) {
		t.Fatalf("second answer = %q", got)
	}

	updates := env.allUpdates(t)
	if len(updates) != 2 {
		t.Fatalf("updates = %d", len(updates))
	}
	for i, want := range []uint{first.ID, third.ID} {
		if q := updates[i].QuestionID; q == nil || *q != want {
			t.Errorf("update %d question = %v, want %d", i, q, want)
		}
	}
}

func TestQuestionListOneLinePerQuestion(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	env.mustQuestion(t, 1, "How did you sleep?")
	env.mustQuestion(t, 2, "someone else's question")
	env.mustQuestion(t, 1, "What did you eat?")

	want := "1: How did you sleep?\n3: What did you eat?"
	if got := env.say(t, 1, "/questions"); !equalTexts(got, []string{want}) {
		t.Fatalf("questions = %q, want %q", got, want)
	}
}

func TestDelErrors(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	env.mustUser(t, 2, nil, "")
	env.mustQuestion(t, 2, "not yours")

	tests := []struct {
		text string
		want string
	}{
		{"/del 42", "Question not found"},
		{"/del 1", "Question not found"},
		{"/del abc", "Usage: /del <id>"},
		{"/del", "Usage: /del <id>"},
	}
	for _, tt := range tests {
		if got := env.say(t, 1, tt.text); !equalTexts(got, []string{tt.want}) {
			t.Errorf("%q: replies = %q, want %q", tt.text, got, tt.want)
		}
	}
	if n := env.count(t, &model.Question{}); n != 1 {
		t.Fatalf("questions = %d, want 1", n)
	}
}

func TestEmail(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")

	if got := env.say(t, 1, "/email"); !equalTexts(got, []string{"No email set, use /email <address>"}) {
		t.Fatalf("empty email = %q", got)
	}
	if got := env.say(t, 1, "/email me@example.com"); !equalTexts(got, []string{msgEmailUpdated}) {
		t.Fatalf("set email = %q", got)
	}
	if got := env.say(t, 1, "/email"); !equalTexts(got, []string{"Current mail: me@example.com"}) {
		t.Fatalf("show email = %q", got)
	}
}

func TestReminderCommand(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, 1, "/start "+testPassword)

	steps := []struct {
		text string
		want string
	}{
		{"/reminder", "Daily reminder at 20:30"},
		{"/reminder 7:05", "Daily reminder set to 07:05"},
		{"/reminder", "Daily reminder at 07:05"},
		{"/reminder 25:00", "Usage: /reminder HH:MM or /reminder off"},
		{"/reminder off", "Daily reminder disabled"},
		{"/reminder", "No daily reminder set"},
	}
	for _, step := range steps {
		if got := env.say(t, 1, step.text); !equalTexts(got, []string{step.want}) {
			t.Fatalf("%q: replies = %q, want %q", step.text, got, step.want)
		}
	}
}

func TestUnknownCommandWhenAuthorized(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	if got := env.say(t, 1, "/frobnicate now"); !equalTexts(got, []string{msgUnknownCommand}) {
		t.Fatalf("replies = %q", got)
	}
	if n := env.count(t, &model.Update{}); n != 0 {
		t.Fatal("unknown command was logged")
	}
}

type failingUpdates struct {
	UpdateStore
}

func (failingUpdates) Create(context.Context, *model.Update) error {
	return errors.New("disk full")
}

func TestStoreFailureKeepsQuestionPending(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, 1, nil, "")
	env.mustQuestion(t, 1, "How are you?")
	env.say(t, 1, "/ask")

	env.flow.updates = failingUpdates{env.updates}
	err := env.flow.Handle(context.Background(), Message{ChatID: 1, Text: "good"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
	if got := env.sender.take(); !equalTexts(got, []string{msgGenericError}) {
		t.Fatalf("replies = %q", got)
	}

	env.flow.updates = env.updates
	if got := env.say(t, 1, "good"); !equalTexts(got, []string{msgAllAnswered}) {
		t.Fatalf("retry = %q", got)
	}
	if u := env.allUpdates(t); len(u) != 1 || u[0].QuestionID == nil {
		t.Fatalf("updates = %+v", u)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text  string
		cmd   string
		args  string
		isCmd bool
	}{
		{"hello", "", "", false},
		{"/ask", "ask", "", true},
		{"/add Hello there?", "add", "Hello there?", true},
		{"/add@vijournalbot  spaced  ", "add", "spaced", true},
		{"/del\n3", "del", "3", true},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		cmd, args, ok := parseCommand(tt.text)
		if cmd != tt.cmd || args != tt.args || ok != tt.isCmd {
			t.Errorf("parseCommand(%q) = %q, %q, %v", tt.text, cmd, args, ok)
		}
	}
}

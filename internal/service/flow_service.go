package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vigliag/vijournalbot/internal/model"
	"github.com/vigliag/vijournalbot/internal/session"
)

const (
	msgUnauthenticated  = "Unauthenticated, run /start <password>"
	msgNotAuthenticated = "Not Authenticated"
	msgAuthenticated    = "Succesfully authenticated. Send messages to be logged in your journal"
	msgLogged           = "Logged"
	msgAllAnswered      = "You've answered all questions!"
	msgNoQuestions      = "No questions"
	msgNoQuestionsYet   = "No questions defined, add one with /add <text>"
	msgStopped          = "asking stopped"
	msgQuestionAdded    = "Question added"
	msgQuestionDeleted  = "Question deleted"
	msgEmailUpdated     = "Email updated"
	msgUnknownCommand   = "Unknown command, see /help"
	msgGenericError     = "There was an error, sorry"
)

const helpText = "Send any message to log it in your journal.\n" +
	"/ask - answer your questions now\n" +
	"/stop - stop asking questions\n" +
	"/questions - list your questions\n" +
	"/add <text> - add a question\n" +
	"/del <id> - remove a question\n" +
	"/email [address] - show or set the weekly recap address\n" +
	"/reminder [HH:MM|off] - show or set the daily reminder"

// userReplies maps recoverable per-command failures to what the user is told.
var userReplies = []struct {
	err  error
	text string
}{
	{ErrQuestionNotFound, "Question not found"},
	{ErrNoEmail, "No email set, use /email <address>"},
	{ErrUserNotFound, msgUnauthenticated},
}

// Message is an inbound chat message.
type Message struct {
	ChatID    int64
	Text      string
	MessageID int
}

type handlerFunc func(ctx context.Context, s *session.Session, msg Message, args string) error

// FlowService decides how each inbound message is interpreted: as the answer
// to the pending question, as a free-form entry, or as a command.
type FlowService struct {
	sessions        *session.Registry
	users           UserStore
	questions       QuestionStore
	updates         UpdateStore
	sender          Sender
	password        string
	defaultReminder model.TimeOfDay
	now             func() time.Time
	commands        map[string]handlerFunc
}

func NewFlowService(sessions *session.Registry, users UserStore, questions QuestionStore, updates UpdateStore,
	sender Sender, password string, defaultReminder model.TimeOfDay) *FlowService {
	f := &FlowService{
		sessions:        sessions,
		users:           users,
		questions:       questions,
		updates:         updates,
		sender:          sender,
		password:        password,
		defaultReminder: defaultReminder,
		now:             time.Now,
	}
	f.commands = map[string]handlerFunc{
		"start":     f.handleStart,
		"help":      f.requireAuth(f.handleHelp),
		"ask":       f.requireAuth(f.handleAsk),
		"stop":      f.requireAuth(f.handleStop),
		"questions": f.requireAuth(f.handleQuestionList),
		"add":       f.requireAuth(f.handleAddQuestion),
		"del":       f.requireAuth(f.handleDelQuestion),
		"email":     f.requireAuth(f.handleEmail),
		"reminder":  f.requireAuth(f.handleReminder),
	}
	return f
}

// Handle processes one inbound message. Messages for the same chat are
// serialized through the chat's session.
func (f *FlowService) Handle(ctx context.Context, msg Message) error {
	s := f.sessions.Acquire(msg.ChatID)
	defer s.Release()

	handler, args := f.route(msg.Text)
	err := handler(ctx, s, msg, args)
	if err == nil {
		return nil
	}

	for _, r := range userReplies {
		if errors.Is(err, r.err) {
			return f.send(ctx, msg.ChatID, r.text)
		}
	}

	if sendErr := f.send(ctx, msg.ChatID, msgGenericError); sendErr != nil {
		log.Printf("send error notice to %d: %v", msg.ChatID, sendErr)
	}
	return err
}

// StartRound queues the user's enabled questions and asks the first one.
func (f *FlowService) StartRound(ctx context.Context, chatID int64) error {
	s := f.sessions.Acquire(chatID)
	defer s.Release()
	return f.startRound(ctx, chatID, s)
}

func (f *FlowService) route(text string) (handlerFunc, string) {
	cmd, args, ok := parseCommand(text)
	if !ok {
		return f.requireAuth(f.handleText), ""
	}
	if h, found := f.commands[cmd]; found {
		return h, args
	}
	return f.requireAuth(f.handleUnknown), args
}

// requireAuth gates h behind an authorized session, looking the user up in
// the store on first use.
func (f *FlowService) requireAuth(h handlerFunc) handlerFunc {
	return func(ctx context.Context, s *session.Session, msg Message, args string) error {
		if err := f.authorize(ctx, msg.ChatID, s); err != nil {
			return err
		}
		if !s.Authorized() {
			return f.send(ctx, msg.ChatID, msgUnauthenticated)
		}
		return h(ctx, s, msg, args)
	}
}

func (f *FlowService) authorize(ctx context.Context, chatID int64, s *session.Session) error {
	if s.Authorized() {
		return nil
	}
	_, err := f.users.FindByChatID(ctx, chatID)
	switch {
	case err == nil:
		s.Authorize()
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("authorize chat %d: %w", chatID, err)
	}
}

func (f *FlowService) handleStart(ctx context.Context, s *session.Session, msg Message, args string) error {
	var secret string
	if fields := strings.Fields(args); len(fields) > 0 {
		secret = fields[0]
	}
	if secret != f.password {
		log.Printf("[info] rejected /start from chat %d", msg.ChatID)
		return f.send(ctx, msg.ChatID, msgNotAuthenticated)
	}

	_, created, err := f.users.EnsureUser(ctx, msg.ChatID, f.defaultReminder)
	if err != nil {
		return err
	}
	s.Authorize()
	log.Printf("[info] chat %d authenticated new=%t", msg.ChatID, created)
	return f.send(ctx, msg.ChatID, msgAuthenticated)
}

func (f *FlowService) handleText(ctx context.Context, s *session.Session, msg Message, _ string) error {
	current, asking := s.Current()

	update := model.Update{
		UserID:    msg.ChatID,
		Timestamp: f.now(),
		Text:      msg.Text,
	}
	if msg.MessageID != 0 {
		id := msg.MessageID
		update.MessageID = &id
	}
	if asking {
		id := current.ID
		update.QuestionID = &id
	}
	if err := f.updates.Create(ctx, &update); err != nil {
		return err
	}

	if !asking {
		return f.send(ctx, msg.ChatID, msgLogged)
	}
	s.Advance()
	return f.askOne(ctx, msg.ChatID, s)
}

func (f *FlowService) handleAsk(ctx context.Context, s *session.Session, msg Message, _ string) error {
	return f.startRound(ctx, msg.ChatID, s)
}

func (f *FlowService) handleStop(ctx context.Context, s *session.Session, msg Message, _ string) error {
	s.SetQuestions(nil)
	return f.send(ctx, msg.ChatID, msgStopped)
}

func (f *FlowService) handleQuestionList(ctx context.Context, _ *session.Session, msg Message, _ string) error {
	return f.sendQuestionList(ctx, msg.ChatID)
}

func (f *FlowService) handleAddQuestion(ctx context.Context, _ *session.Session, msg Message, args string) error {
	if args == "" {
		return f.send(ctx, msg.ChatID, "Usage: /add <question text>")
	}
	question := model.Question{UserID: msg.ChatID, Enabled: true, Text: args}
	if err := f.questions.Create(ctx, &question); err != nil {
		return err
	}
	log.Printf("[info] question added id=%d chat=%d", question.ID, msg.ChatID)
	if err := f.send(ctx, msg.ChatID, msgQuestionAdded); err != nil {
		return err
	}
	return f.sendQuestionList(ctx, msg.ChatID)
}

func (f *FlowService) handleDelQuestion(ctx context.Context, s *session.Session, msg Message, args string) error {
	id, err := strconv.ParseUint(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return f.send(ctx, msg.ChatID, "Usage: /del <id>")
	}

	disabled, err := f.questions.Remove(ctx, msg.ChatID, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("delete question %d: %w", id, ErrQuestionNotFound)
	}
	if err != nil {
		return err
	}
	log.Printf("[info] question removed id=%d chat=%d disabled=%t", id, msg.ChatID, disabled)

	// A removed question is never asked again, even mid-round.
	current, asking := s.Current()
	wasCurrent := asking && current.ID == uint(id)
	s.Remove(uint(id))

	if err := f.send(ctx, msg.ChatID, msgQuestionDeleted); err != nil {
		return err
	}
	if err := f.sendQuestionList(ctx, msg.ChatID); err != nil {
		return err
	}
	if wasCurrent && s.Pending() > 0 {
		return f.askOne(ctx, msg.ChatID, s)
	}
	return nil
}

func (f *FlowService) handleEmail(ctx context.Context, _ *session.Session, msg Message, args string) error {
	if args != "" {
		if err := f.users.SetEmail(ctx, msg.ChatID, args); err != nil {
			return userLookupErr(err)
		}
		return f.send(ctx, msg.ChatID, msgEmailUpdated)
	}

	user, err := f.users.FindByChatID(ctx, msg.ChatID)
	if err != nil {
		return userLookupErr(err)
	}
	if user.Email == "" {
		return ErrNoEmail
	}
	return f.send(ctx, msg.ChatID, "Current mail: "+user.Email)
}

func (f *FlowService) handleReminder(ctx context.Context, _ *session.Session, msg Message, args string) error {
	switch strings.ToLower(args) {
	case "":
		user, err := f.users.FindByChatID(ctx, msg.ChatID)
		if err != nil {
			return userLookupErr(err)
		}
		if user.ReminderTime == nil {
			return f.send(ctx, msg.ChatID, "No daily reminder set")
		}
		return f.send(ctx, msg.ChatID, "Daily reminder at "+user.ReminderTime.String())
	case "off":
		if err := f.users.SetReminderTime(ctx, msg.ChatID, nil); err != nil {
			return userLookupErr(err)
		}
		return f.send(ctx, msg.ChatID, "Daily reminder disabled")
	}

	at, err := model.ParseTimeOfDay(args)
	if err != nil {
		return f.send(ctx, msg.ChatID, "Usage: /reminder HH:MM or /reminder off")
	}
	if err := f.users.SetReminderTime(ctx, msg.ChatID, &at); err != nil {
		return userLookupErr(err)
	}
	return f.send(ctx, msg.ChatID, "Daily reminder set to "+at.String())
}

func (f *FlowService) handleHelp(ctx context.Context, _ *session.Session, msg Message, _ string) error {
	return f.send(ctx, msg.ChatID, helpText)
}

func (f *FlowService) handleUnknown(ctx context.Context, _ *session.Session, msg Message, _ string) error {
	return f.send(ctx, msg.ChatID, msgUnknownCommand)
}

func (f *FlowService) startRound(ctx context.Context, chatID int64, s *session.Session) error {
	questions, err := f.questions.ListEnabled(ctx, chatID)
	if err != nil {
		return err
	}
	s.SetQuestions(questions)
	if len(questions) == 0 {
		return f.send(ctx, chatID, msgNoQuestionsYet)
	}
	return f.askOne(ctx, chatID, s)
}

func (f *FlowService) askOne(ctx context.Context, chatID int64, s *session.Session) error {
	question, ok := s.Current()
	if !ok {
		return f.send(ctx, chatID, msgAllAnswered)
	}
	return f.send(ctx, chatID, question.Text)
}

func (f *FlowService) sendQuestionList(ctx context.Context, chatID int64) error {
	questions, err := f.questions.ListEnabled(ctx, chatID)
	if err != nil {
		return err
	}
	return f.send(ctx, chatID, formatQuestionList(questions))
}

func (f *FlowService) send(ctx context.Context, chatID int64, text string) error {
	return f.sender.Send(ctx, chatID, text)
}

func formatQuestionList(questions []model.Question) string {
	if len(questions) == 0 {
		return msgNoQuestions
	}
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		lines = append(lines, fmt.Sprintf("%d: %s", q.ID, q.Text))
	}
	return strings.Join(lines, "\n")
}

func userLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

// parseCommand splits "/cmd@bot args" into its parts.
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest := text, ""
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		head, rest = text[:i], text[i+1:]
	}
	cmd = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", "", false
	}
	return cmd, strings.TrimSpace(rest), true
}

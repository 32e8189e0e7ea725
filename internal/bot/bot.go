package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vigliag/vijournalbot/internal/service"
)

// Handler consumes inbound chat messages.
type Handler interface {
	Handle(ctx context.Context, msg service.Message) error
}

// Bot is the Telegram transport: it long-polls updates and sends replies.
type Bot struct {
	api *tgbotapi.BotAPI
}

func New(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{api: api}, nil
}

// Start begins polling updates until ctx is cancelled. Updates are handled
// one at a time in arrival order.
func (b *Bot) Start(ctx context.Context, handler Handler) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg, ok := toMessage(update)
		if !ok {
			continue
		}
		if err := handler.Handle(ctx, msg); err != nil {
			log.Printf("handle message from %d: %v", msg.ChatID, err)
		}
	}

	return ctx.Err()
}

// Send implements service.Sender.
func (b *Bot) Send(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// toMessage keeps text messages only; stickers, photos and edits are ignored.
func toMessage(update tgbotapi.Update) (service.Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return service.Message{}, false
	}
	if m.IsCommand() {
		log.Printf("[info] command from %d: /%s", m.Chat.ID, m.Command())
	}
	return service.Message{
		ChatID:    m.Chat.ID,
		Text:      m.Text,
		MessageID: m.MessageID,
	}, true
}

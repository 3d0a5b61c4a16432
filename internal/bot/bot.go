package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/example/reviewbot/internal/ai"
	"github.com/example/reviewbot/internal/excel"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/internal/scheduler"
	"github.com/example/reviewbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxUploadSize limits imported documents
const maxUploadSize = 10 << 20

// sessionIdleTTL is how long an inactive chat keeps its session
const sessionIdleTTL = 24 * time.Hour

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// sender is the part of the Telegram API the bot uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// FileAdmin covers file operations outside review planning
type FileAdmin interface {
	Delete(ctx context.Context, id int64) error
}

// TranslationStore keeps assistant output on words
type TranslationStore interface {
	SaveTranslation(ctx context.Context, fileID int64, text, action string, tr models.Translation) (*models.Word, error)
}

// ManualChecker sends today's reminder for one file on demand
type ManualChecker interface {
	RunManualCheck(ctx context.Context, fileID int64) (bool, error)
}

// Deps are the services the bot talks to
type Deps struct {
	Manager      *review.Manager
	Files        FileAdmin
	Translations TranslationStore
	Importer     *excel.Importer
	Engine       ai.Engine // nil disables /explain
	Checker      ManualChecker
	IsAdmin      func(chatID int64) bool
	NotifyChatID int64
	Logger       *slog.Logger
}

// chatSession is the state of one chat; mu serializes its updates.
// queue, draining and lastSeen are guarded by Bot.mu.
type chatSession struct {
	mu             sync.Mutex
	review         *review.Session
	awaitingUpload bool

	queue    []tgbotapi.Update
	draining bool
	lastSeen time.Time
}

// Bot represents the Telegram bot application
type Bot struct {
	api    sender
	deps   Deps
	logger *slog.Logger
	http   *http.Client
	now    func() time.Time

	mu       sync.Mutex
	sessions map[int64]*chatSession
	wg       sync.WaitGroup
}

// New creates a bot on top of an authorized API client
func New(api sender, deps Deps) *Bot {
	if deps.IsAdmin == nil {
		deps.IsAdmin = func(int64) bool { return true }
	}
	return &Bot{
		api:      api,
		deps:     deps,
		logger:   deps.Logger,
		http:     &http.Client{Timeout: time.Minute},
		now:      time.Now,
		sessions: make(map[int64]*chatSession),
	}
}

// SetChecker wires the reminder scheduler. Call it before Run.
func (b *Bot) SetChecker(c ManualChecker) {
	b.deps.Checker = c
}

// NewAPI authorizes against Telegram
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// Run polls updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context, api *tgbotapi.BotAPI) error {
	b.logger.Info("authorized", slog.String("account", api.Self.UserName))

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.enqueue(ctx, update)
		}
	}
}

// enqueue queues an update behind earlier ones from the same chat. Each chat
// is drained by at most one goroutine, so its updates run in arrival order.
func (b *Bot) enqueue(ctx context.Context, update tgbotapi.Update) {
	chatID, ok := updateChatID(update)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sessionLocked(chatID)
	s.queue = append(s.queue, update)
	if s.draining {
		return
	}
	s.draining = true
	b.wg.Add(1)
	go b.drain(ctx, s)
}

func (b *Bot) drain(ctx context.Context, s *chatSession) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.lastSeen = b.now()
			b.mu.Unlock()
			return
		}
		update := s.queue[0]
		s.queue = s.queue[1:]
		b.mu.Unlock()

		b.HandleUpdate(ctx, update)
	}
}

func updateChatID(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

// session returns the state of a chat, creating it on first use
func (b *Bot) session(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionLocked(chatID)
}

// sessionLocked is session with b.mu held. Creating a session evicts chats
// that have been idle for longer than sessionIdleTTL.
func (b *Bot) sessionLocked(chatID int64) *chatSession {
	now := b.now()
	s, ok := b.sessions[chatID]
	if !ok {
		for id, old := range b.sessions {
			if !old.draining && len(old.queue) == 0 && now.Sub(old.lastSeen) > sessionIdleTTL {
				delete(b.sessions, id)
			}
		}
		s = &chatSession{review: b.deps.Manager.NewSession(now)}
		b.sessions[chatID] = s
	}
	s.lastSeen = now
	return s
}

// HandleUpdate dispatches one update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		chatID int64
		err    error
	)

	switch {
	case update.Message != nil && update.Message.Chat != nil:
		chatID = update.Message.Chat.ID
		s := b.session(chatID)
		s.mu.Lock()
		err = b.handleMessage(ctx, s, update.Message)
		s.mu.Unlock()
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		s := b.session(chatID)
		s.mu.Lock()
		err = b.HandleCallback(ctx, s, update.CallbackQuery)
		s.mu.Unlock()
	default:
		return
	}

	if err != nil {
		b.logger.Error("update failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		b.reply(chatID, "❌ "+userMessage(err))
	}
}

func (b *Bot) handleMessage(ctx context.Context, s *chatSession, message *tgbotapi.Message) error {
	if message.IsCommand() {
		return b.HandleCommand(ctx, s, message)
	}
	if message.Document != nil {
		if !s.awaitingUpload {
			b.reply(message.Chat.ID, "Use /import before sending a word list.")
			return nil
		}
		return b.handleDocument(ctx, s, message)
	}
	b.reply(message.Chat.ID, "I don't understand. Use /help to see the commands.")
	return nil
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(_ context.Context, r scheduler.Reminder) error {
	if b.deps.NotifyChatID == 0 {
		b.logger.Debug("no reminder chat configured", slog.Int64("file_id", r.FileID))
		return nil
	}

	text := fmt.Sprintf("📅 %s, %s\nNew words: %d\nReviews: %d", r.FileName, r.Date, r.NewWords, r.ReviewWords)
	msg := tgbotapi.NewMessage(b.deps.NotifyChatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "Open " + r.FileName, CallbackData: fmt.Sprintf("%s%d", callbackFile, r.FileID)}},
	})
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	b.logger.Info("reminder sent", slog.Int64("file_id", r.FileID), slog.String("date", r.Date))
	return nil
}

// download fetches an uploaded Telegram document
func (b *Bot) download(ctx context.Context, doc *tgbotapi.Document) ([]byte, error) {
	if doc.FileSize > maxUploadSize {
		return nil, fmt.Errorf("file is too large (%d bytes)", doc.FileSize)
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxUploadSize+1))
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", slog.Any("error", err))
	}
}

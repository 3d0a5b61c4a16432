package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/reviewbot/internal/database"
	"github.com/example/reviewbot/internal/excel"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/internal/scheduler"
	"github.com/example/reviewbot/internal/strategy"
	"github.com/example/reviewbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatID = 1

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests int
	fileURL  string
	// rejectMarkup fails every message that sets a parse mode
	rejectMarkup bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		if f.rejectMarkup && msg.ParseMode != "" {
			return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
		}
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, msg := range f.sent {
		out[i] = msg.Text
	}
	return out
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("no file")
	}
	return f.fileURL, nil
}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeChecker struct{ checked []int64 }

func (c *fakeChecker) RunManualCheck(_ context.Context, fileID int64) (bool, error) {
	c.checked = append(c.checked, fileID)
	return false, nil
}

type fakeEngine struct{}

func (fakeEngine) Complete(_ context.Context, action, text string) (models.Translation, error) {
	return models.Translation{Text: action + ": " + text, Format: "markdown"}, nil
}

type testEnv struct {
	bot     *Bot
	api     *fakeAPI
	files   *database.FileRepository
	words   *database.WordRepository
	checker *fakeChecker
}

func newTestEnv(t *testing.T, admin bool) *testEnv {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files := database.NewFileRepository(db)
	words := database.NewWordRepository(db)
	seed := make([]models.Word, 30)
	for i := range seed {
		seed[i] = models.Word{Text: fmt.Sprintf("w%d", i+1), Translation: "t"}
	}
	_, err = files.Create(context.Background(), "verbs.xlsx", "english", seed)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := &fakeAPI{}
	checker := &fakeChecker{}
	b := New(api, Deps{
		Manager:      review.NewManager(files, words, review.Defaults{DailyWords: 10, StrategyID: strategy.Standard}, logger),
		Files:        files,
		Translations: words,
		Importer:     excel.NewImporter(files),
		Engine:       fakeEngine{},
		Checker:      checker,
		IsAdmin:      func(int64) bool { return admin },
		Logger:       logger,
	})
	return &testEnv{bot: b, api: api, files: files, words: words, checker: checker}
}

func command(text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func (e *testEnv) run(t *testing.T, text string) string {
	t.Helper()
	e.bot.HandleUpdate(context.Background(), command(text))
	return e.api.last(t).Text
}

func TestStartShowsMenu(t *testing.T) {
	env := newTestEnv(t, false)

	assert.Contains(t, env.run(t, "/start"), "Welcome")
	msg := env.api.last(t)
	assert.Equal(t, int64(chatID), msg.ChatID)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, msg.ReplyMarkup)

	assert.Contains(t, env.run(t, "/help"), "/intervals")
	assert.Contains(t, env.run(t, "/nope"), "Unknown command")
}

func TestListAndSelectFile(t *testing.T) {
	env := newTestEnv(t, false)

	assert.Contains(t, env.run(t, "/files"), "1. verbs.xlsx (30 words)")

	text := env.run(t, "/file 1")
	assert.Contains(t, text, "verbs.xlsx: 30 words")
	assert.Contains(t, text, "Strategy: Standard")
	assert.Contains(t, text, "  5 │   5 min")

	assert.Equal(t, "❌ Not found.", env.run(t, "/file 7"))
	assert.Equal(t, "❌ usage: /file <id>", env.run(t, "/file"))
}

func TestPlanRequiresFile(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, "❌ Select a file first with /files.", env.run(t, "/plan"))
}

func TestPlanAndSave(t *testing.T) {
	env := newTestEnv(t, false)
	env.run(t, "/file 1")

	assert.Equal(t, "Daily words: 15", env.run(t, "/daily 15"))
	assert.Contains(t, env.run(t, "/daily 0"), "❌ studyplan: invalid argument")

	text := env.run(t, "/plan week")
	assert.True(t, strings.HasPrefix(text, "<b>This Week</b>"))
	assert.Equal(t, tgbotapi.ModeHTML, env.api.last(t).ParseMode)
	assert.Contains(t, text, "30 new words")

	assert.Contains(t, env.run(t, "/intervals 0 84"), "Custom intervals set.")
	assert.Contains(t, env.run(t, "/intervals 0 200"), "❌ interval: invalid argument")

	assert.Equal(t, "💾 Review settings saved for verbs.xlsx: 15 words a day, intervals 0, 2 d.", env.run(t, "/save"))

	file, err := env.files.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, file.ReviewSettings)
	assert.Equal(t, 15, file.ReviewSettings.DailyWords)
	assert.Equal(t, []int{0, 2880}, file.ReviewSettings.Interval)
}

func TestSelectStrategy(t *testing.T) {
	env := newTestEnv(t, false)

	assert.Contains(t, env.run(t, "/strategies"), "Standard (standard)")
	assert.Contains(t, env.run(t, "/strategy loose"), "Strategy: Loose")
	assert.Equal(t, "❌ Unknown strategy. Use /strategies to list them.", env.run(t, "/strategy nope"))
}

func TestWordSelection(t *testing.T) {
	env := newTestEnv(t, false)
	env.run(t, "/file 1")

	assert.Equal(t, "Study resumes after #20 w20.", env.run(t, "/word 20"))
	assert.Contains(t, env.run(t, "/plan month"), "10 new words")
	assert.Equal(t, "❌ No word with that index in this file.", env.run(t, "/word 99"))
	assert.Equal(t, "Study starts from the first word.", env.run(t, "/word"))
}

func TestDueAndReviewed(t *testing.T) {
	env := newTestEnv(t, false)
	env.run(t, "/file 1")

	assert.Equal(t, "🎉 Nothing to review right now.", env.run(t, "/due"))
	assert.Contains(t, env.run(t, "/reviewed 2"), "✅ w2 reviewed 1 times, next review ")

	w, err := env.words.GetByText(context.Background(), 1, "w2")
	require.NoError(t, err)
	assert.Equal(t, 1, w.ReviewCount)
	assert.NotNil(t, w.NextReview)
}

func TestAdminCommands(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, "❌ this command is only available for administrators", env.run(t, "/import"))
	assert.Equal(t, "❌ this command is only available for administrators", env.run(t, "/delete 1"))

	admin := newTestEnv(t, true)
	admin.run(t, "/file 1")
	assert.Equal(t, "🗑 File 1 deleted.", admin.run(t, "/delete 1"))
	assert.Equal(t, "❌ Select a file first with /files.", admin.run(t, "/plan"))
}

func TestImportDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "word,translation,pronunciation\napple,яблоко,\npear,груша,\napple,яблоко,\n")
	}))
	defer srv.Close()

	env := newTestEnv(t, true)
	env.api.fileURL = srv.URL

	upload := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileID: "doc", FileName: "fruit.csv", FileSize: 64},
	}}

	env.bot.HandleUpdate(context.Background(), upload)
	assert.Equal(t, "Use /import before sending a word list.", env.api.last(t).Text)

	env.run(t, "/import")
	env.bot.HandleUpdate(context.Background(), upload)
	text := env.api.last(t).Text
	assert.Contains(t, text, "✅ Imported fruit.csv as file 2")
	assert.Contains(t, text, "- Added: 2")
	assert.Contains(t, text, "- Duplicates skipped: 1")

	n, err := env.files.WordCount(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCallbacks(t *testing.T) {
	env := newTestEnv(t, false)

	env.bot.HandleUpdate(context.Background(), callback("file_1"))
	assert.Equal(t, 1, env.api.requests)
	assert.Contains(t, env.api.last(t).Text, "verbs.xlsx: 30 words")

	env.bot.HandleUpdate(context.Background(), callback(callbackRangeNext))
	assert.True(t, strings.HasPrefix(env.api.last(t).Text, "<b>This Week</b>"))

	env.bot.HandleUpdate(context.Background(), callback(callbackRangePrev))
	assert.True(t, strings.HasPrefix(env.api.last(t).Text, "<b>Today</b>"))

	env.bot.HandleUpdate(context.Background(), callback("strategy_daily"))
	assert.Contains(t, env.api.last(t).Text, "Strategy: Daily")

	env.bot.HandleUpdate(context.Background(), callback("bogus"))
	assert.Equal(t, "⚠️ Unknown action", env.api.last(t).Text)
	assert.Equal(t, 5, env.api.requests)
}

func TestExplainStoresTranslation(t *testing.T) {
	env := newTestEnv(t, false)

	assert.Equal(t, "explain: apple", env.run(t, "/explain explain apple"))
	assert.Equal(t, tgbotapi.ModeMarkdown, env.api.last(t).ParseMode)
	_, err := env.words.GetByText(context.Background(), 1, "apple")
	assert.ErrorIs(t, err, database.ErrNotFound, "nothing is stored without a file")

	env.run(t, "/file 1")
	env.run(t, "/explain translate red apple")

	w, err := env.words.GetByText(context.Background(), 1, "red apple")
	require.NoError(t, err)
	assert.Equal(t, "translate: red apple", w.Translations["translate"].Text)
	assert.Equal(t, "red apple", env.bot.session(chatID).review.Word.Text)

	assert.Contains(t, env.run(t, "/explain translate"), "❌ usage: /explain")
}

func TestRemind(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, "❌ Select a file first with /files.", env.run(t, "/remind"))

	env.run(t, "/file 1")
	assert.Contains(t, env.run(t, "/remind"), "Nothing planned for today")
	assert.Equal(t, []int64{1}, env.checker.checked)
}

func TestSendReminder(t *testing.T) {
	env := newTestEnv(t, false)
	r := scheduler.Reminder{FileID: 1, FileName: "verbs.xlsx", Date: "2024-01-03", NewWords: 10, ReviewWords: 20}

	require.NoError(t, env.bot.SendReminder(context.Background(), r))
	assert.Empty(t, env.api.sent)

	env.bot.deps.NotifyChatID = 42
	require.NoError(t, env.bot.SendReminder(context.Background(), r))
	msg := env.api.last(t)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "📅 verbs.xlsx, 2024-01-03\nNew words: 10\nReviews: 20", msg.Text)
}

func TestExplainFallsBackToPlainText(t *testing.T) {
	env := newTestEnv(t, false)
	env.api.rejectMarkup = true

	assert.Equal(t, "explain: *apple", env.run(t, "/explain explain *apple"))
	assert.Empty(t, env.api.last(t).ParseMode)
	assert.Len(t, env.api.sent, 1)
}

func TestUpdatesRunInArrivalOrder(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	var want []string
	for n := 1; n <= 50; n++ {
		env.bot.enqueue(ctx, command(fmt.Sprintf("/daily %d", n)))
		want = append(want, fmt.Sprintf("Daily words: %d", n))
	}
	env.bot.enqueue(ctx, tgbotapi.Update{}) // no chat, dropped
	env.bot.wg.Wait()

	assert.Equal(t, want, env.api.texts())
	assert.Equal(t, 50, env.bot.session(chatID).review.DailyWords)
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	env := newTestEnv(t, false)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	env.bot.now = func() time.Time { return now }

	env.bot.session(1)
	now = now.Add(time.Hour)
	env.bot.session(2)
	assert.Len(t, env.bot.sessions, 2)

	now = now.Add(sessionIdleTTL)
	env.bot.session(3)
	assert.Len(t, env.bot.sessions, 2, "chat 1 has been idle too long")
	assert.NotContains(t, env.bot.sessions, int64(1))
	assert.Contains(t, env.bot.sessions, int64(2))
}

func TestPlanShowsCurrentDay(t *testing.T) {
	env := newTestEnv(t, false)
	start := time.Date(2024, 10, 9, 9, 0, 0, 0, time.UTC)
	require.NoError(t, env.files.UpdateReviewSettings(context.Background(), 1, models.ReviewSettings{
		DailyWords: 2,
		Interval:   []int{0, 1440},
		StartTime:  start,
	}))
	env.bot.now = func() time.Time { return start.AddDate(0, 0, 10) }

	env.run(t, "/file 1")
	text := env.run(t, "/plan today")
	assert.Contains(t, text, "<pre>10-19 ")
	assert.NotContains(t, text, "10-09")
}

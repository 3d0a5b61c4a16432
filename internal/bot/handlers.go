package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/example/reviewbot/internal/ai"
	"github.com/example/reviewbot/internal/database"
	"github.com/example/reviewbot/internal/excel"
	"github.com/example/reviewbot/internal/interval"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/internal/strategy"
	"github.com/example/reviewbot/internal/studyplan"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes
const (
	callbackMainMenu   = "main_menu"
	callbackFiles      = "files"
	callbackStrategies = "strategies"
	callbackPlan       = "plan"
	callbackSave       = "save"
	callbackDue        = "due"
	callbackRangePrev  = "range_prev"
	callbackRangeNext  = "range_next"
	callbackFile       = "file_"
	callbackStrategy   = "strategy_"
	callbackReviewed   = "reviewed_"
)

const dueLimit = 10

var errAdminOnly = errors.New("this command is only available for administrators")

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, s *chatSession, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	args := strings.Fields(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(chatID)
	case "help":
		return b.handleHelp(chatID)
	case "files":
		return b.handleListFiles(ctx, chatID)
	case "file":
		id, err := intArg(args, "/file <id>")
		if err != nil {
			return err
		}
		return b.handleSelectFile(ctx, s, chatID, int64(id))
	case "strategies":
		return b.handleListStrategies(s, chatID)
	case "strategy":
		if len(args) != 1 {
			return fmt.Errorf("usage: /strategy <id>")
		}
		return b.handleSelectStrategy(s, chatID, args[0])
	case "intervals":
		return b.handleIntervals(s, chatID, args)
	case "daily":
		n, err := intArg(args, "/daily <words per day>")
		if err != nil {
			return err
		}
		return b.handleDailyWords(s, chatID, n)
	case "word":
		return b.handleWord(s, chatID, args)
	case "plan":
		if len(args) > 0 {
			r, err := studyplan.ParseRange(strings.Join(args, " "))
			if err != nil {
				return err
			}
			s.review.Range = r
		}
		return b.handlePlan(ctx, s, chatID)
	case "save":
		return b.handleSave(ctx, s, chatID)
	case "due":
		return b.handleDue(ctx, s, chatID)
	case "reviewed":
		idx, err := intArg(args, "/reviewed <word index>")
		if err != nil {
			return err
		}
		return b.handleReviewed(ctx, s, chatID, idx)
	case "explain":
		return b.handleExplain(ctx, s, chatID, args)
	case "remind":
		return b.handleRemind(ctx, s, chatID)
	case "import":
		if !b.deps.IsAdmin(chatID) {
			return errAdminOnly
		}
		s.awaitingUpload = true
		b.reply(chatID, "Send an .xlsx or .csv file. Columns: word, translation, pronunciation; the first row is a header.")
		return nil
	case "delete":
		if !b.deps.IsAdmin(chatID) {
			return errAdminOnly
		}
		id, err := intArg(args, "/delete <file id>")
		if err != nil {
			return err
		}
		return b.handleDeleteFile(ctx, s, chatID, int64(id))
	default:
		b.reply(chatID, "Unknown command. Use /help to see the commands.")
		return nil
	}
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, s *chatSession, callback *tgbotapi.CallbackQuery) error {
	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", slog.Any("error", err))
	}

	chatID := callback.Message.Chat.ID
	data := callback.Data

	switch data {
	case callbackMainMenu:
		return b.handleStart(chatID)
	case callbackFiles:
		return b.handleListFiles(ctx, chatID)
	case callbackStrategies:
		return b.handleListStrategies(s, chatID)
	case callbackPlan:
		return b.handlePlan(ctx, s, chatID)
	case callbackSave:
		return b.handleSave(ctx, s, chatID)
	case callbackDue:
		return b.handleDue(ctx, s, chatID)
	case callbackRangePrev, callbackRangeNext:
		step := 1
		if data == callbackRangePrev {
			step = -1
		}
		b.deps.Manager.CycleRange(s.review, step)
		return b.handlePlan(ctx, s, chatID)
	}

	switch {
	case strings.HasPrefix(data, callbackFile):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, callbackFile), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid file id in callback data: %w", err)
		}
		return b.handleSelectFile(ctx, s, chatID, id)
	case strings.HasPrefix(data, callbackStrategy):
		return b.handleSelectStrategy(s, chatID, strings.TrimPrefix(data, callbackStrategy))
	case strings.HasPrefix(data, callbackReviewed):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, callbackReviewed))
		if err != nil {
			return fmt.Errorf("invalid word index in callback data: %w", err)
		}
		return b.handleReviewed(ctx, s, chatID, idx)
	}

	b.reply(chatID, "⚠️ Unknown action")
	return nil
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📂 Files", CallbackData: callbackFiles},
			{Text: "🧭 Strategies", CallbackData: callbackStrategies},
		},
		{
			{Text: "📈 Plan", CallbackData: callbackPlan},
			{Text: "🔁 Due words", CallbackData: callbackDue},
		},
	}
}

func (b *Bot) handleStart(chatID int64) error {
	text := "👋 Welcome to the review planner!\n\n" +
		"1. Pick a word file\n" +
		"2. Choose a review strategy or set your own intervals\n" +
		"3. Check the study plan and save it\n" +
		"4. Get a daily reminder of new words and reviews"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	b.send(msg)
	return nil
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 Commands\n\n" +
		"/files - list word files\n" +
		"/file <id> - select a file\n" +
		"/strategies - list review strategies\n" +
		"/strategy <id> - select a strategy\n" +
		fmt.Sprintf("/intervals <p1> <p2> ... - set custom intervals as slider positions 0-%d\n", interval.MaxPosition) +
		"/daily <n> - new words per day\n" +
		"/word <idx> - resume from a word; /word alone clears it\n" +
		"/plan [today|week|month] - show the study plan\n" +
		"/save - save the plan on the selected file\n" +
		"/due - words due for review\n" +
		"/reviewed <idx> - mark a word reviewed\n" +
		"/explain <" + strings.Join(ai.Actions(), "|") + "> <text> - ask the assistant\n" +
		"/remind - send today's reminder for the selected file\n" +
		"/import - upload a word list (admin)\n" +
		"/delete <id> - delete a file (admin)"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "⬅️ Back to menu", CallbackData: callbackMainMenu}},
	})
	b.send(msg)
	return nil
}

func (b *Bot) handleListFiles(ctx context.Context, chatID int64) error {
	files, err := b.deps.Manager.ListFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		b.reply(chatID, "No files yet. Use /import to upload a word list.")
		return nil
	}

	var text strings.Builder
	text.WriteString("📂 Files:\n\n")
	var buttons [][]MenuButton
	for _, f := range files {
		mark := ""
		if f.ReviewSettings != nil {
			mark = " ✅"
		}
		fmt.Fprintf(&text, "%d. %s (%d words)%s\n", f.ID, f.Name, f.WordCount, mark)
		buttons = append(buttons, []MenuButton{{Text: f.Name, CallbackData: fmt.Sprintf("%s%d", callbackFile, f.ID)}})
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	b.send(msg)
	return nil
}

func (b *Bot) handleSelectFile(ctx context.Context, s *chatSession, chatID, fileID int64) error {
	if err := b.deps.Manager.SelectFile(ctx, s.review, fileID); err != nil {
		return err
	}
	st, err := s.review.Strategy()
	if err != nil {
		return err
	}

	text := fmt.Sprintf("📂 %s: %d words\nStrategy: %s\nDaily words: %d\n\n%s",
		s.review.File.Name, s.review.TotalWords, st.Label, s.review.DailyWords, renderMarks(st))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "📈 Plan", CallbackData: callbackPlan}, {Text: "🧭 Strategies", CallbackData: callbackStrategies}},
	})
	b.send(msg)
	return nil
}

func (b *Bot) handleListStrategies(s *chatSession, chatID int64) error {
	var text strings.Builder
	text.WriteString("🧭 Strategies:\n\n")
	var buttons [][]MenuButton
	for _, st := range s.review.Registry.List() {
		current := ""
		if st.ID == s.review.StrategyID {
			current = " ◀"
		}
		fmt.Fprintf(&text, "%s (%s): %s%s\n", st.Label, st.ID, strings.Join(st.Labels(), ", "), current)
		buttons = append(buttons, []MenuButton{{Text: st.Label, CallbackData: callbackStrategy + st.ID}})
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	b.send(msg)
	return nil
}

func (b *Bot) handleSelectStrategy(s *chatSession, chatID int64, id string) error {
	st, err := b.deps.Manager.SelectStrategy(s.review, id)
	if err != nil {
		return err
	}
	b.reply(chatID, fmt.Sprintf("Strategy: %s\n\n%s", st.Label, renderMarks(st)))
	return nil
}

func (b *Bot) handleIntervals(s *chatSession, chatID int64, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: /intervals <p1> <p2> ... (positions 0-%d)", interval.MaxPosition)
	}
	positions := make([]int, len(args))
	for i, a := range args {
		p, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", interval.ErrInvalidArgument, a)
		}
		positions[i] = p
	}

	st, err := b.deps.Manager.ApplySliderPositions(s.review, positions)
	if err != nil {
		return err
	}
	b.reply(chatID, fmt.Sprintf("Custom intervals set.\n\n%s", renderMarks(st)))
	return nil
}

func (b *Bot) handleDailyWords(s *chatSession, chatID int64, n int) error {
	if err := b.deps.Manager.SetDailyWords(s.review, n); err != nil {
		return err
	}
	b.reply(chatID, fmt.Sprintf("Daily words: %d", n))
	return nil
}

func (b *Bot) handleWord(s *chatSession, chatID int64, args []string) error {
	if len(args) == 0 {
		b.deps.Manager.ClearWord(s.review)
		b.reply(chatID, "Study starts from the first word.")
		return nil
	}
	idx, err := intArg(args, "/word <idx>")
	if err != nil {
		return err
	}
	w, err := b.deps.Manager.SelectWordByIdx(s.review, idx)
	if err != nil {
		return err
	}
	b.reply(chatID, fmt.Sprintf("Study resumes after #%d %s.", w.Idx, w.Text))
	return nil
}

func (b *Bot) handlePlan(ctx context.Context, s *chatSession, chatID int64) error {
	plan, err := b.deps.Manager.Plan(ctx, s.review)
	if err != nil {
		return err
	}

	text := renderPlan(plan, s.review.Range, s.review.StartTime, b.now())
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "◀", CallbackData: callbackRangePrev}, {Text: s.review.Range.String(), CallbackData: callbackPlan}, {Text: "▶", CallbackData: callbackRangeNext}},
		{{Text: "💾 Save", CallbackData: callbackSave}},
	})
	b.send(msg)
	return nil
}

func (b *Bot) handleSave(ctx context.Context, s *chatSession, chatID int64) error {
	settings, err := b.deps.Manager.Save(ctx, s.review)
	if err != nil {
		return err
	}
	labels := make([]string, len(settings.Interval))
	for i, m := range settings.Interval {
		labels[i] = interval.MinutesToLabel(m)
	}
	b.reply(chatID, fmt.Sprintf("💾 Review settings saved for %s: %d words a day, intervals %s.",
		s.review.File.Name, settings.DailyWords, strings.Join(labels, ", ")))
	return nil
}

func (b *Bot) handleDue(ctx context.Context, s *chatSession, chatID int64) error {
	due, err := b.deps.Manager.DueWords(ctx, s.review, dueLimit)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		b.reply(chatID, "🎉 Nothing to review right now.")
		return nil
	}

	var text strings.Builder
	text.WriteString("🔁 Due for review:\n\n")
	var buttons [][]MenuButton
	for _, w := range due {
		fmt.Fprintf(&text, "#%d %s - %s\n", w.Idx, w.Text, w.Translation)
		buttons = append(buttons, []MenuButton{{Text: "✅ " + w.Text, CallbackData: fmt.Sprintf("%s%d", callbackReviewed, w.Idx)}})
	}
	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	b.send(msg)
	return nil
}

func (b *Bot) handleReviewed(ctx context.Context, s *chatSession, chatID int64, idx int) error {
	w, err := b.deps.Manager.MarkReviewed(ctx, s.review, idx)
	if err != nil {
		return err
	}
	b.reply(chatID, fmt.Sprintf("✅ %s reviewed %d times, next review %s.", w.Text, w.ReviewCount, w.NextReview.Format("2006-01-02 15:04")))
	return nil
}

func (b *Bot) handleExplain(ctx context.Context, s *chatSession, chatID int64, args []string) error {
	if b.deps.Engine == nil {
		b.reply(chatID, "The assistant is not configured.")
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: /explain <%s> <text>", strings.Join(ai.Actions(), "|"))
	}

	action, text := args[0], strings.Join(args[1:], " ")
	tr, err := b.deps.Engine.Complete(ctx, action, text)
	if err != nil {
		return err
	}
	if tr.Text == "" {
		b.reply(chatID, "No answer.")
		return nil
	}

	if s.review.File != nil && b.deps.Translations != nil {
		w, err := b.deps.Translations.SaveTranslation(ctx, s.review.File.ID, text, action, tr)
		if err != nil {
			b.logger.Warn("failed to store translation", slog.Any("error", err))
		} else {
			b.deps.Manager.SelectWord(s.review, *w)
		}
	}

	msg := tgbotapi.NewMessage(chatID, tr.Text)
	if tr.Format == "markdown" {
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, err := b.api.Send(msg)
		if err == nil {
			return nil
		}
		// Telegram rejects unbalanced markup
		b.logger.Warn("markdown answer rejected, sending plain text", slog.Any("error", err))
		msg.ParseMode = ""
	}
	b.send(msg)
	return nil
}

func (b *Bot) handleRemind(ctx context.Context, s *chatSession, chatID int64) error {
	if s.review.File == nil {
		return review.ErrNoFile
	}
	if b.deps.Checker == nil {
		b.reply(chatID, "Reminders are disabled.")
		return nil
	}
	sent, err := b.deps.Checker.RunManualCheck(ctx, s.review.File.ID)
	if err != nil {
		return err
	}
	if !sent {
		b.reply(chatID, "Nothing planned for today. Save a plan with /save first.")
	}
	return nil
}

func (b *Bot) handleDeleteFile(ctx context.Context, s *chatSession, chatID, fileID int64) error {
	if err := b.deps.Files.Delete(ctx, fileID); err != nil {
		return err
	}
	if s.review.File != nil && s.review.File.ID == fileID {
		s.review.File = nil
		s.review.Word = nil
		s.review.TotalWords = 0
	}
	b.reply(chatID, fmt.Sprintf("🗑 File %d deleted.", fileID))
	return nil
}

func (b *Bot) handleDocument(ctx context.Context, s *chatSession, message *tgbotapi.Message) error {
	s.awaitingUpload = false
	doc := message.Document

	data, err := b.download(ctx, doc)
	if err != nil {
		return err
	}

	result, err := b.deps.Importer.Import(ctx, excel.DefaultImportConfig(doc.FileName), bytes.NewReader(data))
	if err != nil {
		return err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "✅ Imported %s as file %d\n- Added: %d\n- Duplicates skipped: %d\n",
		doc.FileName, result.FileID, result.Created, result.Skipped)
	if len(result.Errors) > 0 {
		fmt.Fprintf(&text, "\n❌ Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			text.WriteString("- " + e + "\n")
		}
	}

	b.logger.Info("file imported", slog.Int64("file_id", result.FileID), slog.Int("words", result.Created))

	msg := tgbotapi.NewMessage(message.Chat.ID, text.String())
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "Open", CallbackData: fmt.Sprintf("%s%d", callbackFile, result.FileID)}},
	})
	b.send(msg)
	return nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return n, nil
}

// userMessage turns an error into text fit for the chat
func userMessage(err error) string {
	switch {
	case errors.Is(err, review.ErrNoFile):
		return "Select a file first with /files."
	case errors.Is(err, database.ErrNotFound):
		return "Not found."
	case errors.Is(err, review.ErrWordNotFound):
		return "No word with that index in this file."
	case errors.Is(err, strategy.ErrNotFound):
		return "Unknown strategy. Use /strategies to list them."
	case errors.Is(err, excel.ErrNoWords):
		return "The file has no words to import."
	case errors.Is(err, ai.ErrUnknownAction):
		return "Unknown action. Try one of: " + strings.Join(ai.Actions(), ", ")
	case errors.Is(err, errAdminOnly),
		errors.Is(err, interval.ErrInvalidArgument),
		errors.Is(err, studyplan.ErrInvalidArgument),
		strings.HasPrefix(err.Error(), "usage:"):
		return err.Error()
	default:
		return "Something went wrong. Please try again later."
	}
}

var _ TranslationStore = (*database.WordRepository)(nil)

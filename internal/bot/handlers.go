package bot

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"avylbot/core/buildinfo"
	coretelegram "avylbot/core/telegram"
	"avylbot/core/telegram/commands"
	"avylbot/core/telegram/format"
	tghelpers "avylbot/core/telegram/helpers"
	"avylbot/core/telegram/keyboard"
	"avylbot/internal/story"
)

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Познакомиться с ботом",
	})
	reg.RegisterCommand("/story", commands.Command{
		Handler:     a.handleStory,
		Description: "Выбрать главу истории",
		Aliases:     []string{"chapters"},
	})
	reg.RegisterCommand("/score", commands.Command{
		Handler:     a.handleScore,
		Description: "Мои очки и место в рейтинге",
	})
	reg.RegisterCommand("/top", commands.Command{
		Handler:     a.handleTop,
		Description: "Таблица лидеров",
	})
	reg.RegisterCommand("/progress", commands.Command{
		Handler:     a.handleProgress,
		Description: "Мои решённые задания",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "Как пользоваться ботом",
	})
	reg.RegisterCommand("/health", commands.Command{
		Handler:     a.handleHealth,
		Description: "Диагностика бота",
		AdminOnly:   true,
		Hidden:      true,
	})
}

// scoreName derives the durable scoring identity for a Telegram user.
func scoreName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	if name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName)); name != "" {
		return name
	}
	return fmt.Sprintf("id%d", u.ID)
}

func (a *App) chapterKeyboard() *tele.ReplyMarkup {
	chapters := a.engine.Catalog().Chapters()
	buttons := make([]keyboard.InlineBtn, 0, len(chapters))
	for _, ch := range chapters {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   ch.Title,
			Unique: cbChapter,
			Data:   ch.ID,
		})
	}
	return keyboard.InlineButtons(buttons)
}

func (a *App) handleStart(c tele.Context) error {
	text := "Исәнмесез! Здравствуйте!\n\n" +
		"Я проведу тебя через день в татарской деревне и научу первым фразам " +
		"на татарском. За правильные ответы ты получаешь очки-өчпочмаки.\n\n" +
		"Выбирай главу — и в путь!"
	return tghelpers.SendMD(c, text, a.chapterKeyboard())
}

func (a *App) handleStory(c tele.Context) error {
	return tghelpers.SendMD(c, "Выбери главу:", a.chapterKeyboard())
}

func (a *App) handleScore(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	stats, err := a.scores.Stats(ctx, scoreName(c.Sender()))
	if err != nil {
		_ = tghelpers.SendText(c, "Не получилось узнать счёт, попробуй чуть позже.")
		return err
	}
	text := fmt.Sprintf(
		"🥟 Твои очки: *%d*\nРешено заданий: %d",
		stats.TotalScore, stats.TotalSolved,
	)
	if stats.Rank > 0 {
		text += fmt.Sprintf("\nМесто в рейтинге: %d", stats.Rank)
	}
	return tghelpers.SendMD(c, text)
}

func (a *App) handleTop(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	entries, err := a.scores.Leaderboard(ctx, 10)
	if err != nil {
		_ = tghelpers.SendText(c, "Рейтинг сейчас недоступен, попробуй позже.")
		return err
	}
	if len(entries) == 0 {
		return tghelpers.SendText(c, "Рейтинг пока пуст — стань первым!")
	}
	var b strings.Builder
	b.WriteString("🏆 *Лучшие ученики:*\n\n")
	for i, e := range entries {
		// Usernames may contain markdown specials like underscores.
		name, err := format.EscapeMarkdown(e.Name, format.MarkdownV1)
		if err != nil {
			name = e.Name
		}
		fmt.Fprintf(&b, "%d. %s — %d 🥟\n", i+1, name, e.Score)
	}
	return tghelpers.SendMD(c, b.String())
}

func (a *App) handleProgress(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	tasks, err := a.scores.SolvedTasks(ctx, scoreName(c.Sender()))
	if err != nil {
		_ = tghelpers.SendText(c, "Не получилось открыть список заданий, попробуй позже.")
		return err
	}
	if len(tasks) == 0 {
		return tghelpers.SendText(c, "Решённых заданий пока нет. Начни главу: /story!")
	}
	var b strings.Builder
	b.WriteString("📜 Решённые задания:\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "• %s — %d 🥟 (%s)\n", a.taskLabel(t.TaskName), t.Cost, t.SolvedAt.Format("02.01.2006"))
	}
	return tghelpers.SendText(c, b.String())
}

// taskLabel turns a ledger key like "morning:3" into a readable chapter label.
func (a *App) taskLabel(taskName string) string {
	chapterID, idx, ok := strings.Cut(taskName, ":")
	if !ok {
		return taskName
	}
	ch, err := a.engine.Catalog().Chapter(chapterID)
	if err != nil {
		return taskName
	}
	return fmt.Sprintf("%s, шаг %s", ch.Title, idx)
}

func (a *App) handleHelp(c tele.Context) error {
	text := "Команды:\n" +
		"/story — выбрать главу истории\n" +
		"/score — твои очки\n" +
		"/top — таблица лидеров\n" +
		"/progress — решённые задания\n\n" +
		"Внутри главы отвечай на вопросы кнопками или текстом. " +
		"Неправильный ответ — не беда: пробуй снова, попыток сколько угодно."
	return tghelpers.SendText(c, text)
}

func (a *App) handleHealth(c tele.Context) error {
	senderErrors := uint64(0)
	if a.dispatcher != nil {
		senderErrors = a.dispatcher.ErrorCount()
	}
	text := fmt.Sprintf(
		"version: %s\ncommit: %s\nbuilt: %s\nsender errors: %d",
		buildinfo.Version, buildinfo.Commit, buildinfo.Date, senderErrors,
	)
	return tghelpers.SendText(c, text)
}

// handleSessionText feeds free text into the active narrative session.
func (a *App) handleSessionText(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	// The feedback gateway can take a few seconds; show typing meanwhile.
	tghelpers.Notify(c, tele.Typing)
	out, err := a.engine.Handle(ctx, user.ID, story.SubmitText{Text: c.Text()})
	return a.respond(c, user.ID, out, err)
}

func (a *App) handleUnknownText(c tele.Context) error {
	return tghelpers.SendText(c, "Сейчас нет активной главы. Начни с /story!")
}

// respond turns an engine outcome (or domain error) into user-facing messages.
// Recoverable domain errors are answered in chat and not propagated.
func (a *App) respond(c tele.Context, userID int64, out story.Outcome, err error) error {
	switch {
	case err == nil:
		return a.renderer.Outcome(c, userID, out)
	case errors.Is(err, story.ErrNoSession):
		return tghelpers.SendText(c, "Глава ещё не начата. Выбери её через /story.")
	case errors.Is(err, story.ErrStaleEvent):
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Эта кнопка уже неактуальна"})
		}
		return nil
	case errors.Is(err, story.ErrInvalidOption), errors.Is(err, story.ErrInvalidEvent):
		return tghelpers.SendText(c, "Сейчас я жду другой ответ — посмотри на последний вопрос.")
	case errors.Is(err, story.ErrChapterNotFound):
		_ = tghelpers.SendText(c, "Такой главы нет. Выбери из списка: /story.")
		return err
	default:
		_ = tghelpers.SendText(c, "Что-то пошло не так, попробуй ещё раз.")
		return err
	}
}

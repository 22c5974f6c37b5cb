package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tele "gopkg.in/telebot.v4"

	"avylbot/core/logger"
	tghelpers "avylbot/core/telegram/helpers"
	"avylbot/core/telegram/keyboard"
	"avylbot/internal/session"
	"avylbot/internal/story"
	"log/slog"
)

// Renderer turns engine outcomes into Telegram messages. Narrative messages
// are sent synchronously so their order matches the story; single-message
// command replies go through the async dispatcher helpers instead.
type Renderer struct {
	media    MediaConfig
	sessions session.Store
	// autoDelay is the pause between consecutive auto-advancing parts.
	autoDelay time.Duration
}

// NewRenderer builds a renderer over the configured media directories.
func NewRenderer(media MediaConfig, sessions session.Store) *Renderer {
	return &Renderer{
		media:     media,
		sessions:  sessions,
		autoDelay: 1500 * time.Millisecond,
	}
}

// Outcome presents the result of an engine call to the user.
func (r *Renderer) Outcome(c tele.Context, userID int64, out story.Outcome) error {
	if out.Feedback != "" {
		if err := c.Send(out.Feedback); err != nil {
			return err
		}
	}

	for _, p := range out.Auto {
		if err := r.renderPart(c, userID, p, 0, false); err != nil {
			return err
		}
		time.Sleep(r.autoDelay)
	}

	switch out.Kind {
	case story.Completed:
		return r.renderSummary(c, out.Summary)
	case story.Retry:
		if out.Next != nil {
			// Re-prompt without re-sending media the user has already seen.
			return r.renderPart(c, userID, *out.Next, out.NextIndex, true)
		}
		return nil
	default:
		if out.Next != nil {
			return r.renderPart(c, userID, *out.Next, out.NextIndex, false)
		}
		return nil
	}
}

func (r *Renderer) renderPart(c tele.Context, userID int64, p story.Part, idx int, retry bool) error {
	if !retry {
		r.sendMedia(c, userID, p)
	}
	if p.Text == "" {
		return nil
	}
	return c.Send(p.Text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: r.partKeyboard(p, idx),
	})
}

// partKeyboard builds the markup matching the part kind: a continue button,
// option buttons two per row, or a forced reply for free-text parts.
func (r *Renderer) partKeyboard(p story.Part, idx int) *tele.ReplyMarkup {
	switch p.Kind {
	case story.KindInfo:
		return keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "Дальше ➡️", Unique: cbNext},
		})
	case story.KindChoice:
		buttons := make([]keyboard.InlineBtn, 0, len(p.Options))
		for i, opt := range p.Options {
			buttons = append(buttons, keyboard.InlineBtn{
				Text:   opt.Label,
				Unique: cbOpt,
				Data:   fmt.Sprintf("%d|%d", idx, i),
			})
		}
		return keyboard.InlineButtonsNPerRow(buttons, 2)
	case story.KindText, story.KindPhrase, story.KindTeaRequest:
		return keyboard.ForceReply()
	}
	return nil
}

// sendMedia delivers the part's photo and voice note, skipping files already
// shown in this session and files missing on disk.
func (r *Renderer) sendMedia(c tele.Context, userID int64, p story.Part) {
	if p.Image != "" && r.markShown(userID, p.Image) {
		path := filepath.Join(r.media.ImagesDir, p.Image)
		if fileExists(path) {
			if err := c.Send(&tele.Photo{File: tele.FromDisk(path)}); err != nil {
				r.logMediaFailure(c, "photo", p.Image, err)
			}
		} else {
			r.logMediaMissing(c, "photo", path)
		}
	}
	if p.Voice != "" && r.markShown(userID, p.Voice) {
		path := filepath.Join(r.media.VoicesDir, p.Voice)
		if fileExists(path) {
			if err := c.Send(&tele.Voice{File: tele.FromDisk(path)}); err != nil {
				r.logMediaFailure(c, "voice", p.Voice, err)
			}
		} else {
			r.logMediaMissing(c, "voice", path)
		}
	}
}

// markShown records the media file in the session's shown set; false means it
// was already shown (or there is no session to track it).
func (r *Renderer) markShown(userID int64, file string) bool {
	fresh := false
	err := r.sessions.Update(userID, func(s *session.Session) {
		if !s.ShownMedia[file] {
			s.ShownMedia[file] = true
			fresh = true
		}
	})
	if err != nil {
		// No session (e.g. rendering after completion): send unconditionally.
		return true
	}
	return fresh
}

func (r *Renderer) renderSummary(c tele.Context, s *story.Summary) error {
	if s == nil {
		return nil
	}
	text := fmt.Sprintf(
		"🎉 Глава «%s» пройдена!\n\n"+
			"Очки за главу: *%d*\n"+
			"Правильных ответов: %d из %d (%.0f%%)",
		s.ChapterTitle, s.Score, s.Correct, s.Asked, s.SuccessRate,
	)
	if s.Stats.TotalScore > 0 || s.Stats.TotalSolved > 0 {
		text += fmt.Sprintf("\n\nВсего очков: %d 🥟\nРешено заданий: %d", s.Stats.TotalScore, s.Stats.TotalSolved)
		if s.Stats.Rank > 0 {
			text += fmt.Sprintf("\nМесто в рейтинге: %d", s.Stats.Rank)
		}
	}
	text += "\n\nПродолжить: /story"
	return c.Send(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
}

func (r *Renderer) logMediaFailure(c tele.Context, kind, file string, err error) {
	logger.Warn(tghelpers.BuildContext(c), "tg", "media.send_failed",
		slog.String("mode", kind),
		slog.String("payload", file),
		slog.String("err", err.Error()),
	)
}

func (r *Renderer) logMediaMissing(c tele.Context, kind, path string) {
	logger.Warn(tghelpers.BuildContext(c), "tg", "media.missing",
		slog.String("mode", kind),
		slog.String("payload", path),
	)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

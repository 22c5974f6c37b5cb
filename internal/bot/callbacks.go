package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	coretelegram "avylbot/core/telegram"
	"avylbot/core/telegram/callbacks"
	tghelpers "avylbot/core/telegram/helpers"
	"avylbot/internal/story"
)

const (
	cbChapter = "story_chapter"
	cbNext    = "story_next"
	cbOpt     = "story_opt"
)

func (a *App) registerCallbacks(reg *coretelegram.Registry) error {
	if err := reg.RegisterCallback(cbChapter, a.cbStartChapter); err != nil {
		return err
	}
	if err := reg.RegisterCallback(cbNext, a.cbContinue); err != nil {
		return err
	}
	return reg.RegisterCallback(cbOpt, a.cbSelectOption)
}

// cbStartChapter begins the chapter named in the callback payload.
func (a *App) cbStartChapter(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	chapterID := strings.TrimSpace(callbacks.CallbackPayload(c))
	// Collapse the chooser keyboard so old chapter buttons disappear.
	if ch, chErr := a.engine.Catalog().Chapter(chapterID); chErr == nil {
		_ = tghelpers.EditOrSendMD(c, fmt.Sprintf("📖 *%s*", ch.Title))
	}
	ctx := tghelpers.BuildContext(c)
	out, err := a.engine.Start(ctx, user.ID, chapterID, scoreName(user))
	return a.respond(c, user.ID, out, err)
}

// cbContinue advances a display-only part.
func (a *App) cbContinue(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	out, err := a.engine.Handle(ctx, user.ID, story.Continue{})
	return a.respond(c, user.ID, out, err)
}

// cbSelectOption answers a multiple-choice part. Payload is "part|option".
func (a *App) cbSelectOption(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	part, option, err := callbacks.PayloadTwoInt(c, "|")
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Эта кнопка устарела"})
	}
	ctx := tghelpers.BuildContext(c)
	out, handleErr := a.engine.Handle(ctx, user.ID, story.SelectOption{Part: part, Option: option})
	return a.respond(c, user.ID, out, handleErr)
}

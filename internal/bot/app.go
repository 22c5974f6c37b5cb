// Package bot is the delivery layer: it wires the narrative engine, the
// scoring and feedback gateways, and the Telegram transport together.
package bot

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"avylbot/core/bootstrap"
	corecmd "avylbot/core/cmd"
	coretelegram "avylbot/core/telegram"
	"avylbot/core/telegram/router"
	tgsender "avylbot/core/telegram/sender"
	"avylbot/internal/feedback"
	"avylbot/internal/scoring"
	"avylbot/internal/session"
	"avylbot/internal/story"
)

// App holds the assembled application.
type App struct {
	cfg        *Config
	db         *sqlx.DB
	sessions   *session.MemoryStore
	scores     *scoring.Repo
	engine     *story.Engine
	renderer   *Renderer
	dispatcher *tgsender.Dispatcher
}

// Load adapts LoadConfig to the cmd runner's carrier interface.
func Load(path string) (corecmd.ConfigCarrier, error) {
	return LoadConfig(path)
}

// Bootstrap initializes infrastructure and assembles the application.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("bot: unexpected config type %T", carrier)
	}

	catalog := story.DefaultCatalog()

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
		Seeders: []bootstrap.Seeder{
			scoring.TasksSeeder(catalog.Tasks()),
		},
	})
	if err != nil {
		return nil, err
	}

	scores := scoring.NewRepo(res.DB)

	var explainer story.Explainer
	if cfg.GigaChat.Enabled() {
		var translator *feedback.Translator
		if cfg.Translator.Enabled() {
			translator = feedback.NewTranslator(cfg.Translator)
		}
		explainer = feedback.NewGigaChat(cfg.GigaChat, translator)
	}

	sessions := session.NewMemoryStore()
	engine := story.NewEngine(catalog, sessions, &scoreGateway{repo: scores}, explainer)

	app := &App{
		cfg:      cfg,
		db:       res.DB,
		sessions: sessions,
		scores:   scores,
		engine:   engine,
	}
	app.renderer = NewRenderer(cfg.Media, sessions)
	return app, nil
}

// TelegramRunOptions builds the bot runtime configuration.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.SetCallbackNotFound(func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Эта кнопка устарела"})
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(&fsmAdapter{app: a}, reg, router.TextOptions{
		UnknownText: a.handleUnknownText,
	})...)

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.dispatcher = rt.Dispatcher
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}

// scoreGateway adapts the scoring repo to the engine's interface.
type scoreGateway struct {
	repo *scoring.Repo
}

func (g *scoreGateway) Award(ctx context.Context, scoreName, taskName string) (bool, error) {
	return g.repo.MarkSolved(ctx, scoreName, taskName)
}

func (g *scoreGateway) Stats(ctx context.Context, scoreName string) (story.Stats, error) {
	stats, err := g.repo.Stats(ctx, scoreName)
	if err != nil {
		return story.Stats{}, err
	}
	return story.Stats{
		TotalScore:  stats.TotalScore,
		TotalSolved: stats.TotalSolved,
		Rank:        stats.Rank,
	}, nil
}

// fsmAdapter lets the text router hand free text to the active session.
type fsmAdapter struct {
	app *App
}

func (f *fsmAdapter) InProgress(userID int64) bool {
	return f.app.sessions.InProgress(userID)
}

func (f *fsmAdapter) ManagerHandler(c tele.Context) error {
	return f.app.handleSessionText(c)
}

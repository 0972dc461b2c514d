// Package bot is the Telegram frontend of the tracker. Each chat holds its
// own API session; conversations such as login or ticket entry are kept in
// the Redis-backed state machine.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/handlers"
	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/client"
	errors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/idempotency"
	"github.com/Proton-105/blackjack-tracker/internal/middleware"
	"github.com/Proton-105/blackjack-tracker/internal/session"
	"github.com/Proton-105/blackjack-tracker/internal/state"
	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

// Deps are the collaborators of the bot. Idempotency and RateLimit may be nil.
type Deps struct {
	FSM         state.StateMachine
	Sessions    *session.Store
	API         *client.Client
	Idempotency idempotency.Manager
	RateLimit   handlers.Middleware
}

// Clients binds the shared API client to the session of each chat.
func (d Deps) Clients() handlers.Clients {
	return func(chatID int64) *client.Client {
		return d.API.WithTokens(d.Sessions.For(chatID))
	}
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	router     *Router
	errHandler *errors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Bot.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot update failed", slog.Any("error", err))
		},
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Bot.Listen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		router:     NewTrackerRouter(cfg, deps, errHandler, log),
		errHandler: errHandler,
	}

	b.registerTelebotHandlers()

	return b, nil
}

// Start publishes the command menu and runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	commands := make([]telebot.Command, 0, len(commandDescriptions))
	for _, cd := range commandDescriptions {
		commands = append(commands, telebot.Command{Text: cd.Command[1:], Description: cd.Description})
	}
	if err := b.telebot.SetCommands(commands); err != nil {
		b.log.Warn("failed to publish bot commands", slog.Any("error", err))
	}

	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// NewTrackerRouter registers every command, callback and conversation state
// of the tracker behind the middleware chain.
func NewTrackerRouter(cfg config.Config, deps Deps, errHandler *errors.Handler, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	fsm := deps.FSM
	clients := deps.Clients()
	kb := keyboard.NewBuilder(log)

	router := NewRouter(NewConversations(fsm, log), log)
	router.Use(
		ReplyOnError(errHandler),
		Recover(log),
		Trace(log),
		middleware.Metrics,
		middleware.CallbackOnce(deps.Idempotency, log),
		deps.RateLimit,
		withTimeout(cfg.API.Timeout),
	)

	router.Command(CommandStart, handlers.NewStartHandler(clients, log))
	router.Command(CommandLogin, handlers.NewLoginHandler(fsm, clients, log))
	router.Command(CommandRegister, handlers.NewRegisterHandler(fsm, clients, log))
	router.Command(CommandLogout, handlers.NewLogoutHandler(fsm, clients, log))
	router.Command(CommandCancel, handlers.NewCancelHandler(fsm, clients, log))
	router.Action(keyboard.ActionTicketCancel, handlers.HandleTicketCancel(fsm, log))
	router.Action(keyboard.ActionNoop, func(c telebot.Context) error { return c.Respond() })

	router.State(state.StateLoginUsername, handlers.LoginUsernameState(fsm))
	router.State(state.StateLoginPassword, handlers.LoginPasswordState(fsm, clients, log))
	router.State(state.StateRegisterUsername, handlers.RegisterUsernameState(fsm))
	router.State(state.StateRegisterPassword, handlers.RegisterPasswordState(fsm, log))
	router.State(state.StateRegisterConfirm, handlers.RegisterConfirmState(fsm, clients, log))
	router.State(state.StateTicketPrice, promptPrice(kb))

	// everything below needs a logged-in chat
	private := router.With(handlers.RequireSession(clients))

	private.Command(CommandDashboard, handlers.NewDashboardHandler(clients, log))
	private.Command(CommandTicket, handlers.NewTicketHandler(fsm, kb, log))
	private.Command(CommandHistory, handlers.NewHistoryHandler(clients, kb, log))
	private.Command(CommandWallet, handlers.NewWalletHandler(clients, log))

	private.Action(keyboard.ActionPrice, handlers.HandlePrice(fsm, log))
	private.Action(keyboard.ActionTicketSubmit, handlers.HandleTicketSubmit(fsm, clients, kb, log))
	private.Action(keyboard.ActionHistory, handlers.HandleHistoryPage(clients, kb, false, log))
	private.Action(keyboard.ActionHistoryMobile, handlers.HandleHistoryPage(clients, kb, true, log))
	private.Action(keyboard.ActionDelete, handlers.HandleDelete(clients, kb, log))

	private.State(state.StateTicketGames, handlers.TicketGamesState(fsm, kb))
	private.State(state.StateTicketReview, handlers.TicketReviewState(fsm, kb))

	router.Fallback(func(c telebot.Context) error {
		return c.Send("Unknown command. Send /start to see what I can do.")
	})

	return router
}

func promptPrice(kb *keyboard.Builder) handlers.Handler {
	return func(c telebot.Context) error {
		return c.Send("Choose the ticket price:", kb.PriceButtons())
	}
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}

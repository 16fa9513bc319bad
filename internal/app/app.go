// Package app assembles the quiz bot: configuration, bootstrap, and the
// Telegram wiring that feeds normalized events into the flow machine.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/wordbot/core/bootstrap"
	"github.com/m3rciful/wordbot/core/cmd"
	"github.com/m3rciful/wordbot/core/logger"
	coretelegram "github.com/m3rciful/wordbot/core/telegram"
	"github.com/m3rciful/wordbot/core/telegram/callbacks"
	"github.com/m3rciful/wordbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/wordbot/core/telegram/helpers"
	"github.com/m3rciful/wordbot/core/telegram/router"
	"github.com/m3rciful/wordbot/internal/flow"
	"github.com/m3rciful/wordbot/internal/history"
	"github.com/m3rciful/wordbot/internal/session"
	"github.com/m3rciful/wordbot/internal/surface"
	"github.com/m3rciful/wordbot/internal/wordservice"
)

const (
	serviceDownText = "The word service is unavailable right now. Please try again later."
	noSessionText   = "No active session. Send /start to begin."
	fallbackText    = "Use the buttons, or send /start."
)

const janitorInterval = time.Minute

// App holds the assembled bot.
type App struct {
	cfg       *Config
	db        *sqlx.DB
	machine   *flow.Machine
	transport *botTransport
}

// Bootstrap initializes infrastructure and builds the application.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	client := wordservice.New(cfg.WordService)
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Issuer:   client,
	})
	if err != nil {
		return nil, err
	}

	transport := &botTransport{}
	machine := flow.NewMachine(flow.Options{
		Sessions: session.NewStore(),
		Surfaces: surface.NewManager(transport),
		Backend:  client,
		Tokens:   wordservice.NewTokenProvider(client, res.BotToken),
		History:  history.NewRepository(res.DB),
		PageSize: cfg.WordService.PageSize,
	})

	return &App{
		cfg:       cfg,
		db:        res.DB,
		machine:   machine,
		transport: transport,
	}, nil
}

// TelegramRunOptions builds the runtime wiring: registry, middleware
// chain, routes, and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start a quiz session",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "End the current session",
	})
	reg.RegisterCommand("/sessions", commands.Command{
		Handler:     a.handleSessions,
		Description: "Report live session count",
		AdminOnly:   true,
		Hidden:      true,
	})

	for _, menuID := range []string{flow.MenuMain, flow.MenuWordsets, flow.MenuQuiz} {
		if err := reg.RegisterCallback(menuID, a.choiceHandler(menuID)); err != nil {
			return coretelegram.RunOptions{}, err
		}
	}
	reg.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendText(c, fallbackText)
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			a.startJanitor(ctx)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}

func (a *App) handleStart(c tele.Context) error {
	a.transport.Bind(c.Bot().(*tele.Bot))
	err := a.machine.OnEvent(tghelpers.BuildContext(c), c.Sender().ID, c.Chat().ID, flow.Event{
		Kind:      flow.EventStart,
		MessageID: inboundMessageID(c),
	})
	if errors.Is(err, flow.ErrTokenUnavailable) {
		return tghelpers.SendText(c, serviceDownText)
	}
	return err
}

func (a *App) handleCancel(c tele.Context) error {
	a.transport.Bind(c.Bot().(*tele.Bot))
	err := a.machine.OnEvent(tghelpers.BuildContext(c), c.Sender().ID, c.Chat().ID, flow.Event{
		Kind:      flow.EventCancel,
		MessageID: inboundMessageID(c),
	})
	if errors.Is(err, flow.ErrNoSession) {
		return tghelpers.SendText(c, noSessionText)
	}
	return err
}

func (a *App) handleSessions(c tele.Context) error {
	return tghelpers.SendText(c, fmt.Sprintf("Live sessions: %d", a.machine.Sessions().Len()))
}

// choiceHandler feeds one menu's callbacks into the machine. Payload args
// are decoded exactly once, here at the boundary.
func (a *App) choiceHandler(menuID string) tele.HandlerFunc {
	return func(c tele.Context) error {
		a.transport.Bind(c.Bot().(*tele.Bot))
		err := a.machine.OnEvent(tghelpers.BuildContext(c), c.Sender().ID, c.Chat().ID, flow.Event{
			Kind: flow.EventChoice,
			Menu: menuID,
			Args: callbacks.SplitArgs(callbacks.CallbackPayload(c)),
		})
		switch {
		case errors.Is(err, flow.ErrNoSession):
			return tghelpers.SendText(c, noSessionText)
		case errors.Is(err, flow.ErrBackendUnavailable):
			// The session survives a failed fetch; tell the user instead
			// of leaving the tap unanswered.
			return tghelpers.SendText(c, serviceDownText)
		}
		return err
	}
}

// startJanitor evicts idle sessions until shutdown. Disabled when the TTL
// is zero.
func (a *App) startJanitor(ctx context.Context) {
	ttl := time.Duration(a.cfg.Session.IdleTTLMinutes) * time.Minute
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.machine.Sessions().EvictIdle(ttl); n > 0 {
					logger.FLOW.Info("idle sessions evicted",
						slog.String("event", "flow.evict"),
						slog.Int("evicted", n),
					)
				}
			}
		}
	}()
}

func inboundMessageID(c tele.Context) int {
	if msg := c.Message(); msg != nil {
		return msg.ID
	}
	return 0
}

var _ cmd.TelegramApp = (*App)(nil)

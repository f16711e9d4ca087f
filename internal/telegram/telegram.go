// Package telegram connects the bot to Telegram over long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"github.com/JaimeStill/trmnl-bot/internal/bot"
	"github.com/JaimeStill/trmnl-bot/internal/intake"
	"github.com/JaimeStill/trmnl-bot/pkg/lifecycle"
)

// System receives Telegram updates and routes them to the bot.
type System interface {
	Start(lc *lifecycle.Coordinator) error
}

type transport struct {
	api      *telego.Bot
	http     *resty.Client
	handlers bot.System
	token    string
	logger   *slog.Logger
}

// New creates the Telegram system. File URLs embed the token, so it is
// scrubbed from every error and library log line.
func New(cfg *Config, handlers bot.System, logger *slog.Logger) (System, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	logger = logger.With("system", "telegram")

	api, err := telego.NewBot(cfg.Token, telego.WithLogger(&apiLogger{logger: logger, token: cfg.Token}))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &transport{
		api:      api,
		http:     resty.New().SetTimeout(cfg.DownloadTimeoutDuration()),
		handlers: handlers,
		token:    cfg.Token,
		logger:   logger,
	}, nil
}

// Start verifies the token, begins long polling and stops it on shutdown.
// Events already being handled run to completion.
func (t *transport) Start(lc *lifecycle.Coordinator) error {
	ctx := lc.Context()

	me, err := t.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot identity: %s", t.redact(err.Error()))
	}

	updates, err := t.api.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %s", t.redact(err.Error()))
	}

	bh, err := th.NewBotHandler(t.api, updates)
	if err != nil {
		return fmt.Errorf("create update handler: %w", err)
	}

	bh.HandleMessage(t.onStart, th.CommandEqual("start"))
	bh.HandleMessage(t.onHelp, th.CommandEqual("help"))
	bh.HandleMessage(t.onMessage)
	bh.HandleCallbackQuery(t.onCallback)

	go func() {
		if err := bh.Start(); err != nil {
			t.logger.Error("update handler stopped", "error", t.redact(err.Error()))
		}
	}()

	t.logger.Info("polling for updates", "username", me.Username)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		t.logger.Info("stopping update handler")

		if err := bh.Stop(); err != nil {
			t.logger.Debug("update handler stop", "error", err)
		}
		t.logger.Info("update handler stopped")
	})

	return nil
}

func (t *transport) onStart(ctx *th.Context, msg telego.Message) error {
	if ev, ok := t.messageEvent(msg); ok {
		t.handlers.Start(context.WithoutCancel(ctx), ev)
	}
	return nil
}

func (t *transport) onHelp(ctx *th.Context, msg telego.Message) error {
	if ev, ok := t.messageEvent(msg); ok {
		t.handlers.Help(context.WithoutCancel(ctx), ev)
	}
	return nil
}

func (t *transport) onMessage(ctx *th.Context, msg telego.Message) error {
	t.dispatchMessage(context.WithoutCancel(ctx), msg)
	return nil
}

func (t *transport) onCallback(ctx *th.Context, query telego.CallbackQuery) error {
	t.dispatchCallback(context.WithoutCancel(ctx), query)
	return nil
}

// dispatchMessage routes photos, including images sent as files, to the
// photo handler and every other document to intake.
func (t *transport) dispatchMessage(ctx context.Context, msg telego.Message) {
	ev, ok := t.messageEvent(msg)
	if !ok {
		return
	}

	switch {
	case len(msg.Photo) > 0:
		t.handlers.Photo(ctx, ev, LargestPhoto(msg.Photo))
	case msg.Document != nil && isImage(msg.Document.MimeType):
		t.handlers.Photo(ctx, ev, msg.Document.FileID)
	case msg.Document != nil:
		doc := msg.Document
		t.handlers.Document(ctx, ev, intake.Upload{
			FileName: doc.FileName,
			MimeType: doc.MimeType,
			Size:     int64(doc.FileSize),
			Fetch:    t.fetch(doc.FileID),
		})
	default:
		t.logger.Debug("ignoring message", "identity", ev.Identity, "message_id", msg.MessageID)
	}
}

func (t *transport) dispatchCallback(ctx context.Context, query telego.CallbackQuery) {
	m := &callback{
		chat:    &chat{bot: t.api},
		queryID: query.ID,
	}
	if query.Message != nil {
		m.chatID = query.Message.GetChat().ID
		m.messageID = query.Message.GetMessageID()
	}

	defer func() {
		if err := m.finish(ctx); err != nil {
			t.logger.Warn("callback answer failed", "error", t.redact(err.Error()))
		}
	}()

	if m.chatID == 0 {
		t.logger.Debug("callback without message", "query_id", query.ID)
		return
	}

	ev := bot.Event{
		Identity:  strconv.FormatInt(query.From.ID, 10),
		Messenger: m,
	}
	t.handlers.Navigate(ctx, ev, query.Data)
}

func (t *transport) messageEvent(msg telego.Message) (bot.Event, bool) {
	if msg.From == nil {
		t.logger.Debug("message without sender", "chat_id", msg.Chat.ID)
		return bot.Event{}, false
	}
	return bot.Event{
		Identity:  strconv.FormatInt(msg.From.ID, 10),
		Messenger: &chat{bot: t.api, chatID: msg.Chat.ID},
	}, true
}

// fetch streams a Telegram file. The body is left to the caller to close.
func (t *transport) fetch(fileID string) intake.Fetch {
	return func(ctx context.Context) (io.ReadCloser, error) {
		file, err := t.api.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
		if err != nil {
			return nil, errors.New(t.redact(err.Error()))
		}

		resp, err := t.http.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			Get(t.api.FileDownloadURL(file.FilePath))
		if err != nil {
			return nil, errors.New(t.redact(err.Error()))
		}

		if resp.IsError() {
			resp.RawBody().Close()
			return nil, fmt.Errorf("file download returned status %d", resp.StatusCode())
		}
		return resp.RawBody(), nil
	}
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

func (t *transport) redact(s string) string {
	return strings.ReplaceAll(s, t.token, "<token>")
}

// apiLogger routes library logs into slog without the bot token.
type apiLogger struct {
	logger *slog.Logger
	token  string
}

func (l *apiLogger) Debugf(format string, args ...any) {
	l.logger.Debug(l.scrub(format, args))
}

func (l *apiLogger) Errorf(format string, args ...any) {
	l.logger.Error(l.scrub(format, args))
}

func (l *apiLogger) scrub(format string, args []any) string {
	return strings.ReplaceAll(fmt.Sprintf(format, args...), l.token, "<token>")
}

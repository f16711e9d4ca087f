package telegram

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/mymmrac/telego"

	"github.com/JaimeStill/trmnl-bot/internal/bot"
	"github.com/JaimeStill/trmnl-bot/internal/delivery"
)

func newTransport(api *telego.Bot, handlers bot.System, token string, logger *slog.Logger) *transport {
	return &transport{
		api:      api,
		http:     resty.New(),
		handlers: handlers,
		token:    token,
		logger:   logger,
	}
}

// DispatchMessage routes msg as the update handler would.
func DispatchMessage(ctx context.Context, api *telego.Bot, handlers bot.System, token string, msg telego.Message) {
	newTransport(api, handlers, token, discard()).dispatchMessage(ctx, msg)
}

// DispatchCallback routes query as the update handler would.
func DispatchCallback(ctx context.Context, api *telego.Bot, handlers bot.System, token string, query telego.CallbackQuery) {
	newTransport(api, handlers, token, discard()).dispatchCallback(ctx, query)
}

// NewCallback returns the messenger for a button press on messageID along
// with the func that settles the query.
func NewCallback(api *telego.Bot, chatID int64, messageID int, queryID string) (delivery.Messenger, func(context.Context) error) {
	m := &callback{
		chat:      &chat{bot: api, chatID: chatID},
		queryID:   queryID,
		messageID: messageID,
	}
	return m, m.finish
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

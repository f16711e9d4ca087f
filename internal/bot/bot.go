// Package bot implements the chat commands independent of any messaging
// transport. Every handler checks the allow-list first, serializes work per
// identity and turns each failure into one log line plus one notice.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/trmnl-bot/internal/access"
	"github.com/JaimeStill/trmnl-bot/internal/delivery"
	"github.com/JaimeStill/trmnl-bot/internal/intake"
	"github.com/JaimeStill/trmnl-bot/internal/navigation"
	"github.com/JaimeStill/trmnl-bot/internal/render"
	"github.com/JaimeStill/trmnl-bot/internal/sessions"
	"github.com/JaimeStill/trmnl-bot/pkg/storage"
)

// Event is one inbound chat event.
type Event struct {
	Identity  string
	Messenger delivery.Messenger
}

// MarkdownNotifier is implemented by messengers that can render Markdown.
type MarkdownNotifier interface {
	NotifyMarkdown(ctx context.Context, text string) error
}

// Uploader stages an upload and shows its first page.
type Uploader interface {
	Process(ctx context.Context, up intake.Upload, m delivery.Messenger) error
}

// Deps are the collaborators of the handlers.
type Deps struct {
	Guard     *access.Guard
	Locker    *sessions.Locker
	Uploader  Uploader
	Deliverer delivery.System
	Sink      delivery.Sink
	Store     storage.System
}

// System handles chat events. Failures never escape a handler; they are
// logged and shown to the user as one notice.
type System interface {
	// Start greets the user.
	Start(ctx context.Context, ev Event)

	// Help explains what the bot accepts.
	Help(ctx context.Context, ev Event)

	// Photo forwards an image the user sent straight to the display.
	Photo(ctx context.Context, ev Event, fileID string)

	// Document stages an uploaded PDF or EPUB and shows its first page.
	Document(ctx context.Context, ev Event, up intake.Upload)

	// Navigate acts on the callback data of a keyboard button.
	Navigate(ctx context.Context, ev Event, data string)
}

type bot struct {
	guard     *access.Guard
	locker    *sessions.Locker
	uploader  Uploader
	deliverer delivery.System
	sink      delivery.Sink
	store     storage.System
	logger    *slog.Logger
}

// New creates the handlers. A nil Guard or Locker is replaced with an open
// guard and a fresh locker.
func New(deps Deps, logger *slog.Logger) System {
	b := &bot{
		guard:     deps.Guard,
		locker:    deps.Locker,
		uploader:  deps.Uploader,
		deliverer: deps.Deliverer,
		sink:      deps.Sink,
		store:     deps.Store,
		logger:    logger.With("system", "bot"),
	}
	if b.guard == nil {
		b.guard = access.New(nil)
	}
	if b.locker == nil {
		b.locker = sessions.NewLocker()
	}
	return b
}

func (b *bot) Start(ctx context.Context, ev Event) {
	b.handle(ctx, ev, "start", func(ctx context.Context, _ *slog.Logger) error {
		return ev.Messenger.Notify(ctx, WelcomeText)
	})
}

func (b *bot) Help(ctx context.Context, ev Event) {
	b.handle(ctx, ev, "help", func(ctx context.Context, _ *slog.Logger) error {
		if md, ok := ev.Messenger.(MarkdownNotifier); ok {
			return md.NotifyMarkdown(ctx, HelpText)
		}
		return ev.Messenger.Notify(ctx, HelpText)
	})
}

func (b *bot) Photo(ctx context.Context, ev Event, fileID string) {
	b.handle(ctx, ev, "photo", func(ctx context.Context, logger *slog.Logger) error {
		if err := ev.Messenger.Notify(ctx, SendingImageText); err != nil {
			logger.Warn("progress notice failed", "error", err)
		}

		url, err := ev.Messenger.FileURL(ctx, fileID)
		if err != nil {
			return fmt.Errorf("%w: %v", delivery.ErrNoReference, err)
		}
		if err := b.sink.Push(ctx, url); err != nil {
			return fmt.Errorf("%w: %v", delivery.ErrForwardFailed, err)
		}

		logger.Info("image forwarded")
		return ev.Messenger.Notify(ctx, ImageSentText)
	})
}

func (b *bot) Document(ctx context.Context, ev Event, up intake.Upload) {
	b.handle(ctx, ev, "document", func(ctx context.Context, _ *slog.Logger) error {
		up.Identity = ev.Identity
		return b.uploader.Process(ctx, up, ev.Messenger)
	})
}

func (b *bot) Navigate(ctx context.Context, ev Event, data string) {
	b.handle(ctx, ev, "navigate", func(ctx context.Context, _ *slog.Logger) error {
		tok, err := navigation.Decode(data)
		if errors.Is(err, navigation.ErrNoop) {
			return nil
		}
		if err != nil {
			return err
		}
		if tok.Owner != ev.Identity {
			return fmt.Errorf("%w: owner %s", navigation.ErrForeignToken, tok.Owner)
		}

		key, err := sessions.ArtifactKey(ev.Identity)
		if err != nil {
			return err
		}
		ok, err := b.store.Validate(ctx, key)
		if err != nil {
			return fmt.Errorf("%w: %v", render.ErrRenderFailed, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", render.ErrNotFound, key)
		}
		path, err := b.store.Path(ctx, key)
		if err != nil {
			return err
		}

		_, err = b.deliverer.Deliver(ctx, delivery.Request{
			Identity:      ev.Identity,
			Path:          path,
			Page:          tok.Page,
			ExpectedTotal: tok.Total,
		}, ev.Messenger)
		return err
	})
}

func (b *bot) handle(ctx context.Context, ev Event, op string, fn func(context.Context, *slog.Logger) error) {
	logger := b.logger.With("identity", ev.Identity, "event", op)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", "panic", r)
			b.notify(ctx, ev, logger, GenericNotice)
		}
	}()

	if err := b.guard.Check(ev.Identity); err != nil {
		logger.Warn("unauthorized access attempt")
		b.notify(ctx, ev, logger, Notice(err))
		return
	}

	unlock := b.locker.Lock(ev.Identity)
	defer unlock()

	if err := fn(ctx, logger); err != nil {
		logger.Log(ctx, logLevel(err), "event failed", "error", err)
		b.notify(ctx, ev, logger, Notice(err))
	}
}

func (b *bot) notify(ctx context.Context, ev Event, logger *slog.Logger, text string) {
	if err := ev.Messenger.Notify(ctx, text); err != nil {
		logger.Warn("notice failed", "error", err)
	}
}

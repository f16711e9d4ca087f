// Package delivery shows one rendered page to a user and forwards it to
// the display.
//
// A delivery moves through Validating, Rendering, Dispatching and
// Forwarding to Done. Any step may end it in Failed; the returned error
// carries the reason and the Result records where it stopped. The
// orchestrator never talks to the user about failures: callers translate
// the error into a notice.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/trmnl-bot/internal/navigation"
	"github.com/JaimeStill/trmnl-bot/internal/render"
)

// State is a step of a delivery.
type State string

const (
	Validating  State = "validating"
	Rendering   State = "rendering"
	Dispatching State = "dispatching"
	Forwarding  State = "forwarding"
	Done        State = "done"
	Failed      State = "failed"
)

// Sent identifies a photo message produced by a dispatch.
type Sent struct {
	MessageID int
	FileID    string
}

// Messenger is the chat side of one inbound event.
type Messenger interface {
	// SendPhoto posts a new photo message with keyboard.
	SendPhoto(ctx context.Context, image []byte, kb navigation.Keyboard) (Sent, error)

	// EditPhoto replaces the photo and keyboard of the event's message.
	EditPhoto(ctx context.Context, image []byte, kb navigation.Keyboard) (Sent, error)

	// FileURL resolves a sent file into a URL the display can fetch.
	FileURL(ctx context.Context, fileID string) (string, error)

	// Notify shows text to the user.
	Notify(ctx context.Context, text string) error
}

// Sink receives image references for the display.
type Sink interface {
	Push(ctx context.Context, imageURL string) error
}

// Request asks for one page of the document at Path.
type Request struct {
	Identity string
	Path     string
	Page     int

	// ReplyPhoto sends a new message instead of editing the current one.
	ReplyPhoto bool

	// ExpectedTotal is the page count the caller believed the document had,
	// or zero. The document's real count always wins.
	ExpectedTotal int
}

// Result records how far a delivery got.
type Result struct {
	State State

	// FailedAt is the step that failed; empty unless State is Failed.
	FailedAt State

	Page  int
	Total int
	Sent  Sent
}

// System runs deliveries.
type System interface {
	// Deliver runs req to a terminal state. On failure the error wraps
	// exactly one of render.ErrNotFound, render.ErrRenderFailed,
	// ErrOutOfRange, ErrDispatchFailed, ErrNoReference or ErrForwardFailed.
	// A forwarding failure leaves the dispatched message in place.
	Deliver(ctx context.Context, req Request, m Messenger) (*Result, error)
}

type orchestrator struct {
	renderer render.Renderer
	sink     Sink
	logger   *slog.Logger
}

// New creates the delivery System.
func New(renderer render.Renderer, sink Sink, logger *slog.Logger) System {
	return &orchestrator{
		renderer: renderer,
		sink:     sink,
		logger:   logger.With("system", "delivery"),
	}
}

func (o *orchestrator) Deliver(ctx context.Context, req Request, m Messenger) (*Result, error) {
	res := &Result{State: Validating, Page: req.Page}
	logger := o.logger.With("identity", req.Identity, "page", req.Page, "reply", req.ReplyPhoto)

	fail := func(err error) (*Result, error) {
		res.FailedAt = res.State
		res.State = Failed
		logger.Debug("delivery failed", "at", res.FailedAt, "error", err)
		return res, err
	}

	seq, err := o.renderer.Open(ctx, req.Path)
	if err != nil {
		if !errors.Is(err, render.ErrNotFound) {
			res.State = Rendering
		}
		return fail(err)
	}
	defer seq.Close()

	res.Total = seq.Len()
	if req.ExpectedTotal != 0 && req.ExpectedTotal != res.Total {
		logger.Debug("page count changed since token was issued", "expected", req.ExpectedTotal, "actual", res.Total)
	}
	if req.Page < 1 || req.Page > res.Total {
		return fail(&RangeError{Page: req.Page, Total: res.Total})
	}

	res.State = Rendering
	image, err := seq.Page(req.Page)
	if err != nil {
		if errors.Is(err, render.ErrPageOutOfRange) {
			return fail(&RangeError{Page: req.Page, Total: res.Total})
		}
		return fail(err)
	}

	res.State = Dispatching
	kb, err := navigation.Build(req.Page, res.Total, req.Identity)
	if err != nil {
		return fail(fmt.Errorf("%w: build keyboard: %v", ErrDispatchFailed, err))
	}

	var sent Sent
	if req.ReplyPhoto {
		sent, err = m.SendPhoto(ctx, image, kb)
	} else {
		sent, err = m.EditPhoto(ctx, image, kb)
	}
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrDispatchFailed, err))
	}
	res.Sent = sent

	res.State = Forwarding
	if sent.FileID == "" {
		return fail(fmt.Errorf("%w: dispatch returned no file", ErrNoReference))
	}

	url, err := m.FileURL(ctx, sent.FileID)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrNoReference, err))
	}
	if url == "" {
		return fail(fmt.Errorf("%w: empty file url", ErrNoReference))
	}

	if err := o.sink.Push(ctx, url); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrForwardFailed, err))
	}

	res.State = Done
	logger.Info("page delivered", "total", res.Total, "message_id", sent.MessageID)
	return res, nil
}

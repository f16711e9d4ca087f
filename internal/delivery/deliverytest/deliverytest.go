// Package deliverytest provides recording fakes for the collaborators of a
// delivery: renderer, messenger and display sink.
package deliverytest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/trmnl-bot/internal/delivery"
	"github.com/JaimeStill/trmnl-bot/internal/navigation"
	"github.com/JaimeStill/trmnl-bot/internal/render"
)

// Renderer serves fake page images. Paths listed in Counts report that many
// pages without touching disk; any other path must exist and is counted
// with pdfcpu.
type Renderer struct {
	Counts  map[string]int
	OpenErr error
	PageErr error

	mu     sync.Mutex
	opened []string
}

func (r *Renderer) Open(ctx context.Context, path string) (render.Sequence, error) {
	r.mu.Lock()
	r.opened = append(r.opened, path)
	r.mu.Unlock()

	if r.OpenErr != nil {
		return nil, r.OpenErr
	}

	if n, ok := r.Counts[path]; ok {
		return &sequence{pages: n, err: r.PageErr}, nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", render.ErrNotFound, path)
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", render.ErrRenderFailed, err)
	}
	return &sequence{pages: n, err: r.PageErr}, nil
}

// Opened returns every path passed to Open.
func (r *Renderer) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

type sequence struct {
	pages int
	err   error
}

func (s *sequence) Len() int { return s.pages }

func (s *sequence) Page(n int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if n < 1 || n > s.pages {
		return nil, fmt.Errorf("%w: %d", render.ErrPageOutOfRange, n)
	}
	return PageImage(n), nil
}

func (s *sequence) Close() error { return nil }

// PageImage is the fake image bytes served for page n.
func PageImage(n int) []byte {
	return fmt.Appendf(nil, "page-%d", n)
}

// Photo is one recorded send or edit.
type Photo struct {
	Image    []byte
	Keyboard navigation.Keyboard
}

// Messenger records everything shown to the user.
type Messenger struct {
	SendErr    error
	EditErr    error
	FileURLErr error

	// NoFileID makes dispatches return an empty file reference.
	NoFileID bool

	mu      sync.Mutex
	sends   []Photo
	edits   []Photo
	notices []string
	nextID  int
}

func (m *Messenger) SendPhoto(ctx context.Context, image []byte, kb navigation.Keyboard) (delivery.Sent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return delivery.Sent{}, m.SendErr
	}
	m.sends = append(m.sends, Photo{Image: image, Keyboard: kb})
	return m.sent(), nil
}

func (m *Messenger) EditPhoto(ctx context.Context, image []byte, kb navigation.Keyboard) (delivery.Sent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditErr != nil {
		return delivery.Sent{}, m.EditErr
	}
	m.edits = append(m.edits, Photo{Image: image, Keyboard: kb})
	return m.sent(), nil
}

func (m *Messenger) sent() delivery.Sent {
	m.nextID++
	s := delivery.Sent{MessageID: m.nextID}
	if !m.NoFileID {
		s.FileID = fmt.Sprintf("file-%d", m.nextID)
	}
	return s
}

func (m *Messenger) FileURL(ctx context.Context, fileID string) (string, error) {
	if m.FileURLErr != nil {
		return "", m.FileURLErr
	}
	return URL(fileID), nil
}

func (m *Messenger) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, text)
	return nil
}

// Sends returns the recorded new photo messages.
func (m *Messenger) Sends() []Photo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Photo(nil), m.sends...)
}

// Edits returns the recorded in-place edits.
func (m *Messenger) Edits() []Photo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Photo(nil), m.edits...)
}

// Notices returns the recorded text notices.
func (m *Messenger) Notices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notices...)
}

// URL is the file URL the fake messenger reports for fileID.
func URL(fileID string) string {
	return "https://files.test/" + fileID
}

// Sink records pushed image references.
type Sink struct {
	Err error

	mu   sync.Mutex
	urls []string
}

func (s *Sink) Push(ctx context.Context, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.urls = append(s.urls, imageURL)
	return nil
}

// URLs returns every successfully pushed reference.
func (s *Sink) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

// Package intake validates uploaded documents and stages them as the
// uploader's canonical PDF before showing its first page.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/trmnl-bot/internal/convert"
	"github.com/JaimeStill/trmnl-bot/internal/delivery"
	"github.com/JaimeStill/trmnl-bot/internal/sessions"
	"github.com/JaimeStill/trmnl-bot/pkg/storage"
)

// Intake errors.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrDownloadFailed  = errors.New("download failed")
	ErrInvalidDocument = errors.New("invalid document")
	ErrStageFailed     = errors.New("staging failed")
)

// ConvertingNotice is shown while a book is turned into a PDF.
const ConvertingNotice = "Converting EPUB to PDF..."

// Supported MIME types.
const (
	MimePDF  = "application/pdf"
	MimeEPUB = "application/epub+zip"
)

type kind struct {
	ext     string
	convert bool
}

var kinds = map[string]kind{
	MimePDF:  {ext: "pdf"},
	MimeEPUB: {ext: "epub", convert: true},
}

// genericTypes are MIME types clients send when they do not know better;
// the file extension decides for these.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"application/zip":          true,
}

var extensions = map[string]string{
	".pdf":  MimePDF,
	".epub": MimeEPUB,
}

func resolve(mimeType, fileName string) (kind, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if k, ok := kinds[mimeType]; ok {
		return k, true
	}
	if genericTypes[mimeType] {
		if mt, ok := extensions[strings.ToLower(path.Ext(fileName))]; ok {
			return kinds[mt], true
		}
	}
	return kind{}, false
}

// Fetch opens the upload's content for reading.
type Fetch func(ctx context.Context) (io.ReadCloser, error)

// Upload is a document received from a user.
type Upload struct {
	Identity string
	FileName string
	MimeType string

	// Size is the declared size in bytes, or zero when unknown.
	Size  int64
	Fetch Fetch
}

// Converter turns a book at src into a PDF at dst.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// Placeholder renders a diagnostic PDF explaining reason.
type Placeholder interface {
	Render(reason string) ([]byte, error)
}

// Notifier shows progress text to the uploader.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// System stages uploads and starts their first delivery.
type System interface {
	// Process stages up and delivers its first page as a new message.
	Process(ctx context.Context, up Upload, m delivery.Messenger) error

	// Stage validates up, downloads it to a private staging key and
	// installs it as the identity's canonical PDF, returning the artifact
	// path. The staged download is removed on every path out. n may be nil.
	Stage(ctx context.Context, up Upload, n Notifier) (string, error)
}

type pipeline struct {
	store       storage.System
	converter   Converter
	placeholder Placeholder
	deliverer   delivery.System
	maxSize     int64
	logger      *slog.Logger
}

// New creates the intake System. A positive maxSize caps uploads in bytes.
func New(
	store storage.System,
	converter Converter,
	placeholder Placeholder,
	deliverer delivery.System,
	maxSize int64,
	logger *slog.Logger,
) System {
	return &pipeline{
		store:       store,
		converter:   converter,
		placeholder: placeholder,
		deliverer:   deliverer,
		maxSize:     maxSize,
		logger:      logger.With("system", "intake"),
	}
}

func (p *pipeline) Process(ctx context.Context, up Upload, m delivery.Messenger) error {
	artifact, err := p.Stage(ctx, up, m)
	if err != nil {
		return err
	}

	_, err = p.deliverer.Deliver(ctx, delivery.Request{
		Identity:   up.Identity,
		Path:       artifact,
		Page:       1,
		ReplyPhoto: true,
	}, m)
	return err
}

func (p *pipeline) Stage(ctx context.Context, up Upload, n Notifier) (string, error) {
	k, ok := resolve(up.MimeType, up.FileName)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, up.MimeType)
	}
	if p.maxSize > 0 && up.Size > p.maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, up.Size, p.maxSize)
	}

	artifactKey, err := sessions.ArtifactKey(up.Identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStageFailed, err)
	}

	logger := p.logger.With("identity", up.Identity, "mime_type", up.MimeType)

	uploadKey := sessions.StagingKey(k.ext)
	defer p.discard(uploadKey)

	if err := p.download(ctx, up, uploadKey); err != nil {
		return "", err
	}

	readyKey := uploadKey
	if k.convert {
		readyKey = sessions.StagingKey("pdf")
		defer p.discard(readyKey)

		if n != nil {
			if err := n.Notify(ctx, ConvertingNotice); err != nil {
				logger.Warn("progress notice failed", "error", err)
			}
		}
		if err := p.convert(ctx, uploadKey, readyKey, logger); err != nil {
			return "", err
		}
	} else if err := p.validatePDF(ctx, uploadKey); err != nil {
		return "", err
	}

	if err := p.store.Move(ctx, readyKey, artifactKey); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStageFailed, err)
	}

	artifact, err := p.store.Path(ctx, artifactKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStageFailed, err)
	}

	logger.Info("document staged", "key", artifactKey)
	return artifact, nil
}

func (p *pipeline) download(ctx context.Context, up Upload, key string) error {
	if up.Fetch == nil {
		return fmt.Errorf("%w: no content source", ErrDownloadFailed)
	}

	rc, err := up.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer rc.Close()

	if _, err := p.store.Write(ctx, key, rc, p.maxSize); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return fmt.Errorf("%w: %v", ErrFileTooLarge, err)
		}
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return nil
}

func (p *pipeline) validatePDF(ctx context.Context, key string) error {
	file, err := p.store.Path(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStageFailed, err)
	}

	pages, err := api.PageCountFile(file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if pages < 1 {
		return fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}
	return nil
}

// convert runs the converter, falling back to a diagnostic placeholder so
// the user always gets a document to page through.
func (p *pipeline) convert(ctx context.Context, srcKey, dstKey string, logger *slog.Logger) error {
	src, err := p.store.Path(ctx, srcKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStageFailed, err)
	}
	dst, err := p.store.Path(ctx, dstKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStageFailed, err)
	}

	convErr := p.converter.Convert(ctx, src, dst)
	if convErr == nil {
		return nil
	}

	logger.Warn("conversion failed, staging placeholder", "error", convErr)

	data, err := p.placeholder.Render(convert.Describe(convErr))
	if err != nil {
		return fmt.Errorf("%w: placeholder: %v", ErrStageFailed, err)
	}
	if err := p.store.Store(ctx, dstKey, data); err != nil {
		return fmt.Errorf("%w: placeholder: %v", ErrStageFailed, err)
	}
	return nil
}

func (p *pipeline) discard(key string) {
	if err := p.store.Delete(context.Background(), key); err != nil {
		p.logger.Warn("failed to remove staged file", "key", key, "error", err)
	}
}

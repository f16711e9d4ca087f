package intake_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/JaimeStill/trmnl-bot/internal/convert"
	"github.com/JaimeStill/trmnl-bot/internal/delivery"
	"github.com/JaimeStill/trmnl-bot/internal/delivery/deliverytest"
	"github.com/JaimeStill/trmnl-bot/internal/intake"
	"github.com/JaimeStill/trmnl-bot/internal/navigation"
	"github.com/JaimeStill/trmnl-bot/pkg/storage"
)

func makePDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := range pages {
		pdf.AddPage()
		pdf.Text(40, 60, "page "+string(rune('1'+i)))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

func source(data []byte) intake.Fetch {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// copyConverter writes a fixed PDF as the conversion result.
type copyConverter struct {
	pdf   []byte
	err   error
	calls int
}

func (c *copyConverter) Convert(ctx context.Context, src, dst string) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(dst, c.pdf, 0644)
}

type fixture struct {
	base      string
	store     storage.System
	converter *copyConverter
	renderer  *deliverytest.Renderer
	messenger *deliverytest.Messenger
	sink      *deliverytest.Sink
	pipeline  intake.System
}

func newFixture(t *testing.T, maxSize int64) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	base := t.TempDir()
	store, err := storage.New(&storage.Config{BasePath: base}, logger)
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}

	f := &fixture{
		base:      base,
		store:     store,
		converter: &copyConverter{pdf: makePDF(t, 2)},
		renderer:  &deliverytest.Renderer{},
		messenger: &deliverytest.Messenger{},
		sink:      &deliverytest.Sink{},
	}

	orch := delivery.New(f.renderer, f.sink, logger)
	f.pipeline = intake.New(store, f.converter, convert.NewPlaceholder(360, 600), orch, maxSize, logger)
	return f
}

func (f *fixture) stagingEmpty(t *testing.T) bool {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.base, "staging"))
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	return len(entries) == 0
}

func TestSupported(t *testing.T) {
	tests := []struct {
		mime string
		name string
		want bool
	}{
		{"application/pdf", "report.pdf", true},
		{"application/epub+zip", "book.epub", true},
		{"Application/PDF", "x", true},
		{"application/octet-stream", "book.EPUB", true},
		{"", "scan.pdf", true},
		{"application/zip", "archive.zip", false},
		{"image/png", "photo.pdf", false},
		{"text/plain", "notes.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.mime+" "+tt.name, func(t *testing.T) {
			if got := intake.Supported(tt.mime, tt.name); got != tt.want {
				t.Errorf("Supported(%q, %q) = %v, want %v", tt.mime, tt.name, got, tt.want)
			}
		})
	}
}

func TestProcess_PDFShowsFirstPage(t *testing.T) {
	f := newFixture(t, 0)

	up := intake.Upload{
		Identity: "42",
		FileName: "report.pdf",
		MimeType: intake.MimePDF,
		Fetch:    source(makePDF(t, 3)),
	}
	if err := f.pipeline.Process(context.Background(), up, f.messenger); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	sends := f.messenger.Sends()
	if len(sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sends))
	}
	if got, want := sends[0].Keyboard.Labels(), []string{"1/3", navigation.NextLabel}; !slices.Equal(got, want) {
		t.Errorf("keyboard = %v, want %v", got, want)
	}
	if len(f.sink.URLs()) != 1 {
		t.Errorf("forwarded = %v, want one push", f.sink.URLs())
	}

	artifact := filepath.Join(f.base, "documents", "42.pdf")
	if opened := f.renderer.Opened(); len(opened) != 1 || opened[0] != artifact {
		t.Errorf("rendered %v, want [%s]", opened, artifact)
	}
	if f.converter.calls != 0 {
		t.Error("PDF upload was converted")
	}
	if !f.stagingEmpty(t) {
		t.Error("staged download left behind")
	}
}

func TestProcess_ReplacesPreviousDocument(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	for _, pages := range []int{3, 1} {
		up := intake.Upload{Identity: "42", FileName: "a.pdf", MimeType: intake.MimePDF, Fetch: source(makePDF(t, pages))}
		if err := f.pipeline.Process(ctx, up, f.messenger); err != nil {
			t.Fatalf("Process() failed: %v", err)
		}
	}

	sends := f.messenger.Sends()
	if got := sends[len(sends)-1].Keyboard.Labels(); !slices.Equal(got, []string{"1/1"}) {
		t.Errorf("keyboard after replacement = %v, want [1/1]", got)
	}
}

func TestProcess_EPUBConverts(t *testing.T) {
	f := newFixture(t, 0)

	up := intake.Upload{
		Identity: "7",
		FileName: "book.epub",
		MimeType: intake.MimeEPUB,
		Fetch:    source([]byte("PK fake epub")),
	}
	if err := f.pipeline.Process(context.Background(), up, f.messenger); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if f.converter.calls != 1 {
		t.Errorf("converter calls = %d, want 1", f.converter.calls)
	}
	if notices := f.messenger.Notices(); !slices.Equal(notices, []string{intake.ConvertingNotice}) {
		t.Errorf("notices = %v, want [%q]", notices, intake.ConvertingNotice)
	}
	if got := f.messenger.Sends()[0].Keyboard.Labels(); !slices.Equal(got, []string{"1/2", navigation.NextLabel}) {
		t.Errorf("keyboard = %v", got)
	}
	if !f.stagingEmpty(t) {
		t.Error("staged files left behind")
	}
}

func TestProcess_FailedConversionDeliversPlaceholder(t *testing.T) {
	f := newFixture(t, 0)
	f.converter.err = errors.New("no readable chapters")

	up := intake.Upload{Identity: "7", FileName: "book.epub", MimeType: intake.MimeEPUB, Fetch: source([]byte("junk"))}
	if err := f.pipeline.Process(context.Background(), up, f.messenger); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	sends := f.messenger.Sends()
	if len(sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sends))
	}
	if got := sends[0].Keyboard.Labels(); !slices.Equal(got, []string{"1/1"}) {
		t.Errorf("keyboard = %v, want [1/1]", got)
	}
	if _, err := os.Stat(filepath.Join(f.base, "documents", "7.pdf")); err != nil {
		t.Errorf("placeholder not installed: %v", err)
	}
}

func TestStage_Rejections(t *testing.T) {
	fetchErr := func(context.Context) (io.ReadCloser, error) {
		return nil, errors.New("telegram: file is too big")
	}

	tests := []struct {
		name    string
		maxSize int64
		up      intake.Upload
		want    error
	}{
		{
			name: "unsupported type",
			up:   intake.Upload{FileName: "notes.txt", MimeType: "text/plain", Fetch: source([]byte("hi"))},
			want: intake.ErrUnsupportedType,
		},
		{
			name:    "declared too large",
			maxSize: 10,
			up:      intake.Upload{FileName: "a.pdf", MimeType: intake.MimePDF, Size: 11, Fetch: source([]byte("x"))},
			want:    intake.ErrFileTooLarge,
		},
		{
			name:    "streamed too large",
			maxSize: 10,
			up:      intake.Upload{FileName: "a.pdf", MimeType: intake.MimePDF, Fetch: source(bytes.Repeat([]byte("x"), 64))},
			want:    intake.ErrFileTooLarge,
		},
		{
			name: "download error",
			up:   intake.Upload{FileName: "a.pdf", MimeType: intake.MimePDF, Fetch: fetchErr},
			want: intake.ErrDownloadFailed,
		},
		{
			name: "no source",
			up:   intake.Upload{FileName: "a.pdf", MimeType: intake.MimePDF},
			want: intake.ErrDownloadFailed,
		},
		{
			name: "not a pdf",
			up:   intake.Upload{FileName: "a.pdf", MimeType: intake.MimePDF, Fetch: source([]byte("%PDF-1.4 truncated"))},
			want: intake.ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.maxSize)
			tt.up.Identity = "42"

			err := f.pipeline.Process(context.Background(), tt.up, f.messenger)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Process() error = %v, want %v", err, tt.want)
			}

			if len(f.renderer.Opened()) != 0 {
				t.Error("rejected upload reached the renderer")
			}
			if len(f.messenger.Sends()) != 0 {
				t.Error("rejected upload was shown")
			}
			if _, err := os.Stat(filepath.Join(f.base, "documents", "42.pdf")); !errors.Is(err, os.ErrNotExist) {
				t.Error("rejected upload installed an artifact")
			}
			if !f.stagingEmpty(t) {
				t.Error("staged download left behind")
			}
		})
	}
}

func TestStage_RejectionKeepsPreviousDocument(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	good := intake.Upload{Identity: "42", FileName: "a.pdf", MimeType: intake.MimePDF, Fetch: source(makePDF(t, 2))}
	if _, err := f.pipeline.Stage(ctx, good, nil); err != nil {
		t.Fatalf("Stage() failed: %v", err)
	}

	bad := intake.Upload{Identity: "42", FileName: "b.pdf", MimeType: intake.MimePDF, Fetch: source([]byte("garbage"))}
	if _, err := f.pipeline.Stage(ctx, bad, nil); !errors.Is(err, intake.ErrInvalidDocument) {
		t.Fatalf("Stage() error = %v, want ErrInvalidDocument", err)
	}

	data, err := os.ReadFile(filepath.Join(f.base, "documents", "42.pdf"))
	if err != nil {
		t.Fatalf("previous document lost: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("previous document overwritten")
	}
}

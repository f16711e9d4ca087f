package bot

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/trmnl-bot/internal/access"
	"github.com/JaimeStill/trmnl-bot/internal/delivery"
	"github.com/JaimeStill/trmnl-bot/internal/intake"
	"github.com/JaimeStill/trmnl-bot/internal/navigation"
	"github.com/JaimeStill/trmnl-bot/internal/render"
)

// User-facing text.
const (
	WelcomeText = "👋 Welcome to the Telegram to TRMNL Bot!\n\n" +
		"Send me any of the following and I'll display it on your TRMNL:\n" +
		"• Images (JPG, PNG, GIF, etc.)\n" +
		"• PDF files (with page navigation)\n" +
		"• EPUB files (automatically converted to PDF)"

	HelpText = "📖 *Telegram to TRMNL Bot Help*\n\n" +
		"*Supported Content:*\n" +
		"• 🖼️ Images: Send any image to display on TRMNL\n" +
		"• 📄 PDF files: Navigate through pages with buttons\n" +
		"• 📚 EPUB files: Auto-converted to PDF format\n\n" +
		"*How to use:*\n" +
		"1. Send your content (image/PDF/EPUB)\n" +
		"2. For PDFs: Use navigation buttons to browse pages\n" +
		"3. Content is automatically sent to your TRMNL display"

	SendingImageText = "📤 Sending image to TRMNL..."
	ImageSentText    = "✅ Image sent to TRMNL successfully!"

	GenericNotice = "An error occurred. Please try again."
)

// Notice maps a handler error to the single line of text shown to the user.
// Diagnostic detail in err never reaches the result.
func Notice(err error) string {
	var rangeErr *delivery.RangeError

	switch {
	case errors.Is(err, access.ErrUnauthorized):
		return "Unauthorized. Access denied."
	case errors.Is(err, intake.ErrUnsupportedType):
		return "Unsupported file type. Please send an image, PDF, or EPUB file."
	case errors.Is(err, intake.ErrFileTooLarge):
		return "File is too large. Please send a smaller file."
	case errors.Is(err, intake.ErrDownloadFailed):
		return "Failed to download the file. Please try again."
	case errors.Is(err, intake.ErrInvalidDocument):
		return "Failed to process the file. Please try again."
	case errors.Is(err, intake.ErrStageFailed):
		return "Failed to process the file. Please try again."
	case errors.Is(err, render.ErrNotFound):
		return "PDF file not found. Please upload it again."
	case errors.As(err, &rangeErr):
		return fmt.Sprintf("Page %d is out of range (1-%d).", rangeErr.Page, rangeErr.Total)
	case errors.Is(err, delivery.ErrOutOfRange):
		return "Page is out of range."
	case errors.Is(err, render.ErrRenderFailed):
		return "Failed to convert PDF to images."
	case errors.Is(err, delivery.ErrDispatchFailed):
		return "Failed to send image. Please try again."
	case errors.Is(err, delivery.ErrNoReference):
		return "Failed to process image"
	case errors.Is(err, delivery.ErrForwardFailed):
		return "Failed to send to TRMNL. Please check your TRMNL configuration."
	case errors.Is(err, navigation.ErrInvalidToken):
		return "Invalid navigation format"
	case errors.Is(err, navigation.ErrForeignToken):
		return "This document belongs to another user."
	default:
		return GenericNotice
	}
}

// logLevel is warn for failures caused by what the user sent and error for
// everything else.
func logLevel(err error) slog.Level {
	switch {
	case errors.Is(err, access.ErrUnauthorized),
		errors.Is(err, intake.ErrUnsupportedType),
		errors.Is(err, intake.ErrFileTooLarge),
		errors.Is(err, intake.ErrInvalidDocument),
		errors.Is(err, delivery.ErrOutOfRange),
		errors.Is(err, navigation.ErrInvalidToken),
		errors.Is(err, navigation.ErrForeignToken):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/JaimeStill/trmnl-bot/internal/delivery"
	"github.com/JaimeStill/trmnl-bot/internal/navigation"
)

const pageFileName = "page.png"

var errNoMessage = errors.New("event has no message to edit")

// Markup converts a navigation keyboard into Telegram inline markup. An
// empty keyboard yields nil.
func Markup(kb navigation.Keyboard) *telego.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
		}
		rows = append(rows, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(rows...)
}

// LargestPhoto returns the file ID of the biggest size of a photo, or ""
// when there is none.
func LargestPhoto(sizes []telego.PhotoSize) string {
	var (
		id   string
		area int
	)
	for _, s := range sizes {
		if a := s.Width * s.Height; id == "" || a > area {
			id, area = s.FileID, a
		}
	}
	return id
}

func photoFile(image []byte) telego.InputFile {
	return tu.File(tu.NameReader(bytes.NewReader(image), pageFileName))
}

func sentFrom(msg *telego.Message) delivery.Sent {
	if msg == nil {
		return delivery.Sent{}
	}
	return delivery.Sent{
		MessageID: msg.MessageID,
		FileID:    LargestPhoto(msg.Photo),
	}
}

// chat talks to the chat an inbound message came from.
type chat struct {
	bot    *telego.Bot
	chatID int64
}

func (c *chat) SendPhoto(ctx context.Context, image []byte, kb navigation.Keyboard) (delivery.Sent, error) {
	params := tu.Photo(tu.ID(c.chatID), photoFile(image))
	if markup := Markup(kb); markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	msg, err := c.bot.SendPhoto(ctx, params)
	if err != nil {
		return delivery.Sent{}, err
	}
	return sentFrom(msg), nil
}

func (c *chat) EditPhoto(ctx context.Context, image []byte, kb navigation.Keyboard) (delivery.Sent, error) {
	return delivery.Sent{}, errNoMessage
}

func (c *chat) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", err
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("file %s has no download path", fileID)
	}
	return c.bot.FileDownloadURL(file.FilePath), nil
}

func (c *chat) Notify(ctx context.Context, text string) error {
	_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(c.chatID), text))
	return err
}

func (c *chat) NotifyMarkdown(ctx context.Context, text string) error {
	_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(c.chatID), text).WithParseMode(telego.ModeMarkdown))
	return err
}

// callback answers a button press. Photos are edited into the pressed
// message, the first notice becomes the callback alert and the query is
// answered exactly once.
type callback struct {
	*chat
	queryID   string
	messageID int
	answered  bool
}

func (c *callback) EditPhoto(ctx context.Context, image []byte, kb navigation.Keyboard) (delivery.Sent, error) {
	if c.messageID == 0 {
		return delivery.Sent{}, errNoMessage
	}

	msg, err := c.bot.EditMessageMedia(ctx, &telego.EditMessageMediaParams{
		ChatID:      tu.ID(c.chatID),
		MessageID:   c.messageID,
		Media:       tu.MediaPhoto(photoFile(image)),
		ReplyMarkup: Markup(kb),
	})
	if err != nil {
		return delivery.Sent{}, err
	}
	return sentFrom(msg), nil
}

func (c *callback) Notify(ctx context.Context, text string) error {
	if c.answered {
		return c.chat.Notify(ctx, text)
	}
	c.answered = true
	return c.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(c.queryID).WithText(text).WithShowAlert())
}

func (c *callback) finish(ctx context.Context) error {
	if c.answered {
		return nil
	}
	c.answered = true
	return c.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(c.queryID))
}

// Package navigation encodes page state into callback tokens and builds the
// inline keyboard shown beneath a rendered page.
//
// A token is five underscore-separated fields:
//
//	pdf_<prev|next>_<target page>_<total pages>_<owner>
//
// The target page already reflects the requested state, so a token can be
// acted on without any server-side session.
package navigation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	prefix    = "pdf"
	separator = "_"
	fields    = 5

	// Noop is the callback data of the page indicator button.
	Noop = "noop"

	// MaxTokenLength is the Telegram limit on callback data, in bytes.
	MaxTokenLength = 64
)

// Direction is the navigation step a token requests.
type Direction string

const (
	Prev Direction = "prev"
	Next Direction = "next"
)

// Navigation errors.
var (
	ErrInvalidToken = errors.New("invalid navigation token")
	ErrNoop         = errors.New("no-op navigation token")
	ErrForeignToken = errors.New("navigation token owned by another identity")
)

// Token is decoded navigation state.
type Token struct {
	Direction Direction
	Page      int
	Total     int
	Owner     string
}

// Encode serializes t. Owners may not contain the separator.
func Encode(t Token) (string, error) {
	if t.Direction != Prev && t.Direction != Next {
		return "", fmt.Errorf("%w: direction %q", ErrInvalidToken, t.Direction)
	}
	if t.Page < 1 || t.Total < 1 {
		return "", fmt.Errorf("%w: page %d of %d", ErrInvalidToken, t.Page, t.Total)
	}
	if t.Owner == "" || strings.Contains(t.Owner, separator) {
		return "", fmt.Errorf("%w: owner %q", ErrInvalidToken, t.Owner)
	}

	token := strings.Join([]string{
		prefix,
		string(t.Direction),
		strconv.Itoa(t.Page),
		strconv.Itoa(t.Total),
		t.Owner,
	}, separator)

	if len(token) > MaxTokenLength {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidToken, len(token), MaxTokenLength)
	}
	return token, nil
}

// Decode parses callback data. The indicator payload returns ErrNoop;
// anything else that is not a well-formed token returns ErrInvalidToken.
func Decode(data string) (Token, error) {
	if data == Noop {
		return Token{}, ErrNoop
	}

	parts := strings.Split(data, separator)
	if len(parts) != fields {
		return Token{}, fmt.Errorf("%w: %d fields", ErrInvalidToken, len(parts))
	}
	if parts[0] != prefix {
		return Token{}, fmt.Errorf("%w: prefix %q", ErrInvalidToken, parts[0])
	}

	dir := Direction(parts[1])
	if dir != Prev && dir != Next {
		return Token{}, fmt.Errorf("%w: direction %q", ErrInvalidToken, parts[1])
	}

	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return Token{}, fmt.Errorf("%w: page %q", ErrInvalidToken, parts[2])
	}
	total, err := strconv.Atoi(parts[3])
	if err != nil {
		return Token{}, fmt.Errorf("%w: total %q", ErrInvalidToken, parts[3])
	}
	if parts[4] == "" {
		return Token{}, fmt.Errorf("%w: empty owner", ErrInvalidToken)
	}

	return Token{
		Direction: dir,
		Page:      page,
		Total:     total,
		Owner:     parts[4],
	}, nil
}

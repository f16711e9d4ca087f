package delivery

import (
	"errors"
	"fmt"
)

// Delivery errors. Missing artifacts and rasterizer failures surface as
// render.ErrNotFound and render.ErrRenderFailed.
var (
	ErrOutOfRange     = errors.New("page out of range")
	ErrDispatchFailed = errors.New("dispatch failed")
	ErrNoReference    = errors.New("no image reference")
	ErrForwardFailed  = errors.New("forward to display failed")
)

// RangeError reports a requested page outside 1..Total.
type RangeError struct {
	Page  int
	Total int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: page %d not in 1-%d", ErrOutOfRange, e.Page, e.Total)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

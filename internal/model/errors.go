package model

import "errors"

var (
	ErrInvalidTimeWindow  = errors.New("time window start must precede its end")
	ErrOverlappingWindows = errors.New("submission window overlaps assessment window")
)

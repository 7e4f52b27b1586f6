// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"bytes"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/codec"
)

const (
	// TimeLayout renders the current time, e.g. "Tue Mar 04 09:15:42 UTC 2025".
	TimeLayout = "Mon Jan 02 15:04:05 MST 2006"

	// BadOrder answers anything that is not the time query.
	BadOrder = "BAD ORDER"
)

// TimeOrderHandler answers QUERY TIME ORDER with the current time.
type TimeOrderHandler struct {
	Now func() time.Time
}

// NewTimeOrderHandler returns a handler using now, or time.Now when nil.
func NewTimeOrderHandler(now func() time.Time) *TimeOrderHandler {
	if now == nil {
		now = time.Now
	}
	return &TimeOrderHandler{Now: now}
}

// Handle implements api.Handler.
func (h *TimeOrderHandler) Handle(msg api.Message) []byte {
	if bytes.EqualFold(bytes.TrimSpace(msg.Body), []byte(codec.QueryTimeOrder)) {
		return []byte(h.Now().Format(TimeLayout))
	}
	return []byte(BadOrder)
}

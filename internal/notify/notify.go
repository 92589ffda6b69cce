// Package notify turns task reminders into one-shot alerts and delivers them.
package notify

import (
	"context"
	"errors"
	"time"
)

// Handle identifies a pending alert within the facility that issued it.
type Handle string

// Alert is a single notification request.
type Alert struct {
	Title  string
	Body   string
	TaskID string
	At     time.Time
}

// ErrPermissionDenied is recorded when the facility may not deliver alerts.
var ErrPermissionDenied = errors.New("notification permission not granted")

// Facility schedules alerts for later delivery.
type Facility interface {
	PermissionGranted(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, alert Alert) (Handle, error)
	Cancel(ctx context.Context, handle Handle) error
	CancelAll(ctx context.Context) error
}

// Deliverer pushes a fired alert to the user.
type Deliverer interface {
	// Enabled reports whether alerts can reach anyone.
	Enabled() bool
	Deliver(ctx context.Context, alert Alert) error
}

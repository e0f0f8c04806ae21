// Package services holds the feed, follow, post and account logic.
// Handlers resolve the viewer and pass it in explicitly; nil means a guest.
package services

import (
	"context"
	"errors"
	"fmt"

	"inkwell/internal/apperr"
	"inkwell/internal/events"
	"inkwell/internal/logging"

	"gorm.io/gorm"
)

// notFound translates gorm's record-not-found into apperr.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// publish sends an event after a committed write. A failed publish is logged
// and never undoes the write.
func publish(ctx context.Context, bus events.Bus, log logging.Logger, subject string, payload any) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, subject, payload); err != nil {
		log.Warn(ctx, "publish event failed", "subject", subject, "error", err)
	}
}

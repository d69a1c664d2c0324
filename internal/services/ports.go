// Package services runs refresh passes over the record store and fans new
// notifications out to the publisher.
package services

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks NotificationPublisher

import (
	"context"

	"medrent/internal/core"
)

// NotificationPublisher hands a new notification to the fan-out.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n core.Notification, asOf core.Date) error
}

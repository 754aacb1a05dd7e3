package queue

import (
	"context"

	"github.com/renata/social-console-back/internal/domain"
)

// Producer hands due deliveries to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.DeliveryMessage) error
}

// Consumer receives due deliveries and executes handlers.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.DeliveryMessage) error) error
}

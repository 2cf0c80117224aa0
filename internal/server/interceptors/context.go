package interceptors

import (
	"context"

	"device-inspector/backend/internal/security"
)

type producerKey struct{}

// WithProducer returns ctx carrying the authenticated producer.
func WithProducer(ctx context.Context, p *security.Producer) context.Context {
	return context.WithValue(ctx, producerKey{}, p)
}

// ProducerFromContext returns the producer set by ProducerAuthUnary.
func ProducerFromContext(ctx context.Context) (*security.Producer, bool) {
	p, ok := ctx.Value(producerKey{}).(*security.Producer)
	return p, ok && p != nil
}

// ProducerID returns the authenticated producer id, or "" when the call was not authenticated.
func ProducerID(ctx context.Context) string {
	if p, ok := ProducerFromContext(ctx); ok {
		return p.ID
	}
	return ""
}

package credentials

import (
	"context"

	"github.com/ahrav/go-resilient/internal/llm/transport"
)

// BearerMiddleware copies the access token carried by the call context into
// the outbound request. Requests made outside Coordinator.Do pass unchanged.
func BearerMiddleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if token := AccessTokenFrom(ctx); token != "" {
				req.AccessToken = token
			}
			return next.Handle(ctx, req)
		})
	}
}

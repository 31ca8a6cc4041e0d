// Package credentials owns the session credential pair and coordinates
// single-flight renewal for every authenticated outbound call.
//
// A call routed through Coordinator.Do receives the current access token in
// its context. When the call fails because the token expired, the first such
// caller starts one renewal; every other caller that fails while the renewal
// is in flight waits in a FIFO queue. When the renewal settles, each waiter
// replays its call once with the new token, or fails with the renewal error
// if the session could not be renewed.
package credentials

import (
	"context"
)

// Pair is the access/refresh token tuple representing an authenticated session.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Empty reports whether the pair holds no credentials at all.
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

type accessTokenKey struct{}

// WithAccessToken returns a context carrying token for the wrapped call.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the access token placed in ctx by the Coordinator.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// Package identity threads the acting user through request contexts and
// issues the bearer tokens that establish it.
package identity

import "context"

type ctxKey string

const ctxKeyUser ctxKey = "user"

// WithUser returns a context carrying the acting user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUser, userID)
}

// UserID returns the acting user id, if one is established.
func UserID(ctx context.Context) (string, bool) {
	if v := ctx.Value(ctxKeyUser); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

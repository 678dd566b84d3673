package common

import "context"

// Session identifies the authenticated operator for the current request.
// It is set once by the auth middleware and read explicitly by handlers;
// nothing else owns or mutates it.
type Session struct {
	UserID   string
	Username string
	Role     string
}

type sessionKey struct{}

// WithSession stores the session on the provided context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom extracts the session from the context if present.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// UserID extracts just the authenticated user identifier from the context.
func UserID(ctx context.Context) (string, bool) {
	s, ok := SessionFrom(ctx)
	if !ok || s.UserID == "" {
		return "", false
	}
	return s.UserID, true
}

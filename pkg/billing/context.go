package billing

import "context"

type userCtxKey struct{}

// SetUserToContext stores the authenticated user snapshot in the context.
// The HTTP layer sets this once per request after loading the account.
func SetUserToContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// GetUserFromContext retrieves the user snapshot placed by SetUserToContext.
func GetUserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(*User)
	return user, ok
}

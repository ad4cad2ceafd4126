package profiles

import "context"

type profileContextKey struct{}

// ContextWithProfile stores the loaded profile in context. Only the route
// guard writes this; handlers read it.
func ContextWithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, p)
}

// FromContext extracts the profile, or nil when the guard has not run.
func FromContext(ctx context.Context) *Profile {
	p, _ := ctx.Value(profileContextKey{}).(*Profile)
	return p
}

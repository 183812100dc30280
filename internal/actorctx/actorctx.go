// Package actorctx carries the authenticated caller through a request's
// context so services and log handlers can see who is acting.
package actorctx

import "context"

type Actor struct {
	UserID string
	Email  string
}

type ctxKey struct{}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return With(ctx, Actor{UserID: userID})
}

func UserIDFrom(ctx context.Context) (string, bool) {
	a, ok := From(ctx)
	return a.UserID, ok
}

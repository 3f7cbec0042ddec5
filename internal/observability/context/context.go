// Package context carries request-scoped correlation fields for logs and spans.
package context

import (
	"context"
	"strings"
)

type (
	requestIDKey struct{}
	communityKey struct{}
	actorKey     struct{}
)

type actor struct {
	typ string
	id  string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithCommunity tags ctx with the community slug being served or synced.
func WithCommunity(ctx context.Context, slug string) context.Context {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ctx
	}
	return context.WithValue(ctx, communityKey{}, slug)
}

func CommunityFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(communityKey{}).(string)
	return v
}

// WithActor records who started the work, e.g. ("system", "scheduler") or ("http", "api").
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{
		typ: strings.TrimSpace(actorType),
		id:  strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	a, _ := ctx.Value(actorKey{}).(actor)
	return a.typ, a.id
}

package authkit

import (
	"context"
)

// Context keys for AuthKit values.
type contextKey string

const (
	contextKeyActor     contextKey = "authkit:actor"
	contextKeyIPAddress contextKey = "authkit:ip_address"
	contextKeyUserAgent contextKey = "authkit:user_agent"
	contextKeyRequestID contextKey = "authkit:request_id"
)

// WithActor adds the authenticated actor's login context to the context.
// This is set once per request, after token verification.
func WithActor(ctx context.Context, actor *LoginContext) context.Context {
	return context.WithValue(ctx, contextKeyActor, actor)
}

// GetActor retrieves the actor's login context.
// Returns nil if not set.
func GetActor(ctx context.Context) *LoginContext {
	if v := ctx.Value(contextKeyActor); v != nil {
		if lc, ok := v.(*LoginContext); ok {
			return lc
		}
	}
	return nil
}

// MustGetActor retrieves the actor's login context.
// Panics if not set.
func MustGetActor(ctx context.Context) *LoginContext {
	actor := GetActor(ctx)
	if actor == nil {
		panic("authkit: actor not in context")
	}
	return actor
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	ActorRef  string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	ac := AuditContext{
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
	if actor := GetActor(ctx); actor != nil {
		ac.ActorRef = actor.User.UserRef
	}
	return ac
}

// WithAuditContext adds the request metadata to context at once. The actor
// is set separately via WithActor.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}

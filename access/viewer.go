package access

import (
	"context"

	"github.com/exograph/exo-core/schema"
)

// SimpleRequestContext is a basic RequestContext, modeled on
// privacy.SimpleViewer: a fixed id/role set plus a small named-value map for
// ContextLookup/ContextOperand resolution (e.g. "role", "tenantId").
type SimpleRequestContext struct {
	ID     string
	Roles  []string
	Values map[string]schema.ConstValue
}

func (c *SimpleRequestContext) GetID() string     { return c.ID }
func (c *SimpleRequestContext) GetRoles() []string { return c.Roles }

func (c *SimpleRequestContext) Value(name string) (schema.ConstValue, bool) {
	v, ok := c.Values[name]
	return v, ok
}

type requestContextCtxKey struct{}

// WithRequestContext returns a new context carrying rc, mirroring the
// teacher's privacy.WithViewer so the HTTP/auth layer (out of scope here)
// can attach the caller's identity once per request.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextCtxKey{}, rc)
}

// RequestContextFromContext retrieves the RequestContext attached by
// WithRequestContext, or nil if none is present.
func RequestContextFromContext(ctx context.Context) RequestContext {
	rc, _ := ctx.Value(requestContextCtxKey{}).(RequestContext)
	return rc
}

package common

import "context"

type ctxKey string

const (
	operatorIDKey   ctxKey = "auth/operator-id"
	operatorRoleKey ctxKey = "auth/operator-role"
)

// WithOperatorID stores the authenticated operator identifier on the context.
func WithOperatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operatorIDKey, id)
}

// OperatorID extracts the authenticated operator identifier if present.
func OperatorID(ctx context.Context) (string, bool) {
	v := ctx.Value(operatorIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithOperatorRole stores the authenticated operator role on the context.
func WithOperatorRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, operatorRoleKey, role)
}

// OperatorRole extracts the authenticated operator role if present.
func OperatorRole(ctx context.Context) (string, bool) {
	v := ctx.Value(operatorRoleKey)
	if v == nil {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

package restaurant

import (
	"context"
	"strings"
)

type contextKey string

const restaurantContextKey contextKey = "restaurant.id"

// WithID stores the restaurant identifier inside the context.
func WithID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, restaurantContextKey, id)
}

// FromContext extracts the restaurant identifier from the context if available.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(restaurantContextKey).(string)
	if !ok {
		return "", false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	return id, true
}

// PrefixKey namespaces a cache or queue key per restaurant.
func PrefixKey(restaurantID, key string) string {
	if restaurantID == "" {
		return key
	}
	return restaurantID + ":" + key
}

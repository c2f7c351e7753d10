package service

import "context"

type ctxKey string

const ctxActorKey ctxKey = "actor"

// Актор пишется в StockChange/Alert для аудита; аутентификация — забота гейтвея.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxActorKey, actor)
}

func ActorFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxActorKey).(string)
	if !ok || v == "" {
		return "system"
	}
	return v
}

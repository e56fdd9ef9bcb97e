package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

type RequestData struct {
	UserID uuid.UUID
	Role   string
	Email  string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, ctxKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(ctxKey{}).(*RequestData)
	return rd
}

func (rd *RequestData) IsAdmin() bool {
	return rd != nil && (rd.Role == "admin" || rd.Role == "staff")
}

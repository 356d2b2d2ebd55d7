package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// paymentScoped is implemented by request messages that name a payment.
type paymentScoped interface {
	GetPaymentID() string
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, payment ID, duration, and any error codes/messages.
// The payment ID comes from the request message, falling back to receipt
// claims when an auth interceptor runs outside this one.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			paymentID := ""
			if m, ok := req.Any().(paymentScoped); ok {
				paymentID = m.GetPaymentID()
			}
			if claims := GetClaims(ctx); paymentID == "" && claims != nil {
				paymentID = claims.PaymentID
			}
			duration := time.Since(start).Milliseconds()
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					slog.Warn("RPC error",
						"procedure", procedure,
						"payment_id", paymentID,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"duration_ms", duration,
					)
				} else {
					slog.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"duration_ms", duration,
					)
				}
			} else {
				slog.Info("RPC ok",
					"procedure", procedure,
					"payment_id", paymentID,
					"duration_ms", duration,
				)
			}

			return resp, err
		}
	}
}

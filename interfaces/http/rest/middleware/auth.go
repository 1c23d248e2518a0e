package middleware

import (
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/pkg/auth"
	"github.com/timmarsh1987/XMCVisualiser/pkg/common"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

// Authenticate requires a valid HS256 bearer token and stores its subject in
// the request context
func Authenticate(validator *auth.JWTValidator, eh *errors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.ValidateToken(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("Rejected bearer token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				appErr := errors.NewUnauthorizedError(unauthorizedMessage(err))
				if !stderrors.Is(err, auth.ErrMissingToken) {
					appErr = appErr.WithCode(errors.CodeTokenInvalid)
				}
				eh.Handle(w, r, appErr)
				return
			}

			ctx := common.WithSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case stderrors.Is(err, auth.ErrMissingToken):
		return "Missing authentication token"
	case stderrors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	default:
		return "Invalid authentication token"
	}
}

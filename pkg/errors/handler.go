package errors

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/pkg/common"
)

// ErrorHandler renders errors as the API envelope and logs them
type ErrorHandler struct {
	logger        *zap.Logger
	debug         bool
	defaultStatus int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger:        logger,
		debug:         debug,
		defaultStatus: http.StatusInternalServerError,
	}
}

// Handle writes an error response for err
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	requestID := common.ExtractRequestID(r)
	meta := &common.MetaInfo{RequestID: requestID}

	appErr := GetAppError(err)
	if appErr == nil {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
		}
		h.logger.Error("Unhandled error", append(fields, requestFields(r)...)...)

		message := "An internal error occurred"
		if h.debug {
			message = err.Error()
		}
		common.RespondErrorWithMeta(w, h.defaultStatus, &common.ErrorInfo{
			Code:    string(ErrorTypeInternal),
			Message: message,
		}, meta)
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = h.defaultStatus
	}
	h.logError(r, appErr, status)

	info := &common.ErrorInfo{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if info.Code == "" {
		info.Code = string(appErr.Type)
	}
	if h.debug && appErr.StackTrace != "" {
		details := make(map[string]interface{}, len(appErr.Details)+1)
		for k, v := range appErr.Details {
			details[k] = v
		}
		details["stack_trace"] = appErr.StackTrace
		info.Details = details
	}

	common.RespondErrorWithMeta(w, status, info, meta)
}

// HandleStatus sends an error response with a specific status code
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Warn("HTTP error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("message", message),
	)

	common.RespondErrorWithMeta(w, status, &common.ErrorInfo{
		Code:    string(statusToErrorType(status)),
		Message: message,
	}, &common.MetaInfo{RequestID: common.ExtractRequestID(r)})
}

func (h *ErrorHandler) logError(r *http.Request, err *AppError, status int) {
	fields := []zap.Field{
		zap.String("error_type", string(err.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", common.ExtractRequestID(r)),
	}
	if err.Code != "" {
		fields = append(fields, zap.String("error_code", err.Code))
	}
	fields = append(fields, requestFields(r)...)
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if err.Details != nil {
		fields = append(fields, zap.Any("details", err.Details))
	}

	switch {
	case status >= 500:
		h.logger.Error(err.Message, fields...)
	case status >= 400:
		h.logger.Warn(err.Message, fields...)
	default:
		h.logger.Info(err.Message, fields...)
	}
}

// requestFields reports the caller and tenant of r when middleware or a
// handler recorded them
func requestFields(r *http.Request) []zap.Field {
	ctx := r.Context()
	var fields []zap.Field
	if subject, ok := common.GetSubject(ctx); ok {
		fields = append(fields, zap.String("subject", subject))
	}
	if tenantID, ok := common.GetTenantID(ctx); ok {
		fields = append(fields, zap.String("tenant_id", tenantID))
	}
	if elapsed := common.GetElapsedTime(ctx); elapsed > 0 {
		fields = append(fields, zap.Duration("elapsed", elapsed))
	}
	return fields
}

func statusToErrorType(status int) ErrorType {
	switch status {
	case http.StatusBadRequest:
		return ErrorTypeValidation
	case http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case http.StatusForbidden:
		return ErrorTypeForbidden
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusServiceUnavailable:
		return ErrorTypeUnavailable
	case http.StatusBadGateway:
		return ErrorTypeExternal
	default:
		return ErrorTypeInternal
	}
}

// Middleware recovers panics in later handlers into an internal error response
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

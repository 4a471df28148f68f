package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	"github.com/SscSPs/saas_starter_auth/internal/dto"
	"github.com/SscSPs/saas_starter_auth/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respond writes a success envelope.
func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, dto.Success(middleware.GetRequestIDFromContext(c), message, data))
}

// respondError writes an error envelope. Internal errors are logged with
// their cause; the client only sees the generic message.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	logger := middleware.GetLoggerFromContext(c)
	if appErr.Kind == apperrors.KindInternal {
		logger.Error("Request failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Request rejected", slog.String("code", appErr.Code), slog.String("kind", appErr.Kind.String()))
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), dto.Failure(middleware.GetRequestIDFromContext(c), appErr))
}

// bindJSON decodes the body into req and writes a 400 envelope on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

// bindingError turns validator failures into per-field errors.
func bindingError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.ErrInvalidInput.WithMessage("invalid request body").Wrap(err)
	}
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Code:    apperrors.CodeInvalidInput,
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return apperrors.ErrInvalidInput.WithMessage("validation failed").WithFields(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "eqfield":
		return "passwords do not match"
	case "strongpassword":
		return "password must be at least 8 characters and contain a letter and a digit"
	case "username":
		return "username must be 3-30 lowercase letters, digits or underscores"
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	default:
		return fe.Field() + " is invalid"
	}
}

// requestContext captures what the session tracker needs from the request.
func requestContext(c *gin.Context) domain.RequestContext {
	return domain.RequestContext{
		UserAgent:       c.GetHeader("User-Agent"),
		PlatformVersion: c.GetHeader(middleware.PlatformVersionHint),
		ForwardedFor:    c.GetHeader("X-Forwarded-For"),
		RealIP:          c.GetHeader("X-Real-IP"),
		RemoteAddress:   c.Request.RemoteAddr,
	}
}

// principal returns the guard's principal; handlers behind RequireAuth can
// rely on it being present.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.GetPrincipalFromContext(c)
	if !ok {
		respondError(c, apperrors.ErrMissingToken)
	}
	return p, ok
}

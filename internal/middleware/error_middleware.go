package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmind/campusmind/internal/app/models/dto"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// HandleAPIError maps application errors to HTTP responses
func HandleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrResourceNotFound),
		errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrConversationNotFound),
		errors.Is(err, apperrors.ErrCommunityNotFound):
		c.JSON(http.StatusNotFound, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found"),
		})
	case errors.Is(err, apperrors.ErrPermissionDenied),
		errors.Is(err, apperrors.ErrNotParticipant),
		errors.Is(err, apperrors.ErrNotMember):
		c.JSON(http.StatusForbidden, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied"),
		})
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials"),
		})
	case errors.Is(err, apperrors.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeAccountDisabled, "Account is disabled"),
		})
	case errors.Is(err, apperrors.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired"),
		})
	case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token"),
		})
	case errors.Is(err, apperrors.ErrTokenNotFound):
		c.JSON(http.StatusUnauthorized, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "Token not found"),
		})
	case errors.Is(err, apperrors.ErrAlreadyMember):
		c.JSON(http.StatusConflict, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Already a member"),
		})
	case errors.Is(err, apperrors.ErrValidationFailed):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed")
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			detail = detail.WithDetails(custom.Message)
		}
		c.JSON(http.StatusBadRequest, dto.APIResponse{Error: detail})
	case errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Bad request"),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
		})
	}
}

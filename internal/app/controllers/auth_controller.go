// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/app/models/dto"
	"github.com/campusmind/campusmind/internal/app/services"
	"github.com/campusmind/campusmind/internal/middleware"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Login authenticates a user and returns a token pair. The access token is
// additionally set as an HttpOnly cookie so browser clients carry the session
// without exposing the token to script.
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format"),
		})
		return
	}

	user, pair, err := c.authService.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setSessionCookie(ctx, pair.AccessToken, pair.ExpiresIn)

	c.logger.Info().Int64("userID", user.ID).Str("role", string(user.Role)).Msg("User logged in")
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: tokenResponse(user, pair)})
}

// Refresh rotates the refresh token and reissues the pair
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req dto.RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format"),
		})
		return
	}

	user, pair, err := c.authService.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setSessionCookie(ctx, pair.AccessToken, pair.ExpiresIn)
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: tokenResponse(user, pair)})
}

// Logout revokes the caller's refresh tokens and clears the session cookie
func (c *AuthController) Logout(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required"),
		})
		return
	}

	if err := c.authService.Logout(ctx.Request.Context(), userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.SetCookie("access_token", "", -1, "/", "", false, true)
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: gin.H{"message": "Logged out"}})
}

// SocketToken mints the short-lived credential the websocket handshake
// presents; the session cookie itself is unreadable from script.
func (c *AuthController) SocketToken(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required"),
		})
		return
	}

	token, expiresIn, err := c.authService.SocketToken(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.SocketTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	}})
}

func (c *AuthController) setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetCookie("access_token", token, maxAge, "/", "", false, true)
}

func tokenResponse(user *models.User, pair *services.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresIn:        pair.ExpiresIn,
		RefreshExpiresIn: pair.RefreshExpiresIn,
		User: &dto.UserSummary{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      string(user.Role),
			CollegeID: user.CollegeID,
		},
	}
}

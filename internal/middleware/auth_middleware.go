package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/app/models/dto"
	"github.com/campusmind/campusmind/internal/pkg/auth"
)

// Context keys set by JWTAuth
const (
	ContextUserID    = "userID"
	ContextRole      = "role"
	ContextCollegeID = "collegeID"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// JWTAuth validates the bearer token (or the access-token cookie set at
// login) and stores the verified identity on the request context. Only
// access-scoped tokens pass; socket tokens are not a session substitute.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		if header := c.GetHeader("Authorization"); header != "" {
			tokenString, _ = auth.ExtractBearerToken(header)
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{
				Error: dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required"),
			})
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			code := dto.ErrorCodeInvalidToken
			details := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code = dto.ErrorCodeExpiredToken
				details = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{
				Error: dto.NewErrorDetail(code, "Authentication failed").WithDetails(details),
			})
			return
		}

		if claims.Scope != auth.ScopeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{
				Error: dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Authentication failed").WithDetails("Token not valid for API access"),
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, models.RoleType(claims.Role))
		c.Set(ContextCollegeID, claims.CollegeID)

		c.Next()
	}
}

// RoleRequired gates a route to the given roles; runs after JWTAuth
func (m *AuthMiddleware) RoleRequired(roles ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := CurrentRole(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{
				Error: dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required"),
			})
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied"),
		})
	}
}

// CurrentUserID returns the authenticated user id from the request context
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CurrentRole returns the authenticated role from the request context
func CurrentRole(c *gin.Context) (models.RoleType, bool) {
	v, ok := c.Get(ContextRole)
	if !ok {
		return "", false
	}
	role, ok := v.(models.RoleType)
	return role, ok
}

// CurrentCollegeID returns the authenticated tenant from the request context
func CurrentCollegeID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextCollegeID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

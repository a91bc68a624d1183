package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models/dto"
	"github.com/campusmind/campusmind/internal/app/services"
	"github.com/campusmind/campusmind/internal/middleware"
)

// CommunityController handles the HTTP surface of peer-support communities
type CommunityController struct {
	communityService *services.CommunityService
	logger           zerolog.Logger
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService *services.CommunityService, logger zerolog.Logger) *CommunityController {
	return &CommunityController{
		communityService: communityService,
		logger:           logger,
	}
}

// List returns the communities of the caller's college
func (c *CommunityController) List(ctx *gin.Context) {
	var query dto.CommunityListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid query parameters"),
		})
		return
	}

	collegeID, _ := middleware.CurrentCollegeID(ctx)

	communities, err := c.communityService.List(ctx.Request.Context(), collegeID, query.Search)
	if err != nil {
		c.logger.Error().Err(err).Int64("collegeID", collegeID).Msg("Failed to list communities")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: communities})
}

// Get returns a single community with its member count
func (c *CommunityController) Get(ctx *gin.Context) {
	communityID, ok := c.communityParam(ctx)
	if !ok {
		return
	}

	collegeID, _ := middleware.CurrentCollegeID(ctx)

	community, err := c.communityService.Get(ctx.Request.Context(), communityID, collegeID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: community})
}

// Create creates a community; route-level role gating keeps students out
func (c *CommunityController) Create(ctx *gin.Context) {
	var req dto.CreateCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format"),
		})
		return
	}

	userID, _ := middleware.CurrentUserID(ctx)
	role, _ := middleware.CurrentRole(ctx)
	collegeID, _ := middleware.CurrentCollegeID(ctx)

	community, err := c.communityService.Create(ctx.Request.Context(), userID, role, collegeID, req.Title, req.Description)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("communityID", community.ID).Int64("createdBy", userID).Msg("Community created")
	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: community})
}

// Join adds the caller to a community of their college
func (c *CommunityController) Join(ctx *gin.Context) {
	communityID, ok := c.communityParam(ctx)
	if !ok {
		return
	}

	userID, _ := middleware.CurrentUserID(ctx)
	collegeID, _ := middleware.CurrentCollegeID(ctx)

	if err := c.communityService.Join(ctx.Request.Context(), communityID, userID, collegeID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: gin.H{"message": "Joined community"}})
}

// Leave removes the caller's membership
func (c *CommunityController) Leave(ctx *gin.Context) {
	communityID, ok := c.communityParam(ctx)
	if !ok {
		return
	}

	userID, _ := middleware.CurrentUserID(ctx)

	if err := c.communityService.Leave(ctx.Request.Context(), communityID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: gin.H{"message": "Left community"}})
}

func (c *CommunityController) communityParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid community id"),
		})
		return 0, false
	}
	return id, true
}

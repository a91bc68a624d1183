package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models/dto"
	"github.com/campusmind/campusmind/internal/app/services"
	"github.com/campusmind/campusmind/internal/middleware"
)

// ChatController handles the HTTP surface of direct conversations; live
// traffic goes over the websocket.
type ChatController struct {
	chatService *services.ChatService
	logger      zerolog.Logger
}

// NewChatController creates a new ChatController
func NewChatController(chatService *services.ChatService, logger zerolog.Logger) *ChatController {
	return &ChatController{
		chatService: chatService,
		logger:      logger,
	}
}

// ListConversations returns the caller's conversations ordered by recency
func (c *ChatController) ListConversations(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	collegeID, _ := middleware.CurrentCollegeID(ctx)

	previews, err := c.chatService.ListConversations(ctx.Request.Context(), userID, collegeID)
	if err != nil {
		c.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to list conversations")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: previews})
}

// StartConversation gets or creates the thread between the caller and a peer
func (c *ChatController) StartConversation(ctx *gin.Context) {
	var req dto.StartConversationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format"),
		})
		return
	}

	userID, _ := middleware.CurrentUserID(ctx)
	role, _ := middleware.CurrentRole(ctx)
	collegeID, _ := middleware.CurrentCollegeID(ctx)

	conv, err := c.chatService.StartConversation(ctx.Request.Context(), userID, role, collegeID, req.PeerID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: conv})
}

// Delete removes a conversation and its message history
func (c *ChatController) Delete(ctx *gin.Context) {
	conversationID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid conversation id"),
		})
		return
	}

	userID, _ := middleware.CurrentUserID(ctx)

	if err := c.chatService.DeleteConversation(ctx.Request.Context(), conversationID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: gin.H{"message": "Conversation deleted"}})
}

// History returns a backward page of a conversation's messages
func (c *ChatController) History(ctx *gin.Context) {
	conversationID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid conversation id"),
		})
		return
	}

	var query dto.HistoryQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid query parameters"),
		})
		return
	}

	var before *time.Time
	if query.Before != "" {
		parsed, err := time.Parse(time.RFC3339, query.Before)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.APIResponse{
				Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid 'before' timestamp").WithDetails("Expected RFC3339"),
			})
			return
		}
		before = &parsed
	}

	userID, _ := middleware.CurrentUserID(ctx)

	messages, err := c.chatService.History(ctx.Request.Context(), conversationID, userID, before, query.Limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: messages})
}

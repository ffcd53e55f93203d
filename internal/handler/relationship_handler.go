package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/service"
)

// RelationshipHandler handles blocks and friend request acceptance
type RelationshipHandler struct {
	relService *service.RelationshipService
}

func NewRelationshipHandler(relService *service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relService: relService}
}

// GetRelationship godoc
// @Summary Relationship with another user
// @Tags Relationships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.RelationshipResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /users/{id}/relationship [get]
func (h *RelationshipHandler) GetRelationship(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	me := currentIdentity(c)
	rel, err := h.relService.Relationship(c.Request.Context(), me.ID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rel)
}

// BlockUser godoc
// @Summary Block a user
// @Description Blocking twice is a no-op
// @Tags Relationships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /users/{id}/block [post]
func (h *RelationshipHandler) BlockUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	me := currentIdentity(c)
	if err := h.relService.BlockUser(c.Request.Context(), me.ID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "User blocked"})
}

// UnblockUser godoc
// @Summary Unblock a user
// @Tags Relationships
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Router /users/{id}/block [delete]
func (h *RelationshipHandler) UnblockUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	me := currentIdentity(c)
	if err := h.relService.UnblockUser(c.Request.Context(), me.ID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AcceptFriendRequest godoc
// @Summary Accept a friend request
// @Description Only the recipient of a pending request may accept it
// @Tags Relationships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Friend request ID"
// @Success 200 {object} model.FriendshipResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /friends/requests/{id}/accept [post]
func (h *RelationshipHandler) AcceptFriendRequest(c *gin.Context) {
	requestID, ok := parseID(c, "id")
	if !ok {
		return
	}

	me := currentIdentity(c)
	friendship, err := h.relService.AcceptFriendRequest(c.Request.Context(), requestID, me.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, friendship)
}

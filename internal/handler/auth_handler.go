package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tkdhub/chatcore/internal/middleware"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/service"
)

// AuthHandler exposes the authenticated principal and token revocation
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Me godoc
// @Summary Current identity
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Identity
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c))
}

// Logout godoc
// @Summary Logout
// @Description Revoke the presented token until it expires
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SuccessResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetString(middleware.TokenKey)
	if err := h.authService.Revoke(c.Request.Context(), tokenString); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Logged out successfully"})
}

package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tkdhub/chatcore/internal/middleware"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/pkg/apperror"
)

func currentIdentity(c *gin.Context) *model.Identity {
	return c.MustGet(middleware.IdentityKey).(*model.Identity)
}

// parseID reads a positive int64 path parameter, replying 400 when it is not one
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps a service error onto its HTTP status
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, model.ErrorResponse{Error: "Internal server error", Code: string(apperror.CodeInternal)})
		return
	}

	msg := err.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	c.JSON(status, model.ErrorResponse{Error: msg, Code: string(apperror.CodeOf(err))})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "Invalid request",
		Code:    string(apperror.CodeInvalidArgument),
		Message: err.Error(),
	})
}

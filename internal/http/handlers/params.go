package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/http/response"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/apierr"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

// actorFrom returns the caller identity; the zero Actor means anonymous.
func actorFrom(c *gin.Context) domainagg.Actor {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		return domainagg.Actor{}
	}
	return domainagg.Actor{UserID: rd.UserID, UserName: rd.UserName}
}

// pathID parses the :id path parameter, writing a 400 on failure.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return false
	}
	return true
}

type pageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=0"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// respondFailure logs server-side failures and writes the mapped error.
func respondFailure(c *gin.Context, log *logger.Logger, op string, err error) {
	if apiErr := apierr.FromError(err); apiErr == nil || apiErr.Status >= http.StatusInternalServerError {
		log.Error(op+" failed", append([]any{"error", err}, ctxutil.LogFields(c.Request.Context())...)...)
	}
	response.RespondAppError(c, err)
}

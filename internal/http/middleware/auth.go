package middleware

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/http/response"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"

	maxUserNameRunes = 120
)

// ActorMiddleware trusts the identity headers set by the upstream gateway.
type ActorMiddleware struct {
	log *logger.Logger
}

func NewActorMiddleware(log *logger.Logger) *ActorMiddleware {
	return &ActorMiddleware{log: log.With("Middleware", "ActorMiddleware")}
}

// AttachActor stores the caller identity when the headers are present.
// Malformed headers are rejected; missing headers are not.
func (am *ActorMiddleware) AttachActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd, err := actorFromHeaders(c)
		if err != nil {
			am.log.Debug("rejecting actor headers", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			c.Abort()
			return
		}
		if rd != nil {
			c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		}
		c.Next()
	}
}

// RequireActor aborts with 401 unless AttachActor found an identity.
func (am *ActorMiddleware) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing "+HeaderUserID))
			c.Abort()
			return
		}
		c.Next()
	}
}

func actorFromHeaders(c *gin.Context) (*ctxutil.RequestData, error) {
	raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return nil, errors.New("invalid " + HeaderUserID)
	}
	name := strings.TrimSpace(c.GetHeader(HeaderUserName))
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > maxUserNameRunes {
		return nil, errors.New("invalid " + HeaderUserName)
	}
	return &ctxutil.RequestData{UserID: id, UserName: name}, nil
}

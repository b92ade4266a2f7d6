package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/event-pos/internal/core/domain"
)

const (
	sessionName    = "pos_session"
	sessionUserKey = "user_id"
	sessionCartKey = "cart_id"

	// cartHeader lets token-only clients pick a stable cart without cookies.
	cartHeader = "X-Cart-Session"
)

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// resolveProfile looks the caller up once per request, from a bearer token or
// the session cookie, and stores the profile in the request context.
// Anonymous requests pass through; the capability gate rejects them.
func (h *HTTPHandler) resolveProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := h.callerID(c)
		if err != nil {
			fail(c, err)
			c.Abort()
			return
		}
		if userID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		profile, err := h.auth.CurrentUser(ctx, userID)
		switch {
		case err == nil:
			c.Request = c.Request.WithContext(domain.WithProfile(ctx, *profile))
		case errors.Is(err, domain.ErrUnauthenticated):
			h.logger.Debug("session refers to unknown user", zap.String("user_id", userID))
		default:
			fail(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *HTTPHandler) callerID(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return "", domain.ErrUnauthenticated
		}
		claims, err := h.tokens.Parse(token)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}

	userID, _ := sessions.Default(c).Get(sessionUserKey).(string)
	return userID, nil
}

// requireAuth admits any signed-in user.
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := domain.ProfileFromContext(c.Request.Context()); !ok {
			fail(c, domain.ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCapability is the single access gate for HTTP routes.
func RequireCapability(capability domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := domain.ProfileFromContext(c.Request.Context())
		if !ok {
			fail(c, domain.ErrUnauthenticated)
			c.Abort()
			return
		}
		if !profile.Can(capability) {
			fail(c, domain.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// cartSession returns the key of the caller's cart, creating one in the
// session cookie on first use.
func cartSession(c *gin.Context) (string, error) {
	profile, _ := domain.ProfileFromContext(c.Request.Context())
	if id := strings.TrimSpace(c.GetHeader(cartHeader)); id != "" {
		return profile.ID + ":" + id, nil
	}

	sess := sessions.Default(c)
	id, _ := sess.Get(sessionCartKey).(string)
	if id == "" {
		id = uuid.NewString()
		sess.Set(sessionCartKey, id)
		if err := sess.Save(); err != nil {
			return "", err
		}
	}
	return profile.ID + ":" + id, nil
}

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, response{Success: true, Data: data})
}

func fail(c *gin.Context, err error) {
	status, message := httpStatus(err)
	c.JSON(status, response{Success: false, Error: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, response{Success: false, Error: message})
}

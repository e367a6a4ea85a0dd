package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/backend"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

const (
	SessionHeader  = "X-Session-ID"
	CartModeHeader = "X-Cart-Mode"

	sessionContextKey = "session"
)

var errNoSubject = errors.New("token names no user")

// SessionMiddleware resolves who the request acts for. A missing or malformed
// session id is replaced by a fresh one, echoed back in X-Session-ID. A bearer
// token signed with secret authenticates the request and is forwarded to the
// backend; expired, forged or malformed tokens count as guest.
func SessionMiddleware(secret []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := models.Session{ID: c.GetHeader(SessionHeader)}
		if _, err := uuid.Parse(sess.ID); err != nil {
			sess.ID = uuid.NewString()
		}
		c.Header(SessionHeader, sess.ID)

		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			userID, err := inspectToken(token, secret, time.Now())
			if err != nil {
				logger.Debug("treating request as guest", zap.String("session_id", sess.ID), zap.Error(err))
			} else {
				sess.Authenticated = true
				sess.UserID = userID
				sess.Token = token
				c.Request = c.Request.WithContext(backend.WithToken(c.Request.Context(), token))
			}
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// inspectToken verifies the HMAC signature and expiry of token and returns the
// user it was issued to.
func inspectToken(token string, secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token verification is not configured")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return "", err
	}
	for _, key := range []string{"user_id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	}
	return "", errNoSubject
}

func sessionFrom(c *gin.Context) models.Session {
	if v, ok := c.Get(sessionContextKey); ok {
		if sess, ok := v.(models.Session); ok {
			return sess
		}
	}
	return models.Session{ID: uuid.NewString()}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("session_id", c.Writer.Header().Get(SessionHeader)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrNoIdentity is returned when a request reaches an owner-scoped handler
// without a resolved user.
var ErrNoIdentity = errors.New("no authenticated user on request")

type contextKey string

const UserIDKey contextKey = "user_id"

// ResolveBearer verifies an Authorization header value and returns the user
// ID carried in the token subject. It is pure with respect to the request so
// token handling can be tested without an HTTP round trip.
func ResolveBearer(header string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return uuid.Nil, errors.New("authorization header is not a bearer token")
	}

	secretKey, err := jwtSecretFromEnv()
	if err != nil {
		return uuid.Nil, fmt.Errorf("signing secret: %w", err)
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, errors.New("token is not valid")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject: %w", err)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return userID, nil
}

// Middleware resolves the bearer identity and hands it to owner-scoped
// handlers through the request context.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
		}

		userID, err := ResolveBearer(header)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired credentials")
		}

		c.Set(string(UserIDKey), userID)
		return next(c)
	}
}

// GetUserIDFromContext returns the identity the middleware resolved, or
// ErrNoIdentity when the route was reached without one.
func GetUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(string(UserIDKey)).(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoIdentity
	}
	return id, nil
}

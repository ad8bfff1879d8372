package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// ctxUserID is the echo context key holding the verified caller subject.
const ctxUserID = "auth.user_id"

// callerGate verifies an optional HS256 bearer token on status queries.
// An absent or invalid token does not fail the request: the caller is
// answered as if they held no licence, so probing the endpoint reveals
// nothing about other users. With no token secret configured the gate
// is a pass-through and the endpoint is open.
func (s *Server) callerGate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret := s.cfg.Auth.TokenSecret
		if secret == "" {
			return next(c)
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return c.JSON(http.StatusOK, noLicenceResponse())
		}

		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			return c.JSON(http.StatusOK, noLicenceResponse())
		}

		c.Set(ctxUserID, claims.Subject)
		return next(c)
	}
}

// adminGate checks the X-Admin-Password header against the configured
// bcrypt hash. Granting is disabled entirely when no hash is set.
func (s *Server) adminGate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		hash := s.cfg.Auth.AdminPasswordHash
		if hash == "" {
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error: "granting is disabled: no admin password configured",
			})
		}

		password := c.Request().Header.Get("X-Admin-Password")
		if password == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error: "authentication required",
			})
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error: "invalid authentication",
			})
		}
		return next(c)
	}
}

// Package identity resolves the opaque actor identifier attached to each
// request. Authentication itself happens upstream at the gateway; this
// service only consumes the identity it is handed.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const actorKey contextKey = "actor_id"

const actorHeader = "X-Actor-ID"

// Config controls how the actor is extracted.
type Config struct {
	// Secret enables HS256 signature verification of the gateway token.
	// When empty, the token's claims are read without verification, which
	// is only acceptable behind a gateway that already authenticated it.
	Secret string
	// AllowHeader permits the X-Actor-ID header as a fallback source,
	// intended for development and internal tooling.
	AllowHeader bool
}

// Middleware extracts the actor from a Bearer token's subject claim (or the
// X-Actor-ID header when allowed) and stores it on both the echo and request
// contexts. Requests without a resolvable actor proceed with an empty actor:
// the ledger records whatever identity the collaborator supplied.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := actorFromRequest(c, cfg)

			c.Set("actor_id", actor)
			ctx := context.WithValue(c.Request().Context(), actorKey, actor)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func actorFromRequest(c echo.Context, cfg Config) string {
	authz := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		if sub, err := subjectFromToken(strings.TrimPrefix(authz, "Bearer "), cfg.Secret); err == nil && sub != "" {
			return sub
		}
	}

	if cfg.AllowHeader {
		if h := c.Request().Header.Get(actorHeader); h != "" {
			return h
		}
	}

	return ""
}

func subjectFromToken(raw, secret string) (string, error) {
	var claims jwt.RegisteredClaims

	if secret == "" {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
			return "", err
		}
		return claims.Subject, nil
	}

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ActorFromContext returns the actor resolved by Middleware, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

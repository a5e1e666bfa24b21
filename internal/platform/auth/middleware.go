package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

// Role names carried in the token's roles claim.
const (
	RoleClient       = "client"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
)

// Dev-mode identity headers.
const (
	DevUserIDHeader = "X-User-ID"
	DevRoleHeader   = "X-User-Role"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Roles  []string
	Name   string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
	Name  string   `json:"name,omitempty"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// HS256 key; when set, JWKS is not consulted.
	SigningKey []byte
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var keyFunc jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		jwksURL := cfg.JWKSURL
		if jwksURL == "" && cfg.Issuer != "" {
			if discovered, err := DiscoverJWKSURL(cfg.Issuer); err == nil {
				jwksURL = discovered
			}
		}
		keyFunc = jwksKeyFunc(NewJWKSCache(jwksURL, defaultJWKSCacheTTL))
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a user id")
			}

			setPrincipal(c, Principal{UserID: userID, Roles: claims.Roles, Name: claims.Name})
			return next(c)
		}
	}
}

// DevAuthMiddleware trusts the X-User-ID and X-User-Role headers. Requests
// without an X-User-ID header are rejected.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(DevUserIDHeader)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+DevUserIDHeader+" header")
			}
			userID, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+DevUserIDHeader+" header")
			}

			var roles []string
			for _, r := range strings.Split(c.Request().Header.Get(DevRoleHeader), ",") {
				if r = strings.TrimSpace(r); r != "" {
					roles = append(roles, r)
				}
			}
			if len(roles) == 0 {
				roles = []string{RoleClient}
			}

			setPrincipal(c, Principal{UserID: userID, Roles: roles})
			return next(c)
		}
	}
}

func setPrincipal(c echo.Context, p Principal) {
	ctx := WithPrincipal(c.Request().Context(), p)
	c.SetRequest(c.Request().WithContext(ctx))
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// UserIDFromContext returns uuid.Nil when the request is unauthenticated.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

func RolesFromContext(ctx context.Context) []string {
	p, _ := PrincipalFromContext(ctx)
	return p.Roles
}

package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Role defines the access level for a caller.
type Role string

const (
	RoleManager  Role = "manager"
	RoleWorker   Role = "worker"
	RoleReadOnly Role = "readonly"
)

var roleLevel = map[Role]int{
	RoleReadOnly: 1,
	RoleWorker:   2,
	RoleManager:  3,
}

// ParseRole validates a raw role string, defaulting to readonly.
func ParseRole(raw string) Role {
	switch r := Role(raw); r {
	case RoleManager, RoleWorker, RoleReadOnly:
		return r
	}
	return RoleReadOnly
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode      string // "none", "api-key", "jwt"
	APIKey    string
	JWTSecret string
	TokenTTL  time.Duration
}

// openPaths are reachable without credentials.
var openPaths = map[string]bool{
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/auth/token": true,
}

// NewAuthMiddleware returns a Fiber middleware that validates the Authorization header.
func NewAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Mode == "none" {
			c.Locals("role", RoleManager)
			return c.Next()
		}

		path := c.Path()
		if openPaths[path] {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		// The raw API key always works and carries full access.
		if cfg.APIKey != "" && token == cfg.APIKey {
			c.Locals("role", RoleManager)
			return c.Next()
		}

		// In jwt mode a signed token carries the caller's role.
		if cfg.Mode == "jwt" && cfg.JWTSecret != "" {
			if role, err := validateToken(token, cfg.JWTSecret); err == nil {
				c.Locals("role", role)
				return c.Next()
			}
		}

		logger.Warn().
			Str("path", path).
			Str("method", c.Method()).
			Msg("unauthorized request: invalid credentials")

		return problemResponse(c, fiber.StatusUnauthorized,
			"invalid_credentials", "Unauthorized",
			"Invalid API key or token")
	}
}

// requireRole returns a middleware that enforces a minimum role level.
func requireRole(minRole Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(Role)
		if roleLevel[role] < roleLevel[minRole] {
			return problemResponse(c, fiber.StatusForbidden,
				"insufficient_role", "Forbidden",
				"Insufficient permissions for this operation")
		}
		return c.Next()
	}
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// issueToken mints a short-lived HS256 token carrying a role claim.
func issueToken(role Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskflow",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// validateToken parses and verifies a bearer token, returning its role.
func validateToken(raw, secret string) (Role, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return ParseRole(claims.Role), nil
}

// NewTokenHandler returns the POST /api/v1/auth/token handler. It exchanges
// the configured API key for a short-lived JWT. Only available in jwt mode.
func NewTokenHandler(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Mode != "jwt" || cfg.JWTSecret == "" {
			return problemResponse(c, fiber.StatusNotFound,
				"token_auth_disabled", "Not Found",
				"Token authentication is not enabled")
		}

		var req TokenRequest
		if err := c.BodyParser(&req); err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_body", "Bad Request",
				"Invalid request body: "+err.Error())
		}

		if cfg.APIKey == "" || req.APIKey != cfg.APIKey {
			logger.Warn().Str("ip", c.IP()).Msg("token exchange with invalid API key")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_credentials", "Unauthorized",
				"Invalid API key")
		}

		role := RoleManager
		if req.Role != "" {
			role = ParseRole(req.Role)
		}

		signed, err := issueToken(role, cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return problemResponse(c, fiber.StatusInternalServerError,
				"token_issue_failed", "Internal Server Error",
				"Could not issue token")
		}

		return c.JSON(TokenResponse{
			Token:     signed,
			TokenType: "Bearer",
			ExpiresIn: int64(cfg.TokenTTL.Seconds()),
		})
	}
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

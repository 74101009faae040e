// middleware/auth.go
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"raid-dashboard/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
	LocalUserRoles = "user_roles"
	LocalService   = "service_caller"

	RoleAdmin = "admin"
)

// SupabaseClaims is the subset of a Supabase access token we rely on.
type SupabaseClaims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role  string   `json:"role"`
		Roles []string `json:"roles"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// Roles merges app_metadata.role and app_metadata.roles. The top-level role
// ("authenticated") is a Postgres role, not an application role.
func (c *SupabaseClaims) Roles() []string {
	var roles []string
	if c.AppMetadata.Role != "" {
		roles = append(roles, c.AppMetadata.Role)
	}
	for _, r := range c.AppMetadata.Roles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// ParseSupabaseToken verifies an HS256 token signed with the project JWT secret.
func ParseSupabaseToken(secret, token string) (*SupabaseClaims, error) {
	claims := &SupabaseClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func attachClaims(c *fiber.Ctx, claims *SupabaseClaims) {
	c.Locals(LocalUserID, claims.Subject)
	c.Locals(LocalUserEmail, claims.Email)
	c.Locals(LocalUserRoles, claims.Roles())
}

// UserContextMiddleware requires a valid Supabase bearer token and exposes the
// caller through c.Locals.
func UserContextMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		claims, err := ParseSupabaseToken(jwtSecret, token)
		if err != nil {
			logger.Debugf("[AUTH] rejected token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		attachClaims(c, claims)
		return c.Next()
	}
}

// OptionalUserContext attaches the caller when a valid token is present and
// lets anonymous requests through.
func OptionalUserContext(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if claims, err := ParseSupabaseToken(jwtSecret, token); err == nil {
				attachClaims(c, claims)
			}
		}
		return c.Next()
	}
}

func HasRole(c *fiber.Ctx, role string) bool {
	roles, _ := c.Locals(LocalUserRoles).([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequireAdmin must run after UserContextMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasRole(c, RoleAdmin) {
			logger.Warnf("[AUTH] non-admin %v denied on %s", c.Locals(LocalUserID), c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		return c.Next()
	}
}

// AdminOrServiceToken accepts either an admin Supabase token or the internal
// service token.
func AdminOrServiceToken(jwtSecret, serviceToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		if serviceToken != "" && tokensEqual(token, serviceToken) {
			c.Locals(LocalService, true)
			return c.Next()
		}
		claims, err := ParseSupabaseToken(jwtSecret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		attachClaims(c, claims)
		if !HasRole(c, RoleAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		return c.Next()
	}
}

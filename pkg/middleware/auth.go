package middleware

import (
	"errors"
	"strings"

	"contract-lifecycle/pkg/accesscontrol"
	"contract-lifecycle/pkg/config"
	"contract-lifecycle/pkg/errutil"
	"contract-lifecycle/pkg/tenant"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
)

var Module = fx.Module("middleware", fx.Provide(NewTokenVerifier))

// Claims is the bearer token payload identifying a tenant member.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenVerifier turns bearer tokens into tenant contexts.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(cfg *config.Config) *TokenVerifier {
	return &TokenVerifier{secret: []byte(cfg.Auth.JWTSecret), issuer: cfg.Auth.Issuer}
}

// Verify validates an HS256 token and returns the identity it carries.
func (v *TokenVerifier) Verify(raw string) (tenant.Context, error) {
	if len(v.secret) == 0 {
		return tenant.Context{}, errors.New("token secret is not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return tenant.Context{}, err
	}
	if !token.Valid {
		return tenant.Context{}, errors.New("invalid token")
	}
	if claims.TenantID == "" || claims.Subject == "" {
		return tenant.Context{}, errors.New("token is missing tenant or subject")
	}

	return tenant.Context{
		TenantID:        claims.TenantID,
		UserID:          claims.Subject,
		Roles:           claims.Roles,
		IsAuthenticated: true,
	}, nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Tenant requires a valid bearer token and stores the caller's tenant
// context on the request context.
func Tenant(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(errutil.Unauthorized("missing bearer token", nil))
			c.Abort()
			return
		}

		tc, err := v.Verify(raw)
		if err != nil {
			_ = c.Error(errutil.Unauthorized("invalid bearer token", err))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(tenant.With(c.Request.Context(), tc))
		c.Next()
	}
}

// Authorize lets the request through when one of the caller's roles grants
// action on object.
func Authorize(az accesscontrol.Authorizer, object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := tenant.Require(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		allowed, err := az.Allowed(tc.Roles, object, action)
		if err != nil {
			_ = c.Error(errutil.Internal("authorization failed", err))
			c.Abort()
			return
		}
		if !allowed {
			_ = c.Error(errutil.Forbidden("not allowed to "+action+" "+object, nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

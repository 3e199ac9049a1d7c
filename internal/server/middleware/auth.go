// Package middleware provides HTTP middleware for authentication, logging, and request processing.
package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"

	"ContentGuard/internal/conf"
	pkglog "ContentGuard/pkg/log"
)

// adminPathPrefix guards the recovery and diagnostics API. Content routes
// stay public; only administrative operations require the token.
const adminPathPrefix = "/admin/"

// Auth returns the admin authentication middleware. It accepts the token
// from "Authorization: Bearer {token}" or the X-Admin-Token header and
// compares in constant time. Must run after Logging so the admin id lands
// in the request context.
func Auth(authConf *conf.Auth, logger *pkglog.LogHelper) middleware.Middleware {
	var adminToken string
	if authConf != nil {
		adminToken = authConf.AdminToken
	}

	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			var (
				path  string
				token string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					path = httpReq.URL.Path

					authHeader := httpReq.Header.Get("Authorization")
					if authHeader != "" {
						token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
					}
					if token == "" {
						token = httpReq.Header.Get("X-Admin-Token")
					}
				}
			}

			if !strings.HasPrefix(path, adminPathPrefix) {
				return handler(ctx, req)
			}

			if adminToken == "" {
				logger.Auth("Admin request rejected: no admin token configured",
					"path", path)
				return nil, kerrors.New(503, "ADMIN_AUTH_UNAVAILABLE", "admin API disabled: no token configured")
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				logger.Auth("Admin request rejected: invalid token",
					"path", path,
					"token_masked", maskToken(token))
				return nil, kerrors.Unauthorized("ADMIN_AUTH_FAILED", "invalid admin token")
			}

			// The logging middleware created the request context earlier in
			// the chain; record who is acting for downstream audit entries.
			reqCtx := pkglog.GetRequestContext(ctx)
			if reqCtx.RequestID != "unknown" {
				reqCtx.AdminID = "admin"
			} else {
				ctx = pkglog.WithRequestContext(ctx, pkglog.GenerateRequestID(), "admin", "")
			}

			logger.Auth("Authenticated admin request ("+maskToken(token)+")",
				"path", path,
				"token_masked", maskToken(token))

			return handler(ctx, req)
		}
	}
}

// maskToken shows at most the first 4 characters of a token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "***"
}

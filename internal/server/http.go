package server

import (
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"

	"ContentGuard/internal/conf"
	"ContentGuard/internal/server/middleware"
	"ContentGuard/internal/service"
	cmserrors "ContentGuard/pkg/errors"
	pkglog "ContentGuard/pkg/log"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, authConf *conf.Auth, content *service.ContentService, recoverySvc *service.RecoveryService, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper), // request id, timing, slow request detection
			middleware.Auth(authConf, logHelper),
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != nil {
		opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)

	registerContentRoutes(srv, content)
	registerAdminRoutes(srv, recoverySvc)

	return srv
}

func registerContentRoutes(srv *http.Server, s *service.ContentService) {
	r := srv.Route("/api/v1")

	r.GET("/posts", func(ctx http.Context) error {
		reply, err := s.ListPosts(ctx)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.GET("/posts/{slug}", func(ctx http.Context) error {
		reply, err := s.GetPost(ctx, ctx.Vars().Get("slug"))
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.GET("/posts/{slug}/cta", func(ctx http.Context) error {
		reply, err := s.RouteCTA(ctx, ctx.Vars().Get("slug"))
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.GET("/categories", func(ctx http.Context) error {
		reply, err := s.ListCategories(ctx)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})
}

func registerAdminRoutes(srv *http.Server, s *service.RecoveryService) {
	r := srv.Route("/admin/api/v1")

	r.POST("/recovery/retry-failed", func(ctx http.Context) error {
		var req service.RetryFailedRequest
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest("INVALID_BODY", err.Error())
		}
		reply, err := s.RetryFailedDeletions(ctx, &req)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(202, reply)
	})

	r.POST("/recovery/retry-queued", func(ctx http.Context) error {
		var req service.RetryQueuedRequest
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest("INVALID_BODY", err.Error())
		}
		reply, err := s.RetryQueuedDeletions(ctx, &req)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(202, reply)
	})

	r.POST("/recovery/bulk-retry", func(ctx http.Context) error {
		var req service.BulkRetryRequest
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest("INVALID_BODY", err.Error())
		}
		reply, err := s.BulkRetryDeletions(ctx, &req)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(202, reply)
	})

	r.POST("/recovery/queue/cleanup", func(ctx http.Context) error {
		var req service.CleanupQueueRequest
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest("INVALID_BODY", err.Error())
		}
		reply, err := s.CleanupOfflineQueue(ctx, &req)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.GET("/recovery/operations", func(ctx http.Context) error {
		reply, err := s.ListOperations(ctx)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.GET("/recovery/operations/{id}", func(ctx http.Context) error {
		reply, err := s.GetOperation(ctx, ctx.Vars().Get("id"))
		if err != nil {
			return kerrors.NotFound("OPERATION_NOT_FOUND", err.Error())
		}
		return ctx.Result(200, reply)
	})

	r.POST("/recovery/operations/{id}/cancel", func(ctx http.Context) error {
		reply, err := s.CancelOperation(ctx, ctx.Vars().Get("id"))
		if err != nil {
			return kerrors.BadRequest("CANCEL_FAILED", err.Error())
		}
		return ctx.Result(200, reply)
	})

	r.POST("/diagnostics", func(ctx http.Context) error {
		autoFix := ctx.Query().Get("autoFix") == "true"
		reply, err := s.RunDiagnostics(ctx, autoFix)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.GET("/health", func(ctx http.Context) error {
		reply, err := s.GetHealth(ctx)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.POST("/breakers/reset", func(ctx http.Context) error {
		reply, err := s.ResetBreakers(ctx)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})

	r.GET("/audit-logs", func(ctx http.Context) error {
		req := service.AuditLogsRequest{
			Action:    ctx.Query().Get("action"),
			StartDate: ctx.Query().Get("startDate"),
			EndDate:   ctx.Query().Get("endDate"),
		}
		reply, err := s.GetAuditLogs(ctx, &req)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, reply)
	})
}

// toHTTPError maps classified CMS errors to transport errors so clients see
// meaningful status codes instead of a blanket 500.
func toHTTPError(err error) error {
	var cmsErr *cmserrors.CMSError
	if !errors.As(err, &cmsErr) {
		return kerrors.InternalServer("INTERNAL", err.Error())
	}
	switch cmsErr.Kind {
	case cmserrors.KindNotFound:
		return kerrors.NotFound("NOT_FOUND", err.Error())
	case cmserrors.KindValidation:
		return kerrors.BadRequest("VALIDATION_FAILED", err.Error())
	case cmserrors.KindAuth:
		return kerrors.New(502, "CMS_AUTH_FAILED", err.Error())
	case cmserrors.KindRateLimit:
		return kerrors.New(429, "RATE_LIMITED", err.Error())
	case cmserrors.KindCircuitOpen:
		return kerrors.New(503, "CIRCUIT_OPEN", err.Error())
	case cmserrors.KindNetwork, cmserrors.KindServer:
		return kerrors.New(502, "CMS_UNAVAILABLE", err.Error())
	default:
		return kerrors.InternalServer("INTERNAL", err.Error())
	}
}

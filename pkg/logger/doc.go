// Package logger builds *slog.Logger instances with functional options,
// helper attribute constructors, and attributes pulled from context.Context.
//
// New is the single factory. Options select the format (JSON or text), the
// minimum level, static attributes, and ContextExtractor callbacks that run on
// every record. WithEnvironment applies the presets used by the binaries:
// JSON at INFO for staging and production, text at DEBUG otherwise.
//
// # Usage
//
//	import "github.com/dmitrymomot/tenantkit/pkg/logger"
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "tenantd"),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "tenant provisioned",
//		logger.TenantSlug(id.Slug),
//		logger.Schema(id.SchemaName),
//	)
//
// Components that accept an optional logger default to Discard.
package logger

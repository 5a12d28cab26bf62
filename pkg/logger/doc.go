// Package logger builds *slog.Logger instances with per-environment defaults,
// attribute helpers and context-driven attribute injection.
//
// New wraps the text or JSON slog handler in a LogHandlerDecorator that runs
// every registered ContextExtractor on each record, so request-scoped values
// such as the environment or a request id show up without being passed
// explicitly.
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "contentplan"),
//		logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "dispatch sent",
//		logger.UserID(userID),
//		logger.Transition("pro_started"),
//		logger.Template("pro_started"),
//	)
//
// Error and Errors return an empty attribute for nil errors, which slog drops,
// so callers can pass them unconditionally.
package logger

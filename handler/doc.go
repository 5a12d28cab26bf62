// Package handler provides typed HTTP handlers with pluggable contexts,
// decorators and JSON responses.
//
// A HandlerFunc receives a Context (the request's context plus access to the
// request and response writer) and a request value, and returns a Response
// that renders itself. Wrap turns it into a plain http.HandlerFunc:
//
//	h := handler.HandlerFunc[handler.Context, struct{}](
//		func(ctx handler.Context, _ struct{}) handler.Response {
//			return handler.JSONBody(map[string]int{"processed": 2})
//		},
//	)
//	r.Get("/cron/reconcile", handler.Wrap(h,
//		handler.WithErrorHandler[handler.Context, struct{}](handler.NewErrorHandler(log)),
//	))
//
// # Responses
//
// JSON wraps data in the {"data":...} envelope and JSONError writes
// {"error":{"code":...}} into the same Envelope. JSONBody writes a document
// as-is. HTTPError values carry both the status code and a stable
// key used as the error code in JSON bodies.
//
// # Decorators
//
// Decorators wrap a HandlerFunc; the first one listed is the outermost.
// AllowMethods is provided for endpoints that accept a fixed set of methods.
package handler

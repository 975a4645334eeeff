// Package httputil provides the JSON response helpers, request parsing and
// middleware shared by the pluginhost admin API.
//
// # Responses
//
//	httputil.WriteJSON(w, r, http.StatusOK, snapshot.Order())
//	httputil.WriteNotFound(w, r, "plugin %q not found", id)
//
// Error bodies are ErrorResponse values carrying the request id set by
// RequestIDMiddleware.
//
// # Request Parsing
//
//	id, ok := httputil.PathParam(w, r, "id")
//	if !ok {
//		return // 400 already written
//	}
//	withExcluded, ok := httputil.QueryFlag(w, r, "excluded", false)
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//	)(router)
package httputil

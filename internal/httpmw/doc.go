// Package httpmw holds the middleware wrapped around the public site
// router. httpserver.NewHandler composes them outermost first: security
// headers, request id, client ip, rate limit, otel, catalog headers,
// metrics, logger, access log, recover, and finally the chi router.
//
// Query strings and user agents are kept out of log lines.
package httpmw

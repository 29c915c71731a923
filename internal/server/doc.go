// Package server provides the HTTP transport for sitepulse observers.
//
// This package is internal to sitepulse and handles all HTTP concerns:
//
//   - Dashboard serving: the embedded HTML page at "/"
//   - REST API: the latest snapshot at "/api/status", counters at
//     "/api/stats" and a liveness probe at "/api/health"
//   - Server-Sent Events: live snapshots at "/api/sse", one hub observer per
//     connection
//
// Routing uses chi with panic recovery, CORS and request logging
// middleware. The server supports graceful shutdown via context
// cancellation, with a 5-second timeout for in-flight requests.
//
// Users of the sitepulse library should not need to interact with this
// package directly. The server is started by [sitepulse.Monitor.Start].
package server

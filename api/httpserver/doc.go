// Package httpserver provides a reusable HTTP server shell with common
// functionality for the trust pipeline services.
//
// The package implements a base server with standard health endpoints,
// graceful shutdown, an optional metrics listener, and flexible routing.
// The transformer and combiner binaries reuse the shell while registering
// their specific endpoints.
//
// # Key Components
//
//   - Server: HTTP server with health checks, metrics, and lifecycle management
//   - RouteRegistrar: Interface for services to register their routes
//
// # Server Lifecycle
//
//  1. Initialization: Configure the server with HTTP settings and registrars
//  2. Startup: Run HTTP and metrics servers in background goroutines
//  3. Operation: Handle requests with request logging and panic recovery
//  4. Readiness Control: Support drain/undrain operations for load balancers
//  5. Graceful Shutdown: Wait for in-flight requests to complete
//
// # Health and Diagnostics
//
// All servers built on this shell automatically include:
//
//   - Liveness Check: Simple endpoint to verify the server is running (/livez)
//   - Readiness Check: Endpoint indicating if the server accepts requests (/readyz)
//   - Drain Control: Endpoints to prepare for graceful shutdown (/drain, /undrain)
//   - Metrics: Optional Prometheus-compatible metrics endpoint
//   - Profiling: Optional pprof debugging endpoints when enabled
//
// # Usage Example
//
//	// Implement the RouteRegistrar interface for your handler
//	func (h *MyHandler) RegisterRoutes(r chi.Router) {
//	    r.Post("/my-endpoint", h.handleMyEndpoint)
//	}
//
//	srv, err := httpserver.New(&httpserver.Config{
//	    ListenAddr: ":8080",
//	    Log:        log,
//	}, handler)
//	if err != nil {
//	    return err
//	}
//	srv.RunInBackground()
//	defer srv.Shutdown()
package httpserver

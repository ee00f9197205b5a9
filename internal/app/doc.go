// Package app wires PlotPilot together and runs it.
//
// NewApplication takes a loaded configuration and builds, in order: the
// logger, OpenTelemetry providers, business metrics, the websocket event
// hub, the in-memory session store, the dataset and health services, the
// chi router and the HTTP server. Nothing runs until Run or Serve is called.
//
// # Routes
//
//	GET  /                                    front end (web/index.html)
//	GET  /static/*                            front-end assets
//	     /api/datasets/...                    dataset operations
//	GET  /api/datasets/{datasetID}/events     websocket event stream
//	GET  /api/health, /api/version, ...       health and build info
//	GET  /metrics                             Prometheus exposition
//
// The websocket route sits outside the compressing and timeout middleware
// so the connection can be hijacked.
//
// # Lifecycle
//
// Serve runs the HTTP server, the event hub and the session sweeper under a
// single errgroup. When the context is cancelled or any of them fails the
// server is shut down within Server.ShutdownTimeout, the hub disconnects
// its clients and telemetry is flushed. Run adds SIGINT and SIGTERM
// handling on top of Serve.
//
// Errors are returned to the caller; the package never calls os.Exit.
package app

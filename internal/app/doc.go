// Package app provides application initialization and lifecycle management
// for the rfm tool. It wires configuration, telemetry, the RFM pipeline and
// the report server together.
//
// # Initialization Flow
//
//  1. Load and validate configuration (config.Load)
//  2. Initialize logging (infrastructure.InitializeLogger)
//  3. NewApplication creates telemetry, services and the router
//  4. RunPipeline executes one run and loads its result into the report service
//  5. Run or Serve exposes the report API until interrupted
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. Stop drains in-flight requests, flushes
// pending spans and writes the metrics textfile.
//
// # Error Handling
//
// All errors are returned to the caller; the package never calls os.Exit.
package app

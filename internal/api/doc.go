// Package api serves AetherNexus over HTTP.
//
// Routes under /api/v1 start, inspect, cancel and delete indexing jobs, run
// text, semantic and graph searches, and expose the entity graph. GET / and
// GET /health sit outside the prefix.
//
// Domain errors are mapped to status codes by MapErrorToStatus and written
// as {"error": ..., "code": ...}.
package api

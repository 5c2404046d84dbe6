// Package api implements the HTTP REST API and WebSocket event stream.
//
// This package provides:
//   - REST endpoints for tracked nodes, scenes, node history and stats
//   - Controller command start and cancel
//   - A WebSocket hub that receives every dispatched event as a deliverer
//   - JWT bearer authentication with single-use WebSocket tickets
//
// # Security
//
// Tokens are HS256 JWTs issued elsewhere and signed with
// security.jwt.secret. Read routes need scope "read"; scene changes and
// controller commands need "control". With no secret configured the API is
// open, which is only meant for isolated test rigs.
//
// The MQTT request surface in bridges/ozw remains the primary control path;
// this API serves dashboards and tooling that prefer HTTP.
package api

// Package server exposes a single agent over HTTP.
//
// The server is a chi router with request ID, real IP, zerolog request logging, panic
// recovery and optional CORS middleware.
//
// # API Endpoints
//
//   - POST /invoke: run an invocation; the response is an SSE stream of its events
//   - POST /abort: cancel the running invocation
//   - GET /messages: the conversation history
//   - GET /state: agent ID, busy flag, message count and conversation manager state
//   - GET /tools: tool specs exposed to the model
//   - GET /config: the loaded configuration with API keys redacted
//   - GET /event: SSE stream of every event published on the agent's bus
//   - GET /metrics: Prometheus metrics
//
// # Invocation Stream
//
// Each event of POST /invoke is written as
//
//	event: <kind>
//	data: <json payload>
//
// A successful invocation ends with result.final. A failed one ends with an error event
// whose payload is an ErrorDetail. Failures that occur before the first event, such as
// an invocation already in progress, are returned as plain JSON errors with a matching
// status code (409 for a busy agent). Closing the connection abandons the invocation and
// rolls the history back to the start of the interrupted cycle.
//
// # Error Responses
//
// Errors use a consistent JSON shape:
//
//	{
//	  "error": {
//	    "code": "RATE_LIMITED",
//	    "message": "cycle 1 failed: ...",
//	    "details": {"cycle": 1}
//	  }
//	}
package server

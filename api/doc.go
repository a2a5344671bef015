// Package api holds the wire types of the VoiceWeb HTTP API.
//
// The session proxy mints ephemeral realtime credentials:
//
//	GET /session  -> {"result": {"client_secret": {"value": "...", "expires_at": 0}, ...}}
//
// The answers endpoints expose the question/answer store the voice agent
// writes through its storeQuestionAnswer tool:
//
//	GET    /answers
//	POST   /answers  {"question": "...", "answer": "..."}
//	DELETE /answers
//
// Health endpoints: /health, /healthz, /ready, /version. Prometheus metrics
// are served on a separate listener at /metrics.
package api

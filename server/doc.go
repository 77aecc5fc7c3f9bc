// Package server exposes the retrieval pipeline over HTTP using gin.
//
// Tenant and user identifiers arrive in request bodies or query parameters
// from a trusted upstream. Every tenant endpoint checks membership before
// touching tenant data. Errors raised before a response is committed are
// rendered as
//
//	{"success": false, "error": {"code": "...", "message": "..."}}
//
// with a 400, 403, 404, 413 or 500 status. The chat stream writes raw answer
// fragments as text/event-stream; a failure after the first fragment
// appends the interruption marker and closes the stream.
package server

// Package handlers implements the HTTP handlers of the mock marketplace API.
// Response shapes follow the Django REST backend the client targets:
// paginated {count, next, previous, results} envelopes, trailing-slash
// routes, and {"detail": ...} or {"error": ...} error bodies.
package handlers

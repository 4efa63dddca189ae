// Package handler implements the service's HTTP surface.
//
// Routes are declared explicitly as Route values (method, path, required
// query parameters, handler function) and bound onto an http.ServeMux by
// Register. Required parameters are checked before the handler function
// runs; an absent parameter is answered with 400 Bad Request.
//
// InfoHandler provides the three info endpoints, each of which logs its
// parameters through an injected InfoLogger and returns a fixed body.
package handler

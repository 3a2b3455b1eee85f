// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between HTTP clients and
// the task store.
//
// Handlers return a Response or an error and never write to the
// http.ResponseWriter themselves. Wrap turns such a handler into an
// http.HandlerFunc: it writes successful responses as-is and routes every
// failure, including panics, through ClassifyError exactly once.
package api

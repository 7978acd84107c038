// Package registry routes decoded messages to named handlers.
//
// A Registry maps display names to Handlers. Handlers own their numeric
// state; callers reach it only through the registry, which serializes calls
// to each handler. Different handlers run concurrently.
//
// Canvas is the built-in handler for a pannable, zoomable 2D canvas whose
// transform is view = (doc + translation) * zoom.
package registry

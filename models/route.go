package models

import "net/http"

// HandlerFunc Pattern for handler functions
type HandlerFunc func(Services, http.ResponseWriter, *http.Request)

// Routes Holder of all routes
type Routes []Route

// Route Describe route
type Route struct {
	Path        string
	Method      string
	HandlerFunc HandlerFunc
}

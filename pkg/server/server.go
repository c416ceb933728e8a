// Package server provides the HTTP surface of the service: routing,
// middleware, and the handlers that marshal JSON in and out of the memory
// store adapter and chat service.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/memchat/memchat-go/pkg/chat"
	"github.com/memchat/memchat-go/pkg/core"
)

// NewRouter builds the service router with all endpoints and middleware
// registered.
//
// The CORS middleware wraps the router itself rather than being registered
// with Use, so preflight OPTIONS requests are answered even for routes that
// only accept POST.
func NewRouter(store *core.Store, chatSvc *chat.Service) http.Handler {
	router := mux.NewRouter()

	handler := NewHandler(store, chatSvc)
	handler.RegisterRoutes(router)

	return corsMiddleware(router)
}

// corsMiddleware allows browser clients from any origin to reach the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

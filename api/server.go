/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/items/*          Shopping list lines
  /api/shops/*          Shops, departments, products
  /api/products/*       Product deletion
  /api/templates/*      Meal templates
  /api/recipes/*        Recipes
  /api/weekplan/*       Week plan entries
  /api/config           Cadence and unit settings
  /api/events           SSE stream
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves the built frontend from web/dist/.
  Falls back to index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/einkaufsliste/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, hub *Hub) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8087"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Shopping list routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Get("/autocomplete", h.Autocomplete)
			r.Delete("/expired", h.DeleteExpiredItems)
			r.Delete("/{id}", h.DeleteItem)
			r.Post("/{id}/product", h.ConvertToProduct)
		})

		// Shop catalog routes
		r.Route("/shops", func(r chi.Router) {
			r.Get("/", h.ListShops)
			r.Post("/", h.CreateShop)
			r.Get("/{id}/departments", h.ListDepartments)
			r.Post("/{id}/departments", h.CreateDepartment)
			r.Get("/{id}/products", h.ListProducts)
			r.Post("/{id}/products", h.CreateProduct)
		})
		r.Delete("/products/{id}", h.DeleteProduct)

		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Put("/{id}", h.UpdateTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
		})

		// Recipe routes
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", h.ListRecipes)
			r.Post("/", h.CreateRecipe)
			r.Put("/{id}", h.UpdateRecipe)
			r.Delete("/{id}", h.DeleteRecipe)
		})

		// Weekplan routes
		r.Route("/weekplan", func(r chi.Router) {
			r.Get("/", h.ListWeekplan)
			r.Post("/", h.CreateEntry)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		// Settings and live updates
		r.Get("/config", h.GetConfig)
		r.Get("/events", hub.ServeHTTP)
	})

	// Serve static files (frontend build)
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)

			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Einkaufsliste</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Einkaufsliste API</h1>
<p>The frontend is not built yet. Run <code>cd web && npm install && npm run build</code></p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/items">/api/items</a> - Shopping list</li>
<li><a href="/api/weekplan">/api/weekplan</a> - Week plan</li>
<li><a href="/api/recipes">/api/recipes</a> - Recipes</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}

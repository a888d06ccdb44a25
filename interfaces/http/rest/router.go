package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"catalogo-backend/infrastructure/di"
	"catalogo-backend/interfaces/http/rest/handlers"
	"catalogo-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	c := rt.container
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if c.Config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	productHandler := handlers.NewProductHandler(c.ProductRepository, c.ImageStore, c.ErrorHandler, rt.logger)
	categoryHandler := handlers.NewCategoryHandler(c.CategoryRepository, c.ErrorHandler, rt.logger)
	uploadHandler := handlers.NewUploadHandler(c.ImageStore, c.ErrorHandler, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		// Public catalog reads
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/by-category", productHandler.ListProductsByCategory)
			r.Get("/{productID}", productHandler.GetProduct)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.ListCategories)
			r.Get("/{categoryID}", categoryHandler.GetCategory)
			r.Get("/{categoryID}/subcategories", categoryHandler.ListSubcategories)
		})
		r.Get("/subcategories", categoryHandler.ListAllSubcategories)

		// Admin writes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Authenticate(c.Config, rt.logger))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", productHandler.CreateProduct)
				r.Put("/{productID}", productHandler.UpdateProduct)
				r.Delete("/{productID}", productHandler.DeleteProduct)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Post("/{categoryID}", categoryHandler.CreateCategory)
				r.Put("/{categoryID}", categoryHandler.UpdateCategory)
				r.Delete("/{categoryID}", categoryHandler.DeleteCategory)
				r.Put("/{categoryID}/subcategories/{subcategoryID}", categoryHandler.UpsertSubcategory)
				r.Delete("/{categoryID}/subcategories/{subcategoryID}", categoryHandler.DeleteSubcategory)
			})

			r.Route("/uploads", func(r chi.Router) {
				r.Post("/", uploadHandler.UploadImage)
				r.Post("/presign", uploadHandler.PresignUpload)
				r.Get("/download-url", uploadHandler.DownloadURL)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

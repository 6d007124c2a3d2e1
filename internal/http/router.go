package http

import (
	"net/http"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/catalog"
	"github.com/DNLCodess/ReezBlank/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Carts          Carts
	Catalog        catalog.Repository
	Identity       identity.Service
	Sessions       AuthSessions
	Checkout       Checkouts
	Orders         Orders
	Admins         []string
	CookieSecure   bool
	RequestTimeout time.Duration
	Log            *zap.Logger
}

// NewRouter mounts the storefront API under /api/v1.
func NewRouter(d Deps) http.Handler {
	cartHandler := NewCartHandler(d.Carts, d.Catalog, d.Log)
	productHandler := NewProductHandler(d.Catalog, d.Log)
	authHandler := NewAuthHandler(d.Identity, d.Sessions, d.Log)
	checkoutHandler := NewCheckoutHandler(d.Checkout, d.Log)
	ordersHandler := NewOrdersHandler(d.Orders, d.Log)
	adminHandler := NewAdminHandler(d.Catalog, d.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(d.CookieSecure))
		r.Use(AuthMiddleware(d.Sessions, d.Log))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/summary", cartHandler.Summary)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}/{size}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}/{size}", cartHandler.RemoveItem)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.Post("/signout", authHandler.SignOut)
			r.Get("/session", authHandler.Session)
			r.Post("/password-reset", authHandler.PasswordReset)
		})

		r.Post("/checkout", checkoutHandler.PlaceOrder)
		r.With(RequireUser).Get("/orders", ordersHandler.ListMine)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(d.Admins))
			r.Get("/products", adminHandler.ListProducts)
			r.Post("/products", adminHandler.CreateProduct)
			r.Put("/products/{id}", adminHandler.UpdateProduct)
			r.Delete("/products/{id}", adminHandler.DeleteProduct)
			r.Get("/orders", ordersHandler.ListAll)
		})
	})

	return r
}

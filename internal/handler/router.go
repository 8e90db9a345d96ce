package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/marketplace-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/registration/", h.Register)
		r.Post("/login/", h.Login)

		r.Get("/offers/", h.ListOffers)
		r.Get("/offers/{id}/", h.GetOffer)
		r.Get("/offerdetails/{id}/", h.GetOfferDetail)
		r.Get("/base-info/", h.BaseInfo)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/offers/", h.CreateOffer)
			r.Patch("/offers/{id}/", h.UpdateOffer)
			r.Delete("/offers/{id}/", h.DeleteOffer)

			r.Get("/orders/", h.ListOrders)
			r.Post("/orders/", h.CreateOrder)
			r.Patch("/orders/{id}/", h.UpdateOrder)
			r.Delete("/orders/{id}/", h.DeleteOrder)
			r.Get("/order-count/{business_id}/", h.OrderCount)
			r.Get("/completed-order-count/{business_id}/", h.CompletedOrderCount)

			r.Get("/profile/{id}/", h.GetProfile)
			r.Patch("/profile/{id}/", h.UpdateProfile)
			r.Get("/profiles/business/", h.ListBusinessProfiles)
			r.Get("/profiles/customer/", h.ListCustomerProfiles)

			r.Get("/reviews/", h.ListReviews)
			r.Post("/reviews/", h.CreateReview)
			r.Patch("/reviews/{id}/", h.UpdateReview)
			r.Delete("/reviews/{id}/", h.DeleteReview)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

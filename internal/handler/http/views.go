package http

import (
	"errors"
	"net/http"
	"strconv"

	"product-views/internal/domain"
	"product-views/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionCookie identifies a browser session for the view guard
const SessionCookie = "pv_session"

const maxPageLimit = 100

type productsPage struct {
	Products []domain.Product
	Paged    bool
	Page     int
	Limit    int
	PrevPage int
	NextPage int
	HasNext  bool
}

type productPage struct {
	Product  *domain.Product
	StoreURL string
}

// Home handles GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/products", http.StatusFound)
}

// ListProducts handles GET /products and GET /products?page=n&limit=m
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := productsPage{}

	var (
		products []domain.Product
		err      error
	)

	if query.Has("page") || query.Has("limit") {
		page, perr := parsePositive(query.Get("page"), 1)
		limit, lerr := parsePositive(query.Get("limit"), 10)
		if perr != nil || lerr != nil || limit > maxPageLimit {
			h.renderError(w, http.StatusBadRequest, "Invalid page", "page and limit must be positive integers, limit at most 100.")
			return
		}

		data.Paged = true
		data.Page = page
		data.Limit = limit
		data.PrevPage = page - 1
		data.NextPage = page + 1

		products, err = h.products.ListProductsPage(r.Context(), page, limit)
	} else {
		products, err = h.products.ListProducts(r.Context())
	}

	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to list products", "error", err)
		h.renderError(w, http.StatusBadGateway, "Products unavailable", "The product catalog could not be reached. Please try again later.")
		return
	}

	data.Products = products
	data.HasNext = data.Paged && len(products) == data.Limit
	h.renderPage(w, http.StatusOK, "products", data)
}

// ProductDetail handles GET /products/{id}. The first activation per
// session logs a view in the background.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := domain.NormalizeProductID(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, http.StatusNotFound, "Product not found!", "")
		return
	}

	product, err := h.products.GetProduct(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.renderError(w, http.StatusNotFound, "Product not found!", "")
		return
	case err != nil:
		h.logger.WithContext(r.Context()).Error("Failed to fetch product", "product_id", id, "error", err)
		h.renderError(w, http.StatusBadGateway, "Product unavailable", "The product catalog could not be reached. Please try again later.")
		return
	}

	productID := product.IDString()
	session := h.session(w, r)

	first, err := h.guard.Activate(r.Context(), session, productID)
	if err != nil {
		// Without the guard a view may be counted twice, never lost
		h.logger.WithContext(r.Context()).Warn("View guard unavailable", "product_id", productID, "error", err)
		first = true
	}

	if first {
		h.recordViewDetached(r.Context(), productID)
	} else {
		metrics.RecordViewSuppressed()
	}

	h.renderPage(w, http.StatusOK, "product", productPage{
		Product:  product,
		StoreURL: h.storeBaseURL + "/" + productID,
	})
}

// session returns the caller's session id, issuing a cookie when absent
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// NotFound renders the not-found page for unknown routes
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, http.StatusNotFound, "Page not found", "")
}

func parsePositive(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"product-views/internal/domain"
	"product-views/internal/format"
	"product-views/internal/service"
	"product-views/pkg/logger"
	"product-views/pkg/validator"
)

// recordTimeout bounds a detached view upsert
const recordTimeout = 10 * time.Second

// ViewService records and lists product views
type ViewService interface {
	RecordView(ctx context.Context, productID string) error
	ListLogs(ctx context.Context, order domain.SortOrder) ([]domain.LogEntry, error)
}

// ProductSource reads the external catalog
type ProductSource interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListProductsPage(ctx context.Context, page, limit int) ([]domain.Product, error)
}

// LogFeed opens live queries over the logs
type LogFeed interface {
	Subscribe(ctx context.Context, order domain.SortOrder) (*service.Subscription, error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handler
type Deps struct {
	Views     ViewService
	Products  ProductSource
	Guard     service.ViewGuard
	Feed      LogFeed
	Formatter *format.Formatter
	Logger    *logger.Logger

	// StoreBaseURL is the catalog's public product address, used for the
	// "View on Store" link
	StoreBaseURL string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	views        ViewService
	products     ProductSource
	guard        service.ViewGuard
	feed         LogFeed
	formatter    *format.Formatter
	pages        *renderer
	logger       *logger.Logger
	storeBaseURL string

	checks  map[string]Pinger
	pending sync.WaitGroup

	// stop ends open live streams on shutdown
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) (*Handler, error) {
	pages, err := newRenderer(deps.Formatter)
	if err != nil {
		return nil, err
	}

	return &Handler{
		views:        deps.Views,
		products:     deps.Products,
		guard:        deps.Guard,
		feed:         deps.Feed,
		formatter:    deps.Formatter,
		pages:        pages,
		logger:       deps.Logger,
		storeBaseURL: strings.TrimRight(deps.StoreBaseURL, "/"),
		checks:       make(map[string]Pinger),
		stop:         make(chan struct{}),
	}, nil
}

// AddReadinessCheck registers a dependency for /health/ready
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.checks[name] = p
}

// Wait blocks until detached view upserts started by detail pages finish
func (h *Handler) Wait() {
	h.pending.Wait()
}

// CloseStreams ends every open /admin/stream response. Register it with
// http.Server.RegisterOnShutdown so Shutdown is not held up by streams that
// never go idle.
func (h *Handler) CloseStreams() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// ProductID accepts a JSON string or number
type ProductID string

func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ProductID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("productId must be a string or number")
	}
	if _, err := n.Int64(); err != nil {
		return errors.New("productId must be an integer")
	}
	*p = ProductID(n.String())
	return nil
}

// LogRequest is the body of POST /api/log
type LogRequest struct {
	ProductID ProductID `json:"productId" validate:"required,max=64"`
}

// CreateLog handles POST /api/log
func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := validator.Struct(req); err != nil {
		var ferr *validator.FieldError
		if errors.As(err, &ferr) {
			respondFieldError(w, ferr.Field, ferr.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	err := h.views.RecordView(r.Context(), string(req.ProductID))
	switch {
	case err == nil:
		respondMessage(w, http.StatusCreated, "Log updated")
	case errors.Is(err, domain.ErrInvalidArgument):
		respondFieldError(w, "productId", err.Error())
	default:
		h.logger.WithContext(r.Context()).Error("Failed to record view", "product_id", req.ProductID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update log")
	}
}

// ListLogs handles GET /api/log
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	order, err := domain.ParseSortOrder(r.URL.Query().Get("order"))
	if err != nil {
		respondFieldError(w, "order", err.Error())
		return
	}

	entries, err := h.views.ListLogs(r.Context(), order)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to list logs", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch logs")
		return
	}

	if entries == nil {
		entries = []domain.LogEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// MethodNotAllowed answers unsupported methods with a JSON error
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// recordViewDetached upserts in the background so the page never waits on
// the store. The request context is detached and bounded by recordTimeout.
func (h *Handler) recordViewDetached(ctx context.Context, productID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		defer cancel()

		if err := h.views.RecordView(ctx, productID); err != nil {
			h.logger.WithContext(ctx).Error("Failed to record view", "product_id", productID, "error", err)
		}
	}()
}

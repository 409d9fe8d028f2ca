package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "rfmcli/internal/errors"
	"rfmcli/pkg/contracts/domain"
)

// CustomerList is the response of the customer listing endpoints
type CustomerList struct {
	Segment   string                  `json:"segment,omitempty"`
	Code      string                  `json:"code,omitempty"`
	Count     int                     `json:"count"`
	Customers []domain.ScoredCustomer `json:"customers"`
}

// ReportHandler handles report queries
type ReportHandler struct {
	service      ReportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "report")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/run", h.GetRun)
	r.Get("/segments", h.GetSegments)
	r.Get("/segments/{segment}/customers", h.GetSegmentCustomers)
	r.Get("/codes/{code}/customers", h.GetCodeCustomers)
	r.Get("/customers/{id}", h.GetCustomer)
	r.Get("/outliers", h.GetOutliers)

	return r
}

// GetRun handles GET /api/run
func (h *ReportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// GetSegments handles GET /api/segments
func (h *ReportHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Segments(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// GetSegmentCustomers handles GET /api/segments/{segment}/customers. The
// segment is the URL-escaped label, e.g. Loyal%20Customers.
func (h *ReportHandler) GetSegmentCustomers(w http.ResponseWriter, r *http.Request) {
	label, err := url.PathUnescape(chi.URLParam(r, "segment"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("malformed segment", err))
		return
	}

	customers, err := h.service.SegmentCustomers(r.Context(), label)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, CustomerList{
		Segment:   label,
		Count:     len(customers),
		Customers: nonNil(customers),
	})
}

// GetCodeCustomers handles GET /api/codes/{code}/customers
func (h *ReportHandler) GetCodeCustomers(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	customers, err := h.service.CodeCustomers(r.Context(), code)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, CustomerList{
		Code:      code,
		Count:     len(customers),
		Customers: nonNil(customers),
	})
}

// GetCustomer handles GET /api/customers/{id}
func (h *ReportHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.Customer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, customer)
}

// GetOutliers handles GET /api/outliers
func (h *ReportHandler) GetOutliers(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Outliers(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func nonNil(customers []domain.ScoredCustomer) []domain.ScoredCustomer {
	if customers == nil {
		return []domain.ScoredCustomer{}
	}
	return customers
}

package api

import (
	"bytes"
	"net/http"
	"strconv"

	service "github.com/okian/churnlens/internal/app"
)

// CustomersHandler serves the prioritized customer queue.
type CustomersHandler struct {
	deps CustomerDependencies
}

// NewCustomersHandler creates a new customers handler.
func NewCustomersHandler(deps CustomerDependencies) *CustomersHandler {
	return &CustomersHandler{deps: deps}
}

// customersResponse is one page of the filtered queue. Total counts the
// whole match; the breakdowns cover it as well.
type customersResponse struct {
	service.CustomersResult
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// HandleList handles GET /customers.
func (h *CustomersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_customers"
	if !allow(w, r, http.MethodGet) {
		return
	}
	set, pg, err := parseCustomerSet(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	res, err := h.deps.Customers(r.Context(), set)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	// res is shared with the cache; the page is a fresh slice header.
	res.Customers = paginate(res.Customers, pg)
	writeJSON(w, http.StatusOK, customersResponse{CustomersResult: res, Limit: pg.Limit, Offset: pg.Offset})
}

// HandleGet handles GET /customers/{id}.
func (h *CustomersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_customer"
	if !allow(w, r, http.MethodGet) {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, ErrBadRequest)
		return
	}
	c, err := h.deps.Customer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleExport handles GET /customers/export, writing the filtered queue
// as CSV. Pagination parameters are ignored.
func (h *CustomersHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_customers"
	if !allow(w, r, http.MethodGet) {
		return
	}
	set, _, err := parseCustomerSet(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	var buf bytes.Buffer
	n, err := h.deps.ExportCustomers(r.Context(), &buf, set)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeCSV(w, "clientes_prioritarios.csv", n, buf.Bytes())
}

// writeCSV sends a buffered CSV download. Buffering lets failures above
// still produce a JSON error instead of a truncated file.
func writeCSV(w http.ResponseWriter, filename string, rows int, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Row-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

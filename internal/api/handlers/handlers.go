package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lightsheet-rebuild/bomtool/internal/api/middleware"
	"github.com/lightsheet-rebuild/bomtool/internal/catalog"
	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/jobs"
	"github.com/lightsheet-rebuild/bomtool/internal/jobs/inmemory"
)

// DocumentHolder keeps the document currently being served. It is safe for
// concurrent use; a rebuild swaps the whole document at once.
type DocumentHolder struct {
	mu  sync.RWMutex
	doc *domain.Document
}

// Set replaces the served document.
func (h *DocumentHolder) Set(doc *domain.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = doc
}

// Get returns the served document, or nil before the first successful load.
func (h *DocumentHolder) Get() *domain.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.doc
}

// BOMHandler serves read-only views of the BOM document.
type BOMHandler struct {
	docs *DocumentHolder
	log  zerolog.Logger
}

// NewBOMHandler creates a new BOM handler.
func NewBOMHandler(docs *DocumentHolder, log zerolog.Logger) *BOMHandler {
	return &BOMHandler{docs: docs, log: log}
}

func (h *BOMHandler) document(w http.ResponseWriter) (*domain.Document, bool) {
	doc := h.docs.Get()
	if doc == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "BOM document not loaded")
		return nil, false
	}
	return doc, true
}

// GetDocument handles GET /api/bom
func (h *BOMHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// ListItems handles GET /api/bom/items
// Query: q, vendor, category, phase, sort, order (asc|desc).
func (h *BOMHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}

	query, err := parseItemQuery(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := catalog.Apply(doc.Items, query)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func parseItemQuery(r *http.Request) (catalog.Query, error) {
	params := r.URL.Query()
	q := catalog.Query{
		Search: params.Get("q"),
		Vendor: params.Get("vendor"),
	}

	if c := params.Get("category"); c != "" {
		q.Category = domain.Category(c)
		if !q.Category.Valid() {
			return q, errors.New("invalid category")
		}
	}

	if p := params.Get("phase"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || !domain.Phase(n).Valid() {
			return q, errors.New("invalid phase")
		}
		q.Phase = domain.Phase(n)
	}

	if s := params.Get("sort"); s != "" {
		field, err := catalog.ParseField(s)
		if err != nil {
			return q, errors.New("invalid sort field")
		}
		q.SortBy = field
	}

	switch strings.ToLower(params.Get("order")) {
	case "", "asc":
	case "desc":
		q.Descending = true
	default:
		return q, errors.New("invalid order")
	}

	return q, nil
}

// GetSummary handles GET /api/bom/summary
func (h *BOMHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}

	s := doc.Summary
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"metadata":      doc.Metadata,
		"summary":       s,
		"phases":        s.PhaseShares(),
		"vendors":       s.TopVendors(0),
		"categories":    domain.RankCounts(s.ItemsByCategory, 0),
		"subassemblies": domain.RankCounts(s.ItemsBySubassembly, 0),
	})
}

// ListVendors handles GET /api/bom/vendors
func (h *BOMHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w)
	if !ok {
		return
	}

	vendors := catalog.Vendors(doc.Items)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"vendors": vendors,
		"count":   len(vendors),
	})
}

// RebuildDefaults fix what a rebuild reads and writes; clients cannot choose paths.
type RebuildDefaults struct {
	Input  string
	Output string
	Sheet  string
}

// JobsHandler handles rebuild job endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	defaults  RebuildDefaults
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, defaults RebuildDefaults, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
		defaults:  defaults,
		log:       log,
	}
}

// Rebuild handles POST /api/bom/rebuild
func (h *JobsHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	job := &jobs.RebuildJob{
		Input:  h.defaults.Input,
		Output: h.defaults.Output,
		Sheet:  h.defaults.Sheet,
	}

	if err := h.publisher.PublishRebuild(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue rebuild job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue rebuild job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("input", job.Input).Msg("Rebuild job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(jobs.JobStatusPending),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, inmemory.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
		Input:  query.Get("input"),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

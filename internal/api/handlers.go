package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/bottler-outreach/internal/dispatch"
	"github.com/ignite/bottler-outreach/internal/draft"
	"github.com/ignite/bottler-outreach/internal/ingest"
	"github.com/ignite/bottler-outreach/internal/recipients"
	"github.com/ignite/bottler-outreach/internal/report"
)

// maxUploadBytes caps report uploads at 50MB.
const maxUploadBytes = 50 << 20

// RecipientStore is the persistence surface the handlers need; backed
// by Redis in production, in-memory when Redis is disabled.
type RecipientStore interface {
	Get(ctx context.Context, group string) (string, error)
	Save(ctx context.Context, group, raw string) error
	Delete(ctx context.Context, group string) error
	All(ctx context.Context) (map[string]string, error)
}

// Dispatcher sends a ready draft to its recipients.
type Dispatcher interface {
	Send(ctx context.Context, group, subject, htmlBody string, recipients []string) (string, error)
}

// dataset is the in-memory result of the last successful upload.
type dataset struct {
	ID         string
	UploadedAt time.Time
	Rows       []*report.Row
	Groups     []*report.SubBottlerGroup
	byName     map[string]*report.SubBottlerGroup
}

// Handlers holds the HTTP handler dependencies and the current dataset.
type Handlers struct {
	parser       ingest.Parser
	drafts       *draft.StateStore
	orchestrator *draft.Orchestrator
	recipients   RecipientStore
	sender       Dispatcher

	mu      sync.RWMutex
	ds      *dataset
	running bool
}

// NewHandlers creates the handler set. sender may be nil when SES
// dispatch is not configured.
func NewHandlers(parser ingest.Parser, drafts *draft.StateStore, orch *draft.Orchestrator, recips RecipientStore, sender Dispatcher) *Handlers {
	return &Handlers{
		parser:       parser,
		drafts:       drafts,
		orchestrator: orch,
		recipients:   recips,
		sender:       sender,
	}
}

// HealthCheck returns basic liveness info.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	hasDataset := h.ds != nil
	h.mu.RUnlock()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"has_dataset": hasDataset,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// UploadReport ingests a machine report and replaces the current
// dataset. Drafts reset to pending for the new group set; stored
// recipient lists are untouched.
func (h *Handlers) UploadReport(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := ingest.Ingest(data, h.parser)
	if err != nil {
		var schemaErr *report.SchemaError
		switch {
		case errors.Is(err, report.ErrEmptyDataset):
			respondError(w, http.StatusBadRequest, "The report contains no data rows.")
		case errors.As(err, &schemaErr):
			respondError(w, http.StatusBadRequest, schemaErr.Error())
		default:
			respondSafeError(w, http.StatusInternalServerError, err, "Failed to process the report")
		}
		return
	}

	groups := report.PartitionBySubBottler(rows)

	ds := &dataset{
		ID:         uuid.New().String(),
		UploadedAt: time.Now().UTC(),
		Rows:       rows,
		Groups:     groups,
		byName:     make(map[string]*report.SubBottlerGroup, len(groups)),
	}
	for _, g := range groups {
		ds.byName[g.Name] = g
	}

	h.mu.Lock()
	h.ds = ds
	h.mu.Unlock()
	h.drafts.Reset(groups)

	log.Printf("[api] Upload %s: %d rows in %d groups", ds.ID, len(rows), len(groups))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id": ds.ID,
		"row_count":  len(rows),
		"groups":     h.groupSummaries(r.Context(), ds),
	})
}

// readUpload accepts either a multipart "file" field or a raw body.
func readUpload(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := ingest.ReadPayload(file)
		if err != nil {
			return nil, fmt.Errorf("reading uploaded file: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload: send the report as a multipart 'file' field or raw body")
	}
	return data, nil
}

// groupSummary is one group's slice of the dataset overview.
type groupSummary struct {
	Name       string      `json:"name"`
	RowCount   int         `json:"row_count"`
	Draft      draft.Draft `json:"draft"`
	Recipients string      `json:"recipients"`
}

func (h *Handlers) groupSummaries(ctx context.Context, ds *dataset) []groupSummary {
	stored, err := h.recipients.All(ctx)
	if err != nil {
		log.Printf("[api] Loading recipients failed: %v", err)
		stored = map[string]string{}
	}

	snapshot := h.drafts.Snapshot()
	out := make([]groupSummary, 0, len(ds.Groups))
	for _, g := range ds.Groups {
		out = append(out, groupSummary{
			Name:       g.Name,
			RowCount:   len(g.Rows),
			Draft:      snapshot[g.Name],
			Recipients: stored[g.Name],
		})
	}
	return out
}

// ListGroups returns the current dataset's groups with draft state and
// recipients.
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.currentDataset()
	if !ok {
		respondError(w, http.StatusNotFound, "No report uploaded yet.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id":  ds.ID,
		"uploaded_at": ds.UploadedAt.Format(time.RFC3339),
		"groups":      h.groupSummaries(r.Context(), ds),
	})
}

// GroupRows returns one group's rows as ordered column/value records.
func (h *Handlers) GroupRows(w http.ResponseWriter, r *http.Request) {
	g, ok := h.lookupGroup(w, r)
	if !ok {
		return
	}

	type rowJSON struct {
		Columns []string          `json:"columns"`
		Values  map[string]string `json:"values"`
	}
	out := make([]rowJSON, 0, len(g.Rows))
	for _, row := range g.Rows {
		cols := row.Columns()
		values := make(map[string]string, len(cols))
		for _, c := range cols {
			values[c] = row.Get(c)
		}
		out = append(out, rowJSON{Columns: cols, Values: values})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group": g.Name,
		"rows":  out,
	})
}

// ExportGroup streams one group's rows as a CSV download.
func (h *Handlers) ExportGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := h.lookupGroup(w, r)
	if !ok {
		return
	}

	csv, err := report.GroupCSV(g)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to export the group")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ExportFilename(g.Name)))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, csv)
}

// GenerateAll kicks off a full draft generation run in the background.
// Only one run may be in flight at a time.
func (h *Handlers) GenerateAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentDataset(); !ok {
		respondError(w, http.StatusNotFound, "No report uploaded yet.")
		return
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "A generation run is already in progress.")
		return
	}
	h.running = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
		}()
		if _, err := h.orchestrator.GenerateAll(context.Background()); err != nil {
			log.Printf("[api] Generation run stopped: %v", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"started": true,
		"total":   len(h.drafts.Groups()),
	})
}

// GenerateOne regenerates a single group's draft synchronously.
func (h *Handlers) GenerateOne(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "name")
	if !h.orchestrator.GenerateOne(r.Context(), group) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Unknown group %q.", group))
		return
	}
	d, _ := h.drafts.Get(group)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group": group,
		"draft": d,
	})
}

// ListDrafts returns every group's draft state.
func (h *Handlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"drafts":  h.drafts.Snapshot(),
		"running": h.isRunning(),
	})
}

// GetDraft returns one group's draft.
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "name")
	d, ok := h.drafts.Get(group)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Unknown group %q.", group))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group": group,
		"draft": d,
	})
}

// ListRecipients returns every stored recipient list.
func (h *Handlers) ListRecipients(w http.ResponseWriter, r *http.Request) {
	all, err := h.recipients.All(r.Context())
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to load recipients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recipients": all})
}

// GetRecipients returns one group's stored recipient string.
func (h *Handlers) GetRecipients(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "name")
	val, err := h.recipients.Get(r.Context(), group)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to load recipients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group":      group,
		"recipients": val,
	})
}

// SaveRecipients validates and persists one group's recipient list. An
// invalid address rejects the whole edit.
func (h *Handlers) SaveRecipients(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "name")

	var body struct {
		Recipients string `json:"recipients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	if err := h.recipients.Save(r.Context(), group, body.Recipients); err != nil {
		var valErr *recipients.ValidationError
		if errors.As(err, &valErr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":   "Some addresses are invalid. Nothing was saved.",
				"invalid": valErr.Invalid,
			})
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to save recipients")
		return
	}

	val, _ := h.recipients.Get(r.Context(), group)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group":      group,
		"recipients": val,
	})
}

// DeleteRecipients clears one group's stored list.
func (h *Handlers) DeleteRecipients(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "name")
	if err := h.recipients.Delete(r.Context(), group); err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to delete recipients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"group": group})
}

// Dispatch sends one group's ready draft to its stored recipients.
func (h *Handlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	if h.sender == nil {
		respondError(w, http.StatusServiceUnavailable, "Email dispatch is not configured.")
		return
	}

	group := chi.URLParam(r, "name")
	d, ok := h.drafts.Get(group)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Unknown group %q.", group))
		return
	}
	if d.State != draft.StateReady {
		respondError(w, http.StatusConflict, fmt.Sprintf("Draft for %q is %s, not ready.", group, d.State))
		return
	}

	stored, err := h.recipients.Get(r.Context(), group)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to load recipients")
		return
	}
	addrs := recipients.Parse(stored)
	if len(addrs) == 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("No valid recipients configured for %q.", group))
		return
	}

	messageID, err := h.sender.Send(r.Context(), group, d.Subject, d.Body, addrs)
	if err != nil {
		var dispErr *dispatch.DispatchError
		if errors.As(err, &dispErr) {
			respondSafeError(w, http.StatusBadGateway, err, "The email provider rejected the send")
			return
		}
		respondSafeError(w, http.StatusInternalServerError, err, safeErrorMessage(http.StatusInternalServerError, err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"group":      group,
		"message_id": messageID,
		"sent_to":    len(addrs),
	})
}

// Reset discards the current dataset and all draft state. Stored
// recipient lists survive.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.ds = nil
	h.mu.Unlock()
	h.drafts.Reset(nil)

	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handlers) currentDataset() (*dataset, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ds, h.ds != nil
}

func (h *Handlers) isRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Handlers) lookupGroup(w http.ResponseWriter, r *http.Request) (*report.SubBottlerGroup, bool) {
	ds, ok := h.currentDataset()
	if !ok {
		respondError(w, http.StatusNotFound, "No report uploaded yet.")
		return nil, false
	}
	name := chi.URLParam(r, "name")
	g, ok := ds.byName[name]
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Unknown group %q.", name))
		return nil, false
	}
	return g, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"product-views/internal/domain"
	"product-views/internal/export"
	"product-views/internal/metrics"
)

// heartbeatInterval keeps idle event streams open through proxies
const heartbeatInterval = 15 * time.Second

type adminPage struct {
	Entries     []domain.LogEntry
	TotalCount  int64
	Order       domain.SortOrder
	NextOrder   domain.SortOrder
	Arrow       string
	EmptyNotice bool
}

// snapshotEvent is the payload of one "snapshot" server-sent event
type snapshotEvent struct {
	Order          domain.SortOrder `json:"order"`
	TotalCount     int64            `json:"totalCount"`
	TotalCountText string           `json:"totalCountText"`
	Entries        []eventEntry     `json:"entries"`
}

type eventEntry struct {
	domain.LogEntry
	CountText string `json:"countText"`
	LastView  string `json:"lastView"`
}

// orderParam reads ?order, falling back to descending on bad input
func orderParam(r *http.Request) domain.SortOrder {
	order, err := domain.ParseSortOrder(r.URL.Query().Get("order"))
	if err != nil {
		return domain.SortDesc
	}
	return order
}

// Dashboard handles GET /admin
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	order := orderParam(r)

	entries, err := h.views.ListLogs(r.Context(), order)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to list logs", "error", err)
		captureError(r, err)
		h.renderError(w, http.StatusInternalServerError, "Logs unavailable", "The view log store could not be read.")
		return
	}

	h.renderPage(w, http.StatusOK, "admin", adminPage{
		Entries:     entries,
		TotalCount:  domain.TotalCount(entries),
		Order:       order,
		NextOrder:   order.Toggle(),
		Arrow:       order.Arrow(),
		EmptyNotice: r.URL.Query().Get("notice") == "empty",
	})
}

// Export handles GET /admin/export.xlsx
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	order := orderParam(r)

	entries, err := h.views.ListLogs(r.Context(), order)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to list logs for export", "error", err)
		captureError(r, err)
		metrics.RecordExport("failed")
		h.renderError(w, http.StatusInternalServerError, "Export failed", "The view log store could not be read.")
		return
	}

	var buf bytes.Buffer
	err = export.WriteXLSX(&buf, entries, h.formatter)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		metrics.RecordExport("empty")
		http.Redirect(w, r, "/admin?notice=empty&order="+string(order), http.StatusSeeOther)
		return
	case err != nil:
		h.logger.WithContext(r.Context()).Error("Failed to build export", "error", err)
		captureError(r, err)
		metrics.RecordExport("failed")
		h.renderError(w, http.StatusInternalServerError, "Export failed", "The spreadsheet could not be generated.")
		return
	}

	metrics.RecordExport("ok")
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Stream handles GET /admin/stream. Every change to the logs pushes the
// complete, re-ordered result set as one event.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	sub, err := h.feed.Subscribe(r.Context(), orderParam(r))
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to open live logs", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to open live logs")
		return
	}
	defer sub.Close()

	// Streams outlive the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.WithContext(r.Context()).Warn("Failed to clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-h.stop:
			return

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}

		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := h.writeSnapshot(w, snap.Entries, snap.Order); err != nil {
				h.logger.WithContext(r.Context()).Debug("Live stream closed", "error", err)
				return
			}
		}

		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, entries []domain.LogEntry, order domain.SortOrder) error {
	total := domain.TotalCount(entries)
	event := snapshotEvent{
		Order:          order,
		TotalCount:     total,
		TotalCountText: h.formatter.Count(total),
		Entries:        make([]eventEntry, len(entries)),
	}
	for i, e := range entries {
		event.Entries[i] = eventEntry{
			LogEntry:  e,
			CountText: h.formatter.Count(e.Count),
			LastView:  h.formatter.Timestamp(e.Timestamp),
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
	return err
}

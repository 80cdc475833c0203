package service

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/scanbill/internal/billing"
	"github.com/mmynk/scanbill/internal/export"
	"github.com/mmynk/scanbill/internal/middleware"
	"github.com/mmynk/scanbill/internal/storage"
)

// ExportPattern is the route the export handler expects to be mounted on.
const ExportPattern = "GET /export/{format}"

// ExportHandler serves ledger downloads. Wrap it in
// middleware.RequireAdminHTTP.
type ExportHandler struct {
	svc *billing.Service
	now func() time.Time
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(svc *billing.Service) *ExportHandler {
	return &ExportHandler{svc: svc, now: time.Now}
}

func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format, ok := export.ParseFormat(r.PathValue("format"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	authorized := middleware.IsAdmin(ctx)

	var buf bytes.Buffer
	var err error
	if format == export.FormatSQLite {
		var data []byte
		data, err = h.svc.Snapshot(ctx, authorized)
		buf.Write(data)
	} else {
		err = h.writeRows(r, &buf, format, authorized)
	}

	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, export.ErrNoData):
			status = http.StatusNotFound
		case errors.Is(err, storage.ErrUnauthorized):
			status = http.StatusForbidden
		default:
			slog.Error("Export failed", "format", format, "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(format, h.now())))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("Export write interrupted", "format", format, "error", err)
		return
	}
	slog.Info("Ledger exported", "format", format)
}

func (h *ExportHandler) writeRows(r *http.Request, buf *bytes.Buffer, format export.Format, authorized bool) error {
	rows, err := h.svc.ListItems(r.Context(), authorized)
	if err != nil {
		return err
	}
	if format == export.FormatXLSX {
		return export.WriteXLSX(buf, rows)
	}
	return export.WriteCSV(buf, rows)
}

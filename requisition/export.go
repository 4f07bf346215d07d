package requisition

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
)

// ExportHistoryCSVHandler streams the flattened history as CSV. The UTF-8
// BOM and CRLF line endings keep the file readable when opened directly in
// Excel.
func ExportHistoryCSVHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		rows, err := svc.ListHistory(limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		var buf bytes.Buffer
		buf.Write([]byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM

		cw := csv.NewWriter(&buf)
		cw.UseCRLF = true
		cw.Write([]string{"code", "requester", "area", "machine", "sku", "description",
			"qty_requested", "qty_approved", "status", "created_at"})
		for _, row := range rows {
			approved := ""
			if row.QtyApproved.Valid {
				approved = strconv.FormatFloat(row.QtyApproved.Float64, 'f', -1, 64)
			}
			cw.Write([]string{
				row.Code,
				row.Requester,
				row.AreaName.String,
				row.MachineName.String,
				row.Sku,
				row.Description,
				strconv.FormatFloat(row.QtyRequested, 'f', -1, 64),
				approved,
				string(row.Status),
				row.CreatedAt,
			})
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			http.Error(w, "Failed to build CSV export", http.StatusInternalServerError)
			return
		}

		filename := fmt.Sprintf("requisas_hist_%s.csv", svc.now().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Write(buf.Bytes())
	}
}

package projection

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/lalith-99/echocrm/internal/models"
)

const csvHeader = "Name,Email,Phone,Status,Source,Notes,Created Date\n"

// WriteLeadsCSV writes the full lead replica as CSV. The header is bare;
// every data field is quoted with embedded quotes doubled. Created dates
// are M/D/YYYY in loc.
// (encoding/csv quotes only fields that need it.)
func WriteLeadsCSV(w io.Writer, leads []models.Lead, loc *time.Location) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(csvHeader)
	for _, l := range leads {
		writeRecord(bw, []string{
			l.Name,
			l.Email,
			l.Phone,
			string(l.Status),
			l.Source,
			l.Notes,
			l.CreatedAt.In(loc).Format("1/2/2006"),
		})
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// ExportFilename names the download after the day it was taken.
func ExportFilename(now time.Time) string {
	return "leads_export_" + now.Format("2006-01-02") + ".csv"
}

package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gestornet/internal/core"
	ports "gestornet/internal/sheets"
)

const (
	firstColumn = "A"
	lastColumn  = "I"
	dateLayout  = "2006-01-02 15:04"
)

// ledgerHeader is the first row of the ledger sheet. The id column must stay first.
var ledgerHeader = []any{"ID", "Data", "Tipo", "Categoria", "Descrição", "Método", "Valor (Kz)", "Cliente", "Gerente"}

func transactionRow(tx core.Transaction, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	method := ""
	if tx.Method != "" {
		method = tx.Method.Label()
	}
	return []any{
		tx.ID,
		tx.Date.In(loc).Format(dateLayout),
		tx.Type.Label(),
		tx.Category.Label(),
		tx.Description,
		method,
		tx.Amount.Kwanzas(),
		tx.ClientName,
		tx.ManagerName,
	}
}

// parseRows extracts mirrored transactions from a full-sheet read. Row numbers
// are 1-based like the sheet's own. The header and cleared rows are skipped.
func parseRows(values [][]any) []ports.MirroredRow {
	out := make([]ports.MirroredRow, 0, len(values))
	for i, raw := range values {
		cols := toStrings(raw)
		id := safeGet(cols, 0)
		if id == "" || (i == 0 && isHeader(cols)) {
			continue
		}
		row := ports.MirroredRow{Row: i + 1, ID: id}
		if cents, ok := parseKwanzasToCents(safeGet(cols, 6)); ok {
			row.Amount = core.Money{Cents: cents}
		}
		out = append(out, row)
	}
	return out
}

func isHeader(cols []string) bool {
	return strings.EqualFold(safeGet(cols, 0), fmt.Sprint(ledgerHeader[0]))
}

// parseKwanzasToCents accepts raw numbers ("3500", "17.5") and Portuguese
// formatted values ("3.500,50", "3 500").
func parseKwanzasToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Kz")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

// rowNumber extracts the first row of an A1 range such as "Ledger!A7:I7".
func rowNumber(a1 string) (int, bool) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	a1, _, _ = strings.Cut(a1, ":")
	a1 = strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ$")
	n, err := strconv.Atoi(a1)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(cols []string, idx int) string {
	if idx < 0 || idx >= len(cols) {
		return ""
	}
	return cols[idx]
}

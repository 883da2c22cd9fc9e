package google

import (
	"testing"
	"time"

	"gestornet/internal/core"
)

func TestParseKwanzasToCents(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"3500", 350000, true},
		{"17.5", 1750, true},
		{"3.500,50", 350050, true},
		{"3 500", 350000, true},
		{"3 500 Kz", 350000, true},
		{"1,25", 125, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseKwanzasToCents(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseKwanzasToCents(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRowNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"Ledger!A7:I7", 7, true},
		{"'Transacções'!A12:I12", 12, true},
		{"A3", 3, true},
		{"Ledger!A:I", 0, false},
	}
	for _, tt := range tests {
		got, ok := rowNumber(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("rowNumber(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseRows(t *testing.T) {
	values := [][]any{
		ledgerHeader,
		{"tx-1", "2024-03-07 10:00", "Entrada", "Pagamento", "Pagamento mensalidade - Ana", "Dinheiro", 3500.0, "Ana", "Rita"},
		{},
		{"", "", ""},
		{"tx-2", "2024-03-07 11:00", "Saída", "Água", "Garrafões", "", "1.250,50"},
	}

	rows := parseRows(values)
	if len(rows) != 2 {
		t.Fatalf("parseRows() returned %d rows, want 2: %+v", len(rows), rows)
	}
	if rows[0].ID != "tx-1" || rows[0].Row != 2 || rows[0].Amount.Cents != 350000 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].ID != "tx-2" || rows[1].Row != 5 || rows[1].Amount.Cents != 125050 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestTransactionRow(t *testing.T) {
	luanda := time.FixedZone("WAT", 3600)
	tx := core.Transaction{
		ID:          "tx-1",
		Type:        core.Saida,
		Category:    core.Alimentacao,
		Description: "Almoço",
		Amount:      core.Money{Cents: 150050},
		Date:        time.Date(2024, 3, 7, 23, 30, 0, 0, time.UTC),
		ManagerName: "Rita",
	}

	row := transactionRow(tx, luanda)
	if len(row) != len(ledgerHeader) {
		t.Fatalf("row has %d columns, want %d", len(row), len(ledgerHeader))
	}
	if row[1] != "2024-03-08 00:30" {
		t.Errorf("date column = %v, want local date 2024-03-08 00:30", row[1])
	}
	if row[2] != "Saída" || row[3] != "Alimentação" {
		t.Errorf("labels = %v, %v", row[2], row[3])
	}
	if row[5] != "" {
		t.Errorf("method column = %v, want empty for saida", row[5])
	}
	if row[6] != 1500.5 {
		t.Errorf("amount column = %v, want 1500.5", row[6])
	}
}

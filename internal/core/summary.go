package core

import "time"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Amount   Money    `json:"amount"`
}

// DailyReport summarizes the ledger for one calendar day.
type DailyReport struct {
	Date          time.Time     `json:"date"`
	TotalEntradas Money         `json:"totalEntradas"`
	TotalSaidas   Money         `json:"totalSaidas"`
	Balance       Money         `json:"balance"`
	Transactions  []Transaction `json:"transactions"`
}

// LedgerTotals are running totals over a set of transactions.
type LedgerTotals struct {
	TotalEntradas Money `json:"totalEntradas"`
	TotalSaidas   Money `json:"totalSaidas"`
	Balance       Money `json:"balance"`
}

// ReportBreakdown splits a day's income by payment method and its expenses
// by category, as printed on the daily report.
type ReportBreakdown struct {
	CashCount     int              `json:"cashCount"`
	CashTotal     Money            `json:"cashTotal"`
	TransferCount int              `json:"transferCount"`
	TransferTotal Money            `json:"transferTotal"`
	EntradaCount  int              `json:"entradaCount"`
	SaidaCount    int              `json:"saidaCount"`
	ByCategory    []CategoryAmount `json:"byCategory"`
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Totals sums entradas and saidas over txs.
func Totals(txs []Transaction) LedgerTotals {
	var t LedgerTotals
	for _, tx := range txs {
		switch tx.Type {
		case Entrada:
			t.TotalEntradas = t.TotalEntradas.Add(tx.Amount)
		case Saida:
			t.TotalSaidas = t.TotalSaidas.Add(tx.Amount)
		}
	}
	t.Balance = t.TotalEntradas.Sub(t.TotalSaidas)
	return t
}

// BuildDailyReport keeps the transactions dated on day's calendar day, in
// day's location, and totals them.
func BuildDailyReport(day time.Time, txs []Transaction) DailyReport {
	loc := day.Location()
	dayTx := make([]Transaction, 0)
	for _, tx := range txs {
		if SameDay(tx.Date, day, loc) {
			dayTx = append(dayTx, tx)
		}
	}
	totals := Totals(dayTx)
	return DailyReport{
		Date:          StartOfDay(day),
		TotalEntradas: totals.TotalEntradas,
		TotalSaidas:   totals.TotalSaidas,
		Balance:       totals.Balance,
		Transactions:  dayTx,
	}
}

func (r DailyReport) Breakdown() ReportBreakdown {
	var b ReportBreakdown
	byCat := make(map[Category]Money)
	for _, tx := range r.Transactions {
		switch tx.Type {
		case Entrada:
			b.EntradaCount++
			switch tx.Method {
			case Cash:
				b.CashCount++
				b.CashTotal = b.CashTotal.Add(tx.Amount)
			case Transfer:
				b.TransferCount++
				b.TransferTotal = b.TransferTotal.Add(tx.Amount)
			}
		case Saida:
			b.SaidaCount++
			byCat[tx.Category] = byCat[tx.Category].Add(tx.Amount)
		}
	}
	b.ByCategory = make([]CategoryAmount, 0, len(byCat))
	for _, c := range Categories() {
		if amt, ok := byCat[c]; ok {
			b.ByCategory = append(b.ByCategory, CategoryAmount{Category: c, Label: c.Label(), Amount: amt})
		}
	}
	return b
}

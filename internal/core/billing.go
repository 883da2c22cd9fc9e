package core

import "time"

// Fixed billing policy.
var (
	MonthlyFee   = Kz(3500)
	LateFee      = Kz(500)
	HalfMonthFee = Kz(1750)
)

const (
	// DueDay is the last day of the month a payment is on time.
	DueDay = 15
	// InactiveMonthsThreshold is the unpaid month count at which a client stops being active.
	InactiveMonthsThreshold = 3

	halfMonthFirstDay = 15
	halfMonthLastDay  = 25

	referenceMonthLayout = "2006-01"
)

// PaymentQuote is the amount due for one reference month.
type PaymentQuote struct {
	Amount     Money `json:"amount"`
	HasLateFee bool  `json:"hasLateFee"`
}

// CalculatePaymentAmount prices the reference month for a client. The first
// month after a contract signed between the 15th and the 25th costs half;
// paying after the due day adds the late fee. It never mutates anything.
func CalculatePaymentAmount(contractDate, paymentDate, referenceMonth time.Time) PaymentQuote {
	base := MonthlyFee
	if isFirstMonthAfter(contractDate, referenceMonth) {
		day := contractDate.Day()
		if day >= halfMonthFirstDay && day <= halfMonthLastDay {
			base = HalfMonthFee
		}
	}

	q := PaymentQuote{Amount: base}
	if paymentDate.Day() > DueDay {
		q.Amount = q.Amount.Add(LateFee)
		q.HasLateFee = true
	}
	return q
}

// isFirstMonthAfter reports whether ref falls in the calendar month right
// after contract, December to January included.
func isFirstMonthAfter(contract, ref time.Time) bool {
	cy, cm, _ := contract.Date()
	ry, rm, _ := ref.Date()
	if cm == time.December {
		return rm == time.January && ry == cy+1
	}
	return ry == cy && rm == cm+1
}

// IsActiveFor reports whether a client with the given unpaid month count is active.
func IsActiveFor(monthsWithoutPayment int) bool {
	return monthsWithoutPayment < InactiveMonthsThreshold
}

// SuggestedPaymentAmount is the amount pre-filled when collecting from c:
// the outstanding debt, or one monthly fee when nothing is owed.
func SuggestedPaymentAmount(c Client) Money {
	if c.Debt.Cents > 0 {
		return c.Debt
	}
	return MonthlyFee
}

// ReferenceMonth formats t as YYYY-MM.
func ReferenceMonth(t time.Time) string {
	return t.Format(referenceMonthLayout)
}

// ParseReferenceMonth parses YYYY-MM into the first day of that month (UTC).
func ParseReferenceMonth(s string) (time.Time, error) {
	t, err := time.Parse(referenceMonthLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidReferenceMonth
	}
	return t, nil
}

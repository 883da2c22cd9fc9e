package core

import (
	"strings"
	"time"
)

const (
	Cash     PaymentMethod = "cash"
	Transfer PaymentMethod = "transfer"

	Mensalidade PaymentType = "mensalidade"
	Multa       PaymentType = "multa"

	Entrada TransactionType = "entrada"
	Saida   TransactionType = "saida"

	Pagamento   Category = "pagamento"
	Alimentacao Category = "alimentacao"
	Salario     Category = "salario"
	Agua        Category = "agua"
	Outro       Category = "outro"
)

// BossConfigID is the fixed id of the singleton boss record.
const BossConfigID = "boss"

type (
	PaymentMethod   string
	PaymentType     string
	TransactionType string
	Category        string

	// Manager is an operator account. Name is unique ignoring case.
	Manager struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	// BossConfig is the owner account; its presence marks setup as complete.
	BossConfig struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Password  string    `json:"password"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Client struct {
		ID                   string    `json:"id"`
		Code                 string    `json:"code"`
		Name                 string    `json:"name"`
		BI                   string    `json:"bi"`
		Phone                string    `json:"phone"`
		Location             string    `json:"location"`
		Tap                  string    `json:"tap"`
		ContractDate         time.Time `json:"contractDate"`
		HasSignal            bool      `json:"hasSignal"`
		MonthsWithoutPayment int       `json:"monthsWithoutPayment"`
		Debt                 Money     `json:"debt"`
		Payments             []Payment `json:"payments"`
		IsActive             bool      `json:"isActive"`
	}

	Payment struct {
		ID             string        `json:"id"`
		ClientID       string        `json:"clientId"`
		Amount         Money         `json:"amount"`
		Date           time.Time     `json:"date"`
		Method         PaymentMethod `json:"method"`
		Type           PaymentType   `json:"type"`
		ReferenceMonth string        `json:"referenceMonth"` // YYYY-MM
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Date        time.Time       `json:"date"`
		Method      PaymentMethod   `json:"method,omitempty"`
		ClientID    string          `json:"clientId,omitempty"`
		ClientName  string          `json:"clientName,omitempty"`
		ManagerName string          `json:"managerName,omitempty"`
	}

	// NewClient carries the operator supplied fields of a client registration.
	NewClient struct {
		Name         string    `json:"name"`
		BI           string    `json:"bi"`
		Phone        string    `json:"phone"`
		Location     string    `json:"location"`
		Tap          string    `json:"tap"`
		ContractDate time.Time `json:"contractDate"`
	}

	// ClientUpdate lists the editable client fields. Nil fields are left untouched.
	ClientUpdate struct {
		Name                 *string    `json:"name,omitempty"`
		BI                   *string    `json:"bi,omitempty"`
		Phone                *string    `json:"phone,omitempty"`
		Location             *string    `json:"location,omitempty"`
		Tap                  *string    `json:"tap,omitempty"`
		ContractDate         *time.Time `json:"contractDate,omitempty"`
		MonthsWithoutPayment *int       `json:"monthsWithoutPayment,omitempty"`
		Debt                 *Money     `json:"debt,omitempty"`
	}

	NewPayment struct {
		Amount         Money         `json:"amount"`
		Date           time.Time     `json:"date"`
		Method         PaymentMethod `json:"method"`
		Type           PaymentType   `json:"type"`
		ReferenceMonth string        `json:"referenceMonth"`
	}

	NewTransaction struct {
		Type        TransactionType `json:"type"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Date        time.Time       `json:"date"`
		Method      PaymentMethod   `json:"method,omitempty"`
		ClientID    string          `json:"clientId,omitempty"`
		ClientName  string          `json:"clientName,omitempty"`
		ManagerName string          `json:"managerName,omitempty"`
	}
)

func (m PaymentMethod) Valid() bool { return m == Cash || m == Transfer }

// Label returns the name shown on receipts and reports.
func (m PaymentMethod) Label() string {
	switch m {
	case Cash:
		return "Dinheiro"
	case Transfer:
		return "Transferência"
	default:
		return string(m)
	}
}

func (t PaymentType) Valid() bool { return t == Mensalidade || t == Multa }

func (t TransactionType) Valid() bool { return t == Entrada || t == Saida }

func (t TransactionType) Label() string {
	switch t {
	case Entrada:
		return "Entrada"
	case Saida:
		return "Saída"
	default:
		return string(t)
	}
}

func (c Category) Valid() bool {
	switch c {
	case Pagamento, Alimentacao, Salario, Agua, Outro:
		return true
	}
	return false
}

func (c Category) Label() string {
	switch c {
	case Pagamento:
		return "Pagamento"
	case Alimentacao:
		return "Alimentação"
	case Salario:
		return "Salário"
	case Agua:
		return "Água"
	case Outro:
		return "Outro"
	default:
		return string(c)
	}
}

// Categories lists every ledger category in display order.
func Categories() []Category {
	return []Category{Pagamento, Alimentacao, Salario, Agua, Outro}
}

// Clone returns a deep copy so callers cannot alias the payment history.
func (c Client) Clone() Client {
	out := c
	out.Payments = make([]Payment, len(c.Payments))
	copy(out.Payments, c.Payments)
	return out
}

// IsInactive reports whether the client belongs in the inactive view. It is
// intentionally broader than !IsActive: clients still flagged active but past
// the threshold are included too.
func (c Client) IsInactive() bool {
	return !c.IsActive || c.MonthsWithoutPayment >= InactiveMonthsThreshold
}

// ToggleSignal flips the signal. Switching it on clears the unpaid month
// counter; switching it off keeps it.
func (c *Client) ToggleSignal() {
	c.HasSignal = !c.HasSignal
	if c.HasSignal {
		c.MonthsWithoutPayment = 0
	}
	c.IsActive = IsActiveFor(c.MonthsWithoutPayment)
}

// ApplyPayment records p and brings the client back to good standing,
// whatever the amount paid.
func (c *Client) ApplyPayment(p Payment) {
	c.Debt = c.Debt.Sub(p.Amount).ClampZero()
	c.MonthsWithoutPayment = 0
	c.HasSignal = true
	c.IsActive = true
	c.Payments = append(c.Payments, p)
}

// Apply merges the non-nil fields of u.
func (c *Client) Apply(u ClientUpdate) {
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.BI != nil {
		c.BI = strings.TrimSpace(*u.BI)
	}
	if u.Phone != nil {
		c.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Location != nil {
		c.Location = strings.TrimSpace(*u.Location)
	}
	if u.Tap != nil {
		c.Tap = strings.TrimSpace(*u.Tap)
	}
	if u.ContractDate != nil {
		c.ContractDate = *u.ContractDate
	}
	if u.Debt != nil {
		c.Debt = u.Debt.ClampZero()
	}
	if u.MonthsWithoutPayment != nil {
		c.MonthsWithoutPayment = *u.MonthsWithoutPayment
		c.IsActive = IsActiveFor(c.MonthsWithoutPayment)
	}
}

func (u ClientUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return ErrEmptyName
	}
	if u.MonthsWithoutPayment != nil && *u.MonthsWithoutPayment < 0 {
		return ErrNegativeMonths
	}
	if u.Debt != nil && u.Debt.Cents < 0 {
		return ErrNegativeDebt
	}
	return nil
}

// Normalize trims every text field.
func (n NewClient) Normalize() NewClient {
	n.Name = strings.TrimSpace(n.Name)
	n.BI = strings.TrimSpace(n.BI)
	n.Phone = strings.TrimSpace(n.Phone)
	n.Location = strings.TrimSpace(n.Location)
	n.Tap = strings.TrimSpace(n.Tap)
	return n
}

func (n NewClient) Validate() error {
	n = n.Normalize()
	switch {
	case n.Name == "":
		return ErrEmptyName
	case n.BI == "":
		return ErrEmptyBI
	case n.Phone == "":
		return ErrEmptyPhone
	case n.Location == "":
		return ErrEmptyLocation
	case n.Tap == "":
		return ErrEmptyTap
	}
	return nil
}

func (p NewPayment) Validate() error {
	if p.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !p.Method.Valid() {
		return ErrInvalidMethod
	}
	if p.Type != "" && !p.Type.Valid() {
		return ErrInvalidPaymentType
	}
	if p.ReferenceMonth != "" {
		if _, err := ParseReferenceMonth(p.ReferenceMonth); err != nil {
			return err
		}
	}
	return nil
}

func (t NewTransaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Type == Entrada && t.Method != "" && !t.Method.Valid() {
		return ErrInvalidMethod
	}
	return nil
}

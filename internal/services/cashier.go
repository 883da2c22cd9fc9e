package services

import (
	"context"
	"fmt"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/metrics"
)

// InitialPayment is the optional payment taken when a client signs up.
type InitialPayment struct {
	Amount core.Money         `json:"amount"`
	Method core.PaymentMethod `json:"method"`
}

// Quote is what the payment form suggests for a client.
type Quote struct {
	core.PaymentQuote
	Suggested      core.Money `json:"suggested"`
	ReferenceMonth string     `json:"referenceMonth"`
	Debt           core.Money `json:"debt"`
}

// Cashier runs the flows that touch both the client registry and the
// ledger, stamping ledger entries with the session's manager.
type Cashier struct {
	clients *ClientRegistry
	ledger  *TransactionLedger
	events  *log.StructuredLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewCashier(clients *ClientRegistry, ledger *TransactionLedger, m *metrics.Metrics, logger *log.Logger) *Cashier {
	if logger == nil {
		logger = log.Discard()
	}
	return &Cashier{
		clients: clients,
		ledger:  ledger,
		events:  log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
		metrics: m,
		now:     time.Now,
	}
}

// ReceivePayment records a monthly payment for the current month and the
// matching entrada. Nothing is recorded for an unknown client.
func (c *Cashier) ReceivePayment(ctx context.Context, sess *Session, clientID string, amount core.Money, method core.PaymentMethod) (core.Payment, core.Transaction, error) {
	if amount.Cents <= 0 {
		return core.Payment{}, core.Transaction{}, core.ErrInvalidAmount
	}
	if !method.Valid() {
		return core.Payment{}, core.Transaction{}, core.ErrInvalidMethod
	}
	client, ok := c.clients.Get(clientID)
	if !ok {
		return core.Payment{}, core.Transaction{}, core.ErrNotFound
	}

	now := c.now()
	payment, ok, err := c.clients.MakePayment(ctx, clientID, core.NewPayment{
		Amount:         amount,
		Date:           now,
		Method:         method,
		Type:           core.Mensalidade,
		ReferenceMonth: core.ReferenceMonth(now),
	})
	if err != nil {
		return core.Payment{}, core.Transaction{}, err
	}
	if !ok {
		// removed between Get and MakePayment
		return core.Payment{}, core.Transaction{}, core.ErrNotFound
	}

	tx, err := c.recordIncome(ctx, sess, client, "Pagamento mensalidade - ", amount, method, now)
	if err != nil {
		return payment, core.Transaction{}, err
	}
	c.events.LogPaymentReceived(ctx, client.ID, client.Code, string(method), sess.ManagerName(), amount.Cents)
	c.metrics.IncBusinessEvent("payment_received")
	return payment, tx, nil
}

// RegisterClient adds a client and, when initial is set, records the
// contract payment. The client is kept even if the payment is rejected.
func (c *Cashier) RegisterClient(ctx context.Context, sess *Session, in core.NewClient, initial *InitialPayment) (core.Client, *core.Transaction, error) {
	if initial != nil {
		if initial.Amount.Cents <= 0 {
			return core.Client{}, nil, core.ErrInvalidAmount
		}
		if !initial.Method.Valid() {
			return core.Client{}, nil, core.ErrInvalidMethod
		}
	}

	client, err := c.clients.Add(ctx, in)
	if err != nil {
		return core.Client{}, nil, err
	}
	c.events.LogClientRegistered(ctx, client.ID, client.Code, sess.ManagerName())
	c.metrics.IncBusinessEvent("client_registered")
	if initial == nil {
		return client, nil, nil
	}

	tx, err := c.recordIncome(ctx, sess, client, "Pagamento contrato - ", initial.Amount, initial.Method, c.now())
	if err != nil {
		return client, nil, err
	}
	return client, &tx, nil
}

// RecordTransaction adds a ledger entry on behalf of the session's manager.
func (c *Cashier) RecordTransaction(ctx context.Context, sess *Session, in core.NewTransaction) (core.Transaction, error) {
	in.ManagerName = sess.ManagerName()
	tx, err := c.ledger.Add(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	c.metrics.IncBusinessEvent("transaction_" + string(tx.Type))
	return tx, nil
}

// Quote prices referenceMonth ("YYYY-MM", empty for the payment date's
// month) for the client.
func (c *Cashier) Quote(clientID string, paymentDate time.Time, referenceMonth string) (Quote, error) {
	client, ok := c.clients.Get(clientID)
	if !ok {
		return Quote{}, core.ErrNotFound
	}
	if paymentDate.IsZero() {
		paymentDate = c.now()
	}
	if referenceMonth == "" {
		referenceMonth = core.ReferenceMonth(paymentDate)
	}
	ref, err := core.ParseReferenceMonth(referenceMonth)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		PaymentQuote:   core.CalculatePaymentAmount(client.ContractDate, paymentDate, ref),
		Suggested:      core.SuggestedPaymentAmount(client),
		ReferenceMonth: referenceMonth,
		Debt:           client.Debt,
	}, nil
}

func (c *Cashier) recordIncome(ctx context.Context, sess *Session, client core.Client, prefix string, amount core.Money, method core.PaymentMethod, at time.Time) (core.Transaction, error) {
	tx, err := c.ledger.Add(ctx, core.NewTransaction{
		Type:        core.Entrada,
		Category:    core.Pagamento,
		Description: prefix + client.Name,
		Amount:      amount,
		Date:        at,
		Method:      method,
		ClientID:    client.ID,
		ClientName:  client.Name,
		ManagerName: sess.ManagerName(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record income: %w", err)
	}
	return tx, nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/storage"
)

// ClientRegistry owns the working copy of the client collection. Every
// mutation updates memory first and then hands the record to the persister.
type ClientRegistry struct {
	mu      sync.Mutex
	clients []core.Client

	persist Persister
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

func NewClientRegistry(p Persister, logger *log.Logger) *ClientRegistry {
	if logger == nil {
		logger = log.Discard()
	}
	return &ClientRegistry{
		persist: p,
		logger:  logger.WithComponent(log.ComponentClients),
		now:     time.Now,
		newID:   newID,
	}
}

// Load replaces the working copy with what the store holds.
func (r *ClientRegistry) Load(ctx context.Context, s storage.Store) error {
	clients, err := storage.Load[core.Client](ctx, s, storage.Clients)
	if err != nil {
		return fmt.Errorf("load clients: %w", err)
	}
	r.Replace(clients)
	r.logger.InfoContext(ctx, "Clients loaded", "count", len(clients))
	return nil
}

// Replace swaps the working copy without persisting anything.
func (r *ClientRegistry) Replace(clients []core.Client) {
	cp := make([]core.Client, 0, len(clients))
	for _, c := range clients {
		cp = append(cp, c.Clone())
	}
	r.mu.Lock()
	r.clients = cp
	r.mu.Unlock()
}

// All returns every client sorted by code.
func (r *ClientRegistry) All() []core.Client {
	return r.filter(func(core.Client) bool { return true })
}

func (r *ClientRegistry) Active() []core.Client {
	return r.filter(func(c core.Client) bool { return c.IsActive })
}

// Inactive uses the broader rule of core.Client.IsInactive.
func (r *ClientRegistry) Inactive() []core.Client {
	return r.filter(core.Client.IsInactive)
}

// Search matches name, code or location, ignoring case.
func (r *ClientRegistry) Search(query string) []core.Client {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return r.All()
	}
	return r.filter(func(c core.Client) bool {
		return strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Code), q) ||
			strings.Contains(strings.ToLower(c.Location), q)
	})
}

func (r *ClientRegistry) Get(id string) (core.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		return r.clients[i].Clone(), true
	}
	return core.Client{}, false
}

// Add registers a new client in good standing with the next code for the
// first letter of its name.
func (r *ClientRegistry) Add(ctx context.Context, in core.NewClient) (core.Client, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Client{}, err
	}
	contract := in.ContractDate
	if contract.IsZero() {
		contract = r.now()
	}

	r.mu.Lock()
	codes := make([]string, len(r.clients))
	for i, c := range r.clients {
		codes[i] = c.Code
	}
	code, err := core.GenerateNextCode(codes, core.CodeLetter(in.Name))
	if err != nil {
		r.mu.Unlock()
		return core.Client{}, fmt.Errorf("generate client code: %w", err)
	}
	client := core.Client{
		ID:           r.newID(),
		Code:         code,
		Name:         in.Name,
		BI:           in.BI,
		Phone:        in.Phone,
		Location:     in.Location,
		Tap:          in.Tap,
		ContractDate: contract,
		HasSignal:    true,
		Payments:     []core.Payment{},
		IsActive:     true,
	}
	r.clients = append(r.clients, client)
	persist(ctx, r.persist, storage.Clients, client.ID, client)
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "Client added",
		log.FieldClientID, client.ID,
		log.FieldClientCode, client.Code)
	return client.Clone(), nil
}

// Update merges u into the client. The bool is false when id is unknown.
func (r *ClientRegistry) Update(ctx context.Context, id string, u core.ClientUpdate) (core.Client, bool, error) {
	if err := u.Validate(); err != nil {
		return core.Client{}, false, err
	}
	return r.mutate(ctx, id, func(c *core.Client) { c.Apply(u) })
}

// Remove deletes the client; unknown ids are ignored.
func (r *ClientRegistry) Remove(ctx context.Context, id string) bool {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.clients = append(r.clients[:i], r.clients[i+1:]...)
	forget(ctx, r.persist, storage.Clients, id)
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "Client removed", log.FieldClientID, id)
	return true
}

func (r *ClientRegistry) ToggleSignal(ctx context.Context, id string) (core.Client, bool) {
	c, ok, _ := r.mutate(ctx, id, (*core.Client).ToggleSignal)
	return c, ok
}

// MakePayment appends a payment and settles the client. The payment is
// returned even when id is unknown; the bool reports whether it was recorded.
func (r *ClientRegistry) MakePayment(ctx context.Context, id string, in core.NewPayment) (core.Payment, bool, error) {
	if in.Amount.Cents <= 0 {
		return core.Payment{}, false, core.ErrInvalidAmount
	}
	if err := in.Validate(); err != nil {
		return core.Payment{}, false, err
	}
	now := r.now()
	p := core.Payment{
		ID:             r.newID(),
		ClientID:       id,
		Amount:         in.Amount,
		Date:           in.Date,
		Method:         in.Method,
		Type:           in.Type,
		ReferenceMonth: in.ReferenceMonth,
	}
	if p.Date.IsZero() {
		p.Date = now
	}
	if p.Type == "" {
		p.Type = core.Mensalidade
	}
	if p.ReferenceMonth == "" {
		p.ReferenceMonth = core.ReferenceMonth(now)
	}

	_, ok, err := r.mutate(ctx, id, func(c *core.Client) { c.ApplyPayment(p) })
	return p, ok, err
}

// mutate applies fn and queues the write before releasing the lock, so the
// store sees writes in the same order as memory.
func (r *ClientRegistry) mutate(ctx context.Context, id string, fn func(*core.Client)) (core.Client, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return core.Client{}, false, nil
	}
	fn(&r.clients[i])
	updated := r.clients[i].Clone()
	persist(ctx, r.persist, storage.Clients, updated.ID, updated)
	return updated, true, nil
}

func (r *ClientRegistry) filter(keep func(core.Client) bool) []core.Client {
	r.mu.Lock()
	out := make([]core.Client, 0, len(r.clients))
	for _, c := range r.clients {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	r.mu.Unlock()
	return core.SortClientsByCode(out)
}

func (r *ClientRegistry) indexOf(id string) int {
	for i := range r.clients {
		if r.clients[i].ID == id {
			return i
		}
	}
	return -1
}

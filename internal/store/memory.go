package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/diewo77/dealership-api/internal/models"
)

// Memory is an in-process Store. Every row has its own exclusive lock, taken
// by LockX and by writes, and held until the unit of work ends. Writes are
// buffered in the unit of work and become visible together at commit.
type Memory struct {
	mu       sync.RWMutex
	vehicles map[uint]models.Vehicle
	clients  map[uint]models.Client
	users    map[uint]models.User
	sales    map[uint]models.Sale
	payments map[uint]models.Payment
	seq      map[string]uint

	locksMu sync.Mutex
	locks   map[rowKey]chan struct{}

	now func() time.Time
}

type rowKey struct {
	table string
	id    uint
}

const (
	tableVehicles = "vehicles"
	tableClients  = "clients"
	tableUsers    = "users"
	tableSales    = "sales"
	tablePayments = "sale_payments"
)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		vehicles: map[uint]models.Vehicle{},
		clients:  map[uint]models.Client{},
		users:    map[uint]models.User{},
		sales:    map[uint]models.Sale{},
		payments: map[uint]models.Payment{},
		seq:      map[string]uint{},
		locks:    map[rowKey]chan struct{}{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// nextID must be called with mu held for writing.
func (m *Memory) nextID(table string, explicit uint) uint {
	if explicit != 0 {
		if explicit > m.seq[table] {
			m.seq[table] = explicit
		}
		return explicit
	}
	m.seq[table]++
	return m.seq[table]
}

// PutVehicle inserts or replaces a vehicle and returns it with its id set.
func (m *Memory) PutVehicle(v models.Vehicle) models.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.nextID(tableVehicles, v.ID)
	if v.Status == "" {
		v.Status = models.VehicleStatusAvailable
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = m.now()
	}
	m.vehicles[v.ID] = v
	return v
}

// PutClient inserts or replaces a client and returns it with its id set.
func (m *Memory) PutClient(c models.Client) models.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID(tableClients, c.ID)
	m.clients[c.ID] = c
	return c
}

// PutUser inserts or replaces a user and returns it with its id set.
func (m *Memory) PutUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextID(tableUsers, u.ID)
	if u.Role == "" {
		u.Role = models.RoleSeller
	}
	m.users[u.ID] = u
	return u
}

// Vehicle returns the committed state of a vehicle.
func (m *Memory) Vehicle(id uint) (models.Vehicle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	return v, ok
}

// Sale returns the committed state of a sale.
func (m *Memory) Sale(id uint) (models.Sale, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sales[id]
	return s, ok
}

// Sales returns all committed sales ordered by id.
func (m *Memory) Sales() []models.Sale {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Sale, 0, len(m.sales))
	for _, s := range m.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Vehicles returns all committed vehicles ordered by id.
func (m *Memory) Vehicles() []models.Vehicle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) rowLock(key rowKey) chan struct{} {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	return ch
}

// acquire blocks until the row lock is free or ctx is done.
func (m *Memory) acquire(ctx context.Context, key rowKey) (chan struct{}, error) {
	ch := m.rowLock(key)
	select {
	case ch <- struct{}{}:
		return ch, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("store: waiting for %s %d: %w", key.table, key.id, ctx.Err())
	}
}

func (m *Memory) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memTx{
		m:        m,
		ctx:      ctx,
		held:     map[rowKey]chan struct{}{},
		vehicles: map[uint]models.Vehicle{},
		sales:    map[uint]models.Sale{},
		deleted:  map[uint]bool{},
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	tx.commit()
	return nil
}

func (m *Memory) CreatePayment(ctx context.Context, p *models.Payment) error {
	// Inserting a referencing row conflicts with an exclusive lock on the sale.
	ch, err := m.acquire(ctx, rowKey{tableSales, p.SaleID})
	if err != nil {
		return err
	}
	defer func() { <-ch }()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sales[p.SaleID]; !ok {
		return fmt.Errorf("%w: sale %d does not exist", ErrConstraint, p.SaleID)
	}
	p.ID = m.nextID(tablePayments, 0)
	m.payments[p.ID] = *p
	return nil
}

func (m *Memory) ListSales(ctx context.Context) ([]models.SaleSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SaleSummary, 0, len(m.sales))
	for _, s := range m.sales {
		c, u, v := m.clients[s.ClientID], m.users[s.UserID], m.vehicles[s.VehicleID]
		out = append(out, models.SaleSummary{
			ID:           s.ID,
			VehicleID:    s.VehicleID,
			ClientID:     s.ClientID,
			UserID:       s.UserID,
			Status:       s.Status,
			Price:        s.Price,
			CreatedAt:    s.CreatedAt,
			ClientName:   c.Name,
			UserName:     u.Name,
			VehicleBrand: v.Brand,
			VehicleModel: v.Model,
			VehicleVIN:   v.VIN,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) GetSaleDetail(ctx context.Context, id uint) (*models.SaleDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, ErrNotFound
	}
	c, u, v := m.clients[s.ClientID], m.users[s.UserID], m.vehicles[s.VehicleID]
	return &models.SaleDetail{
		ID:             s.ID,
		VehicleID:      s.VehicleID,
		ClientID:       s.ClientID,
		UserID:         s.UserID,
		Status:         s.Status,
		Price:          s.Price,
		CreatedAt:      s.CreatedAt,
		ClientName:     c.Name,
		ClientDocument: c.Document,
		ClientEmail:    c.Email,
		ClientPhone:    c.Phone,
		UserName:       u.Name,
		UserEmail:      u.Email,
		VehicleVIN:     v.VIN,
		VehicleBrand:   v.Brand,
		VehicleModel:   v.Model,
		VehicleYear:    v.Year,
		VehicleColor:   v.Color,
		VehicleMileage: v.Mileage,
		VehicleStatus:  v.Status,
	}, nil
}

func (m *Memory) ListPayments(ctx context.Context, saleID uint) ([]models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Payment{}
	for _, p := range m.payments {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	models.SortPayments(out)
	return out, nil
}

type memTx struct {
	m    *Memory
	ctx  context.Context
	held map[rowKey]chan struct{}

	vehicles map[uint]models.Vehicle
	sales    map[uint]models.Sale
	deleted  map[uint]bool
}

func (t *memTx) lock(table string, id uint) error {
	key := rowKey{table, id}
	if _, ok := t.held[key]; ok {
		return nil
	}
	ch, err := t.m.acquire(t.ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = ch
	return nil
}

func (t *memTx) release() {
	for key, ch := range t.held {
		<-ch
		delete(t.held, key)
	}
}

func (t *memTx) commit() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for id, v := range t.vehicles {
		t.m.vehicles[id] = v
	}
	for id, s := range t.sales {
		t.m.sales[id] = s
	}
	for id := range t.deleted {
		delete(t.m.sales, id)
	}
}

func (t *memTx) vehicle(id uint) (models.Vehicle, bool) {
	if v, ok := t.vehicles[id]; ok {
		return v, true
	}
	return t.m.Vehicle(id)
}

func (t *memTx) sale(id uint) (models.Sale, bool) {
	if t.deleted[id] {
		return models.Sale{}, false
	}
	if s, ok := t.sales[id]; ok {
		return s, true
	}
	return t.m.Sale(id)
}

func (t *memTx) LockVehicle(id uint) (*models.Vehicle, error) {
	if err := t.lock(tableVehicles, id); err != nil {
		return nil, err
	}
	v, ok := t.vehicle(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (t *memTx) LockSale(id uint) (*models.Sale, error) {
	if err := t.lock(tableSales, id); err != nil {
		return nil, err
	}
	s, ok := t.sale(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) SetVehicleStatus(id uint, status models.VehicleStatus) error {
	if err := t.lock(tableVehicles, id); err != nil {
		return err
	}
	v, ok := t.vehicle(id)
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	t.vehicles[id] = v
	return nil
}

func (t *memTx) CreateSale(s *models.Sale) error {
	m := t.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[s.VehicleID]; !ok {
		return fmt.Errorf("%w: vehicle %d does not exist", ErrConstraint, s.VehicleID)
	}
	if _, ok := m.clients[s.ClientID]; !ok {
		return fmt.Errorf("%w: client %d does not exist", ErrConstraint, s.ClientID)
	}
	if _, ok := m.users[s.UserID]; !ok {
		return fmt.Errorf("%w: user %d does not exist", ErrConstraint, s.UserID)
	}
	s.ID = m.nextID(tableSales, 0)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	if s.Status == "" {
		s.Status = models.SaleStatusNegotiation
	}
	t.sales[s.ID] = *s
	return nil
}

func (t *memTx) UpdateSale(s *models.Sale) error {
	if err := t.lock(tableSales, s.ID); err != nil {
		return err
	}
	cur, ok := t.sale(s.ID)
	if !ok {
		return ErrNotFound
	}
	cur.Status = s.Status
	cur.Price = s.Price
	t.sales[s.ID] = cur
	return nil
}

func (t *memTx) DeleteSale(id uint) error {
	if err := t.lock(tableSales, id); err != nil {
		return err
	}
	if _, ok := t.sale(id); !ok {
		return ErrNotFound
	}
	if n, _ := t.CountPayments(id); n > 0 {
		return fmt.Errorf("%w: sale %d is referenced by %d payments", ErrConstraint, id, n)
	}
	delete(t.sales, id)
	t.deleted[id] = true
	return nil
}

func (t *memTx) CountPayments(saleID uint) (int64, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	var n int64
	for _, p := range t.m.payments {
		if p.SaleID == saleID {
			n++
		}
	}
	return n, nil
}

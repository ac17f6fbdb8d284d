// Package memory - хранилище в памяти процесса для тестов use case и HTTP-слоя.
//
// Транзакции сериализуются одним мьютексом и работают над копией состояния:
// при ошибке копия отбрасывается, при успехе подменяет текущее состояние.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
)

// Faults позволяет тестам имитировать сбои хранилища.
type Faults struct {
	UsageErr error
}

type state struct {
	bookings      map[uuid.UUID]entity.Booking
	ledger        map[uuid.UUID][]entity.EscrowTransaction
	disputes      map[uuid.UUID]entity.Dispute
	subscriptions map[uuid.UUID]entity.Subscription
	usage         map[uuid.UUID]entity.UsageCounter
	conversations map[uuid.UUID]entity.Conversation
	messages      []entity.Message
	library       []entity.LibraryItem
}

func newState() *state {
	return &state{
		bookings:      make(map[uuid.UUID]entity.Booking),
		ledger:        make(map[uuid.UUID][]entity.EscrowTransaction),
		disputes:      make(map[uuid.UUID]entity.Dispute),
		subscriptions: make(map[uuid.UUID]entity.Subscription),
		usage:         make(map[uuid.UUID]entity.UsageCounter),
		conversations: make(map[uuid.UUID]entity.Conversation),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.ledger {
		c.ledger[k] = append([]entity.EscrowTransaction(nil), v...)
	}
	for k, v := range s.disputes {
		c.disputes[k] = v
	}
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range s.usage {
		c.usage[k] = v
	}
	for k, v := range s.conversations {
		c.conversations[k] = v
	}
	c.messages = append([]entity.Message(nil), s.messages...)
	c.library = append([]entity.LibraryItem(nil), s.library...)
	return c
}

type Store struct {
	mu     sync.Mutex
	data   *state
	Faults Faults
}

func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, &memTx{st: work, faults: s.Faults}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Ledger возвращает копию леджера бронирования вне транзакции (для тестов и отладки).
func (s *Store) Ledger(bookingID uuid.UUID) []entity.EscrowTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.EscrowTransaction(nil), s.data.ledger[bookingID]...)
}

// Subscriptions возвращает все строки подписок бренда, включая историю.
func (s *Store) Subscriptions(brandID uuid.UUID) []entity.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.Subscription
	for _, sub := range s.data.subscriptions {
		if sub.BrandProfileID == brandID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type memTx struct {
	st     *state
	faults Faults
}

func (t *memTx) Bookings() repository.BookingRepository           { return bookingRepo{t.st} }
func (t *memTx) Ledger() repository.LedgerRepository              { return ledgerRepo{t.st} }
func (t *memTx) Disputes() repository.DisputeRepository           { return disputeRepo{t.st} }
func (t *memTx) Subscriptions() repository.SubscriptionRepository { return subscriptionRepo{t.st} }
func (t *memTx) Usage() repository.UsageRepository                { return usageRepo{t.st, t.faults} }
func (t *memTx) Conversations() repository.ConversationRepository { return conversationRepo{t.st} }
func (t *memTx) Library() repository.LibraryRepository            { return libraryRepo{t.st} }

type bookingRepo struct{ st *state }

func (r bookingRepo) Create(_ context.Context, b *entity.Booking) error {
	if _, ok := r.st.bookings[b.ID]; ok {
		return repository.ErrDuplicate
	}
	r.st.bookings[b.ID] = *b
	return nil
}

func (r bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, ok := r.st.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r bookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r bookingRepo) Update(_ context.Context, b *entity.Booking) error {
	stored, ok := r.st.bookings[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != b.Version {
		return repository.ErrStaleVersion
	}
	b.Version++
	r.st.bookings[b.ID] = *b
	return nil
}

func (r bookingRepo) List(_ context.Context, f repository.BookingFilter) ([]*entity.Booking, int, error) {
	var all []*entity.Booking
	for _, b := range r.st.bookings {
		b := b
		switch f.Role {
		case valueobject.RoleBrand:
			if b.BrandID != f.ProfileID {
				continue
			}
		case valueobject.RoleCreator:
			if b.CreatorID != f.ProfileID {
				continue
			}
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		all = append(all, &b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r bookingRepo) HasCompletedBetween(_ context.Context, brandID, creatorID uuid.UUID) (bool, error) {
	for _, b := range r.st.bookings {
		if b.BrandID == brandID && b.CreatorID == creatorID && b.Status == valueobject.BookingStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

type ledgerRepo struct{ st *state }

func (r ledgerRepo) Append(_ context.Context, tx *entity.EscrowTransaction) error {
	r.st.ledger[tx.BookingID] = append(r.st.ledger[tx.BookingID], *tx)
	return nil
}

func (r ledgerRepo) UpdateStatus(_ context.Context, tx *entity.EscrowTransaction) error {
	entries := r.st.ledger[tx.BookingID]
	for i := range entries {
		if entries[i].ID != tx.ID {
			continue
		}
		if entries[i].Status != valueobject.TransactionStatusPending {
			return repository.ErrStaleVersion
		}
		entries[i].Status = tx.Status
		entries[i].ProcessedAt = tx.ProcessedAt
		return nil
	}
	return repository.ErrNotFound
}

func (r ledgerRepo) ListByBooking(_ context.Context, bookingID uuid.UUID) ([]entity.EscrowTransaction, error) {
	return append([]entity.EscrowTransaction(nil), r.st.ledger[bookingID]...), nil
}

type disputeRepo struct{ st *state }

func (r disputeRepo) Create(_ context.Context, d *entity.Dispute) error {
	for _, existing := range r.st.disputes {
		if existing.BookingID == d.BookingID && existing.IsOpen() {
			return repository.ErrDuplicate
		}
	}
	r.st.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*entity.Dispute, error) {
	d, ok := r.st.disputes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r disputeRepo) FindOpenByBooking(_ context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	for _, d := range r.st.disputes {
		if d.BookingID == bookingID && d.IsOpen() {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

func (r disputeRepo) Update(_ context.Context, d *entity.Dispute) error {
	if _, ok := r.st.disputes[d.ID]; !ok {
		return repository.ErrNotFound
	}
	r.st.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) ListOpen(_ context.Context, limit, offset int) ([]*entity.Dispute, error) {
	var out []*entity.Dispute
	for _, d := range r.st.disputes {
		if d.IsOpen() {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

type subscriptionRepo struct{ st *state }

func (r subscriptionRepo) Create(_ context.Context, s *entity.Subscription) error {
	if s.IsActive() {
		for _, existing := range r.st.subscriptions {
			if existing.BrandProfileID == s.BrandProfileID && existing.IsActive() {
				return repository.ErrDuplicate
			}
		}
	}
	r.st.subscriptions[s.ID] = *s
	return nil
}

func (r subscriptionRepo) UpdateStatus(_ context.Context, s *entity.Subscription) error {
	stored, ok := r.st.subscriptions[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = s.Status
	stored.UpdatedAt = s.UpdatedAt
	r.st.subscriptions[s.ID] = stored
	return nil
}

func (r subscriptionRepo) FindActive(_ context.Context, brandID uuid.UUID) (*entity.Subscription, error) {
	for _, s := range r.st.subscriptions {
		if s.BrandProfileID == brandID && s.IsActive() {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (r subscriptionRepo) FindActiveForUpdate(ctx context.Context, brandID uuid.UUID) (*entity.Subscription, error) {
	return r.FindActive(ctx, brandID)
}

func (r subscriptionRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*entity.Subscription, error) {
	s, ok := r.st.subscriptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r subscriptionRepo) ListActivePaid(_ context.Context) ([]*entity.Subscription, error) {
	var out []*entity.Subscription
	for _, s := range r.st.subscriptions {
		if s.IsActive() && s.PlanType != entitlement.PlanNone {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentPeriodEnd.Before(out[j].CurrentPeriodEnd) })
	return out, nil
}

func (r subscriptionRepo) ListExpiredBetween(_ context.Context, from, to time.Time) ([]*entity.Subscription, error) {
	var out []*entity.Subscription
	for _, s := range r.st.subscriptions {
		if s.Status != valueobject.SubscriptionStatusExpired {
			continue
		}
		if s.CurrentPeriodEnd.Before(from) || !s.CurrentPeriodEnd.Before(to) {
			continue
		}
		s := s
		out = append(out, &s)
	}
	return out, nil
}

type usageRepo struct {
	st     *state
	faults Faults
}

func (r usageRepo) GetForUpdate(_ context.Context, brandID uuid.UUID, now time.Time) (*entity.UsageCounter, error) {
	if r.faults.UsageErr != nil {
		return nil, r.faults.UsageErr
	}
	u, ok := r.st.usage[brandID]
	if !ok {
		u = *entity.NewUsageCounter(brandID, now)
		r.st.usage[brandID] = u
	}
	return &u, nil
}

func (r usageRepo) Get(_ context.Context, brandID uuid.UUID) (*entity.UsageCounter, error) {
	if r.faults.UsageErr != nil {
		return nil, r.faults.UsageErr
	}
	u, ok := r.st.usage[brandID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r usageRepo) Save(_ context.Context, u *entity.UsageCounter) error {
	if r.faults.UsageErr != nil {
		return r.faults.UsageErr
	}
	stored, ok := r.st.usage[u.BrandProfileID]
	if ok && stored.Version != u.Version {
		return repository.ErrStaleVersion
	}
	u.Version++
	r.st.usage[u.BrandProfileID] = *u
	return nil
}

type conversationRepo struct{ st *state }

func (r conversationRepo) Create(_ context.Context, c *entity.Conversation) error {
	for _, existing := range r.st.conversations {
		if existing.BrandProfileID == c.BrandProfileID && existing.CreatorProfileID == c.CreatorProfileID {
			return repository.ErrDuplicate
		}
	}
	r.st.conversations[c.ID] = *c
	return nil
}

func (r conversationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Conversation, error) {
	c, ok := r.st.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r conversationRepo) FindByParticipants(_ context.Context, brandID, creatorID uuid.UUID) (*entity.Conversation, error) {
	for _, c := range r.st.conversations {
		if c.BrandProfileID == brandID && c.CreatorProfileID == creatorID {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (r conversationRepo) AddMessage(_ context.Context, m *entity.Message) error {
	r.st.messages = append(r.st.messages, *m)
	return nil
}

func (r conversationRepo) ListMessages(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, m := range r.st.messages {
		if m.ConversationID == conversationID {
			m := m
			out = append(out, &m)
		}
	}
	return page(out, limit, offset), nil
}

type libraryRepo struct{ st *state }

func (r libraryRepo) Create(_ context.Context, item *entity.LibraryItem) error {
	r.st.library = append(r.st.library, *item)
	return nil
}

func (r libraryRepo) UsedBytes(_ context.Context, brandID uuid.UUID) (int64, error) {
	var total int64
	for _, item := range r.st.library {
		if item.BrandProfileID == brandID {
			total += item.SizeBytes
		}
	}
	return total, nil
}

func (r libraryRepo) List(_ context.Context, brandID uuid.UUID, limit, offset int) ([]*entity.LibraryItem, error) {
	var out []*entity.LibraryItem
	for _, item := range r.st.library {
		if item.BrandProfileID == brandID {
			item := item
			out = append(out, &item)
		}
	}
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

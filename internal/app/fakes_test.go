package app

import (
	"context"
	"errors"
	"sync"

	"loan_interest_accrual/internal/domain/interest"
	"loan_interest_accrual/internal/domain/loan"

	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("store unavailable")

// memoryLoanStore keeps copies so tests can tell persisted state from in-memory mutation.
type memoryLoanStore struct {
	mu      sync.Mutex
	loans   map[int64]loan.Loan
	order   []int64
	findErr error
	failOn  map[int64]error
	updates int
}

func newMemoryLoanStore(loans ...*loan.Loan) *memoryLoanStore {
	s := &memoryLoanStore{loans: make(map[int64]loan.Loan), failOn: make(map[int64]error)}
	for _, l := range loans {
		s.loans[l.ID] = *l
		s.order = append(s.order, l.ID)
	}
	return s
}

func (s *memoryLoanStore) FindOpenAccruableLoans(ctx context.Context) ([]*loan.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make([]*loan.Loan, 0, len(s.order))
	for _, id := range s.order {
		l := s.loans[id]
		if l.IsAccruable() {
			out = append(out, &l)
		}
	}
	return out, nil
}

func (s *memoryLoanStore) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, errors.New("loan not found")
	}
	return &l, nil
}

func (s *memoryLoanStore) Update(ctx context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[l.ID]; err != nil {
		return err
	}
	s.loans[l.ID] = *l
	s.updates++
	return nil
}

func (s *memoryLoanStore) get(id int64) loan.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans[id]
}

// memoryLedger implements interest.UnitOfWork on top of a memoryLoanStore.
type memoryLedger struct {
	mu       sync.Mutex
	store    *memoryLoanStore
	rows     []*interest.DailyCalculation
	failOn   map[int64]error
	onCommit func(l *loan.Loan)
}

func newMemoryLedger(store *memoryLoanStore) *memoryLedger {
	return &memoryLedger{store: store, failOn: make(map[int64]error)}
}

func (m *memoryLedger) CommitAccrual(ctx context.Context, l *loan.Loan, calc *interest.DailyCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[l.ID]; err != nil {
		return err
	}
	if err := m.store.Update(ctx, l); err != nil {
		return err
	}
	m.rows = append(m.rows, calc)
	if m.onCommit != nil {
		m.onCommit(l)
	}
	return nil
}

func (m *memoryLedger) rowsFor(loanID int64) []*interest.DailyCalculation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*interest.DailyCalculation
	for _, r := range m.rows {
		if r.LoanID == loanID {
			out = append(out, r)
		}
	}
	return out
}

type stubApplications struct {
	apps  map[int64]*loan.Application
	panic bool
}

func (s *stubApplications) FindByID(ctx context.Context, id int64) (*loan.Application, error) {
	if s.panic {
		panic("application lookup exploded")
	}
	a, ok := s.apps[id]
	if !ok {
		return nil, errors.New("loan application not found")
	}
	return a, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendToActiveSubscribers(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

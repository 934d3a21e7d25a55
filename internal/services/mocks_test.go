package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/audit"
	"github.com/ruralpay/ledger/internal/config"
	"github.com/ruralpay/ledger/internal/events"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// published returns every event passed to Publish, in call order
func (m *MockPublisher) published() []events.Event {
	var all []events.Event
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			all = append(all, call.Arguments.Get(1).([]events.Event)...)
		}
	}
	return all
}

type MockCardResolver struct {
	mock.Mock
}

func (m *MockCardResolver) ResolveCard(ctx context.Context, cardNumber string) (*models.CardRecord, error) {
	args := m.Called(ctx, cardNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CardRecord), args.Error(1)
}

// testClock is a settable clock safe for concurrent readers
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func usd(units int64) models.Amount {
	return models.AmountOf(models.CurrencyUSD, units)
}

func assertAmount(t *testing.T, expected, actual models.Amount) {
	t.Helper()
	require.Truef(t, expected.Equal(actual), "expected %s, got %s", expected, actual)
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *memory.MemoryStore
	clock      *testClock
	publisher  *MockPublisher
	svc        *Services
	businessID uuid.UUID
	business   *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	publisher := &MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      memory.NewMemoryStore(),
		clock:      newTestClock(),
		publisher:  publisher,
		businessID: uuid.New(),
	}
	f.svc = New(Options{
		Store:     f.store,
		Publisher: publisher,
		Audit:     audit.NewLoggerTo(io.Discard),
		Config:    config.DefaultLedgerConfig(),
		Clock:     f.clock.Now,
	})

	business, err := f.svc.Accounts.CreateBusiness(f.ctx, f.businessID, models.CurrencyUSD)
	require.NoError(t, err)
	f.business = business
	return f
}

func (f *fixture) account(id uuid.UUID) *models.Account {
	f.t.Helper()
	account, err := f.svc.Accounts.RetrieveAccount(f.ctx, id)
	require.NoError(f.t, err)
	return account
}

func (f *fixture) deposit(accountID uuid.UUID, amount models.Amount) {
	f.t.Helper()
	_, err := f.svc.Adjustments.DepositFunds(f.ctx, f.businessID, accountID, amount, false)
	require.NoError(f.t, err)
}

// newCard issues a card on a fresh allocation and funds its account from the business
func (f *fixture) newCard(cardNumber string, balance models.Amount) (*models.Card, *models.Account) {
	f.t.Helper()
	allocationID := uuid.New()
	_, err := f.svc.Accounts.CreateAccount(f.ctx, f.businessID, models.AccountTypeAllocation, allocationID, models.CurrencyUSD)
	require.NoError(f.t, err)

	card, account, err := f.svc.Accounts.IssueCard(f.ctx, f.businessID, allocationID, cardNumber, models.CurrencyUSD)
	require.NoError(f.t, err)

	if balance.IsPositive() {
		f.deposit(f.business.ID, balance)
		_, err = f.svc.Adjustments.ReallocateFunds(f.ctx, f.businessID, f.business.ID, account.ID, balance)
		require.NoError(f.t, err)
	}
	return card, f.account(account.ID)
}

func (f *fixture) message(card *models.Card, typ models.NetworkMessageType, amount models.Amount, ref string) *models.NetworkCommon {
	return &models.NetworkCommon{
		CardNumber:         card.CardNumber,
		NetworkMessageType: typ,
		CreditOrDebit:      models.Debit,
		RequestedAmount:    amount,
		NetworkRef:         ref,
		MerchantName:       "Corner Shop",
	}
}

func (f *fixture) visibleActivity(filter models.ActivityFilter) []models.AccountActivity {
	f.t.Helper()
	rows, err := f.svc.Activity.FindActivity(f.ctx, f.businessID, filter)
	require.NoError(f.t, err)
	return rows
}

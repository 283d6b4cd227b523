package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"settlement-service/internal/database"
	"settlement-service/internal/models"
	"settlement-service/internal/repository"
	"settlement-service/pkg/common"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPin = "123456"

// openTestDB uses the MySQL database in DATABASE_URL when set and an
// isolated in-memory SQLite database otherwise.
func openTestDB(t *testing.T, now func() time.Time) *gorm.DB {
	t.Helper()
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        now,
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err = gorm.Open(mysql.Open(dsn), cfg)
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db))
		for _, table := range []string{"wallets", "earnings", "withdrawals", "security_credentials", "payment_attempts", "platform_settings", "callback_logs", "banks"} {
			require.NoError(t, db.Exec("DELETE FROM "+table).Error)
		}
		return db
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err = gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeGateway struct {
	mu sync.Mutex

	link       string
	initErr    error
	charges    []ChargeRequest
	verify     map[string]*ChargeVerification
	verifyErr  error
	verifyHits int

	subaccounts     map[string]string
	findErr         error
	createErr       error
	createdAccounts int

	transfer    func(req TransferRequest) (*TransferResult, error)
	transfers   []TransferRequest
	lookups     map[string]*TransferResult
	balances    map[string]decimal.Decimal
	balanceErr  error
	balanceHits int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		link:        "https://checkout.example.com/pay",
		verify:      map[string]*ChargeVerification{},
		subaccounts: map[string]string{},
		lookups:     map[string]*TransferResult{},
		balances:    map[string]decimal.Decimal{},
		transfer: func(req TransferRequest) (*TransferResult, error) {
			return &TransferResult{TransferID: "tr-" + req.Reference, Reference: req.Reference, Status: TransferNew}, nil
		},
	}
}

// succeed makes VerifyCharge report reference as paid in full.
func (g *fakeGateway) succeed(reference string, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verify[reference] = &ChargeVerification{
		Reference:     reference,
		TransactionID: "chg-" + reference,
		Status:        "successful",
		Amount:        amount,
		Currency:      "NGN",
	}
}

func (g *fakeGateway) InitializeCharge(_ context.Context, req ChargeRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)
	if g.initErr != nil {
		return "", g.initErr
	}
	return g.link, nil
}

func (g *fakeGateway) VerifyCharge(_ context.Context, reference string) (*ChargeVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyHits++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if v, ok := g.verify[reference]; ok {
		copied := *v
		return &copied, nil
	}
	return &ChargeVerification{Reference: reference, Status: "pending"}, nil
}

func (g *fakeGateway) FindSubaccount(_ context.Context, accountNumber, bankCode string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.findErr != nil {
		return "", g.findErr
	}
	return g.subaccounts[accountNumber+"|"+bankCode], nil
}

func (g *fakeGateway) CreateSubaccount(_ context.Context, req SubaccountRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.createdAccounts++
	id := fmt.Sprintf("RS_%d", g.createdAccounts)
	g.subaccounts[req.AccountNumber+"|"+req.BankCode] = id
	return id, nil
}

func (g *fakeGateway) InitiateTransfer(_ context.Context, req TransferRequest) (*TransferResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, req)
	return g.transfer(req)
}

func (g *fakeGateway) GetTransfer(_ context.Context, transferID string) (*TransferResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.lookups[transferID]; ok {
		return r, nil
	}
	return nil, common.ErrNotFound
}

func (g *fakeGateway) VirtualAccountBalance(_ context.Context, accountRef string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balanceHits++
	if g.balanceErr != nil {
		return decimal.Zero, g.balanceErr
	}
	return g.balances[accountRef], nil
}

type fakeViewings struct {
	mu       sync.Mutex
	viewings map[string]*Viewing
	paid     map[string]string
}

func newFakeViewings() *fakeViewings {
	return &fakeViewings{viewings: map[string]*Viewing{}, paid: map[string]string{}}
}

func (f *fakeViewings) add(v Viewing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewings[v.ID] = &v
}

func (f *fakeViewings) GetViewing(_ context.Context, id string) (*Viewing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.viewings[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeViewings) MarkViewingPaid(_ context.Context, id, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid[id] = reference
	if v, ok := f.viewings[id]; ok {
		v.Paid = true
	}
	return nil
}

type fakeUsers struct{}

func (fakeUsers) GetUserByID(_ context.Context, id string) (*User, error) {
	return &User{ID: id, Email: id + "@example.com", Name: "User " + id}, nil
}

type sentEmail struct {
	To       string
	Template string
	Data     map[string]interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (n *recordingNotifier) SendEmail(_ context.Context, to, template string, data map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{To: to, Template: template, Data: data})
	return nil
}

// last returns the most recent email with template.
func (n *recordingNotifier) last(template string) *sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Template == template {
			e := n.sent[i]
			return &e
		}
	}
	return nil
}

func (n *recordingNotifier) count(template string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.sent {
		if e.Template == template {
			total++
		}
	}
	return total
}

type recordingEvents struct {
	mu     sync.Mutex
	topics []string
}

func (e *recordingEvents) Publish(_ context.Context, topic, _ string, _ interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics = append(e.topics, topic)
	return nil
}

func (e *recordingEvents) count(topic string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, t := range e.topics {
		if t == topic {
			total++
		}
	}
	return total
}

type testEnv struct {
	ctx        context.Context
	ledger     *repository.Ledger
	helper     *HelperService
	gateway    *fakeGateway
	viewings   *fakeViewings
	notifier   *recordingNotifier
	events     *recordingEvents
	challenges *MemoryChallengeStore
	clock      time.Time

	settings       *SettingsService
	subaccounts    *SubaccountService
	settlement     *SettlementService
	security       *SecurityService
	withdrawals    *WithdrawalService
	disbursements  *DisbursementService
	wallets        *WalletService
	webhooks       *WebhookService
	reconciliation *ReconciliationService
}

const testSecretHash = "flw-secret-hash"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		ctx:        context.Background(),
		gateway:    newFakeGateway(),
		viewings:   newFakeViewings(),
		notifier:   &recordingNotifier{},
		events:     &recordingEvents{},
		challenges: NewMemoryChallengeStore(),
		clock:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	e.ledger = repository.NewLedger(openTestDB(t, func() time.Time { return e.clock }))
	e.helper = NewHelperService(e.ledger, quietLog(), e.notifier, e.events, fakeUsers{})
	e.helper.Now = func() time.Time { return e.clock }
	e.challenges.Now = func() time.Time { return e.clock }

	e.settings = NewSettingsService(e.helper, 10)
	e.subaccounts = NewSubaccountService(e.helper, e.gateway)
	e.settlement = NewSettlementService(e.helper, e.gateway, e.viewings, e.settings, e.subaccounts, "https://app.example.com/payments/callback")
	e.security = NewSecurityService(e.helper, e.challenges, SecurityOptions{BcryptCost: bcrypt.MinCost})
	e.withdrawals = NewWithdrawalService(e.helper, e.security, e.gateway, decimal.NewFromInt(100))
	e.disbursements = NewDisbursementService(e.helper, e.withdrawals)
	e.wallets = NewWalletService(e.helper)
	e.webhooks = NewWebhookService(e.helper, testSecretHash, e.settlement, e.withdrawals)
	e.reconciliation = NewReconciliationService(e.helper, e.gateway, e.settlement, e.withdrawals, ReconciliationOptions{
		StalePaymentAfter:    15 * time.Minute,
		StaleWithdrawalAfter: 30 * time.Minute,
	})
	return e
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedWallet creates a wallet with a payout account and the given balances.
func (e *testEnv) seedWallet(t *testing.T, owner, balance, manual string) *models.Wallet {
	t.Helper()
	wallet := models.Wallet{
		OwnerId:              owner,
		VirtualAccountNo:     "0123456789",
		BankCode:             "044",
		BankName:             "Access Bank",
		AccountName:          "Ada Agent",
		Balance:              dec(balance),
		ManualPendingBalance: dec(manual),
		Currency:             "NGN",
		Status:               models.WalletActive,
	}
	require.NoError(t, e.ledger.DB.Create(&wallet).Error)
	return &wallet
}

func (e *testEnv) wallet(t *testing.T, owner string) *models.Wallet {
	t.Helper()
	wallet, err := e.ledger.Wallets.FindByOwner(e.ctx, owner)
	require.NoError(t, err)
	return wallet
}

func (e *testEnv) setPin(t *testing.T, owner string) {
	t.Helper()
	require.NoError(t, e.security.SetPin(e.ctx, SetPinDTO{OwnerID: owner, Pin: testPin}))
}

// requestOTP runs the first withdrawal step and returns the emailed OTP.
func (e *testEnv) requestOTP(t *testing.T, owner, amount string) string {
	t.Helper()
	_, err := e.withdrawals.RequestOTP(e.ctx, WithdrawalOTPDTO{OwnerID: owner, Amount: dec(amount), Pin: testPin})
	require.NoError(t, err)
	challenge, err := e.challenges.Get(e.ctx, owner)
	require.NoError(t, err)
	return challenge.OTP
}

func (e *testEnv) withdraw(t *testing.T, owner, amount string) (*models.Withdrawal, error) {
	t.Helper()
	otp := e.requestOTP(t, owner, amount)
	return e.withdrawals.Withdraw(e.ctx, WithdrawDTO{OwnerID: owner, Amount: dec(amount), Pin: testPin, Otp: otp})
}

func authReason(t *testing.T, err error) common.AuthReason {
	t.Helper()
	var authErr *common.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	return authErr.Reason
}

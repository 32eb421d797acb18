package listener

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"piron-pools-go/internal/database"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/shopspring/decimal"
)

const (
	testWallet  = "0x00000000000000000000000000000000000000aa"
	testTxHash1 = "0x1000000000000000000000000000000000000000000000000000000000000001"
	testTxHash2 = "0x2000000000000000000000000000000000000000000000000000000000000002"
)

type fakeChain struct {
	mu          sync.Mutex
	states      map[string]*models.OnchainPoolState
	readErrs    map[string]error
	receipts    map[string]*models.DepositReceipt
	verifyErr   error
	verifyCalls int
	closes      []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		states:   make(map[string]*models.OnchainPoolState),
		readErrs: make(map[string]error),
		receipts: make(map[string]*models.DepositReceipt),
	}
}

func (f *fakeChain) ReadPoolState(_ context.Context, p *models.Pool) (*models.OnchainPoolState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErrs[p.PoolAddress]; err != nil {
		return nil, err
	}
	state, ok := f.states[p.PoolAddress]
	if !ok {
		return nil, errors.New("no such pool on chain")
	}
	copied := *state
	return &copied, nil
}

func (f *fakeChain) VerifyDeposit(_ context.Context, p *models.Pool, txHash string) (*models.DepositReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if r, ok := f.receipts[txHash]; ok {
		return r, nil
	}
	return &models.DepositReceipt{TxHash: txHash, BlockNumber: 10, Sender: testWallet, To: p.PoolAddress}, nil
}

func (f *fakeChain) CloseEpoch(_ context.Context, p *models.Pool) (*models.TxReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, p.PoolAddress)
	if state, ok := f.states[p.PoolAddress]; ok {
		state.Status = models.PoolPendingInvestment
		state.StatusCode = 1
	}
	return &models.TxReceipt{TxHash: "0xc105e", BlockNumber: 100}, nil
}

func setupTestStore(t *testing.T) *database.Service {
	t.Helper()
	dbService, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
		SeedSettings: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(dbService.Close)
	return dbService
}

func createTestPool(t *testing.T, dbService store.PoolStore, name, poolAddress string) *models.Pool {
	t.Helper()
	epochEnd := time.Now().Add(7 * 24 * time.Hour)
	p, err := dbService.CreatePool(context.Background(), store.CreatePoolParams{
		Name:              name,
		InstrumentType:    models.InstrumentDiscounted,
		AssetSymbol:       "USDC",
		PoolAddress:       poolAddress,
		ManagerAddress:    "0x2222222222222222222222222222222222222222",
		TargetRaise:       decimal.NewFromInt(1000000),
		MinimumInvestment: decimal.NewFromInt(100),
		DiscountRate:      1000,
		EpochEndTime:      epochEnd,
		MaturityDate:      epochEnd.Add(91 * 24 * time.Hour),
		CreatedBy:         "admin-1",
	})
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	return p
}

func createTestUser(t *testing.T, dbService store.PoolStore, clerkId, wallet string) *models.User {
	t.Helper()
	user, err := dbService.CreateUser(context.Background(), clerkId, clerkId+"@example.com", wallet)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestRecordDeposit_FromEvent(t *testing.T) {
	dbService := setupTestStore(t)
	chain := newFakeChain()
	r := NewReconciler(chain, dbService)
	ctx := context.Background()

	pool := createTestPool(t, dbService, "T-Bill", "0x1111111111111111111111111111111111111111")
	user := createTestUser(t, dbService, "user_1", testWallet)

	chain.receipts[testTxHash1] = &models.DepositReceipt{
		TxHash: testTxHash1, BlockNumber: 11, Sender: testWallet, Owner: testWallet,
		Assets: decimal.NewFromInt(2500), Shares: decimal.NewFromInt(2450), EventFound: true,
	}

	result, err := r.RecordDeposit(ctx, user, pool.Id, strings.ToUpper(testTxHash1[:2])+testTxHash1[2:], decimal.NewFromInt(9999))
	if err != nil {
		t.Fatalf("RecordDeposit failed: %v", err)
	}
	if !result.Success || !result.AmountFromChain || !result.FirstDeposit {
		t.Errorf("unexpected result %+v", result)
	}
	if !result.Amount.Equal(decimal.NewFromInt(2500)) || !result.Shares.Equal(decimal.NewFromInt(2450)) {
		t.Errorf("Amount/Shares = %s/%s; want 2500/2450", result.Amount, result.Shares)
	}

	// Second deposit by the same user: entered amount, investors unchanged
	result, err = r.RecordDeposit(ctx, user, pool.Id, testTxHash2, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("second RecordDeposit failed: %v", err)
	}
	if result.AmountFromChain || result.FirstDeposit {
		t.Errorf("unexpected second result %+v", result)
	}

	updated, _ := dbService.GetPool(ctx, pool.Id)
	if !updated.TotalRaised.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("TotalRaised = %s; want 3000", updated.TotalRaised)
	}
	if updated.TotalInvestors != 1 {
		t.Errorf("TotalInvestors = %d; want 1", updated.TotalInvestors)
	}
}

func TestRecordDeposit_Rejections(t *testing.T) {
	dbService := setupTestStore(t)
	chain := newFakeChain()
	r := NewReconciler(chain, dbService)
	ctx := context.Background()

	pool := createTestPool(t, dbService, "T-Bill", "0x1111111111111111111111111111111111111111")
	user := createTestUser(t, dbService, "user_1", testWallet)

	if _, err := r.RecordDeposit(ctx, user, pool.Id, "0x1234", decimal.NewFromInt(1)); !errors.Is(err, ErrInvalidTxHash) {
		t.Errorf("expected ErrInvalidTxHash, got %v", err)
	}

	if _, err := r.RecordDeposit(ctx, user, pool.Id, testTxHash1, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("RecordDeposit failed: %v", err)
	}
	calls := chain.verifyCalls
	if _, err := r.RecordDeposit(ctx, user, pool.Id, testTxHash1, decimal.NewFromInt(100)); !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Errorf("expected ErrDuplicateTransaction, got %v", err)
	}
	if chain.verifyCalls != calls {
		t.Error("duplicate hash should not reach the chain")
	}

	chain.receipts[testTxHash2] = &models.DepositReceipt{
		TxHash: testTxHash2, Sender: "0x00000000000000000000000000000000000000ff",
		Owner: "0x00000000000000000000000000000000000000ff", Assets: decimal.NewFromInt(1),
		Shares: decimal.NewFromInt(1), EventFound: true,
	}
	if _, err := r.RecordDeposit(ctx, user, pool.Id, testTxHash2, decimal.NewFromInt(1)); !errors.Is(err, ErrSenderMismatch) {
		t.Errorf("expected ErrSenderMismatch, got %v", err)
	}

	// No Deposit event: a stranger's transfer must not be credited at the entered amount
	strangerHash := "0x3000000000000000000000000000000000000000000000000000000000000003"
	chain.receipts[strangerHash] = &models.DepositReceipt{
		TxHash: strangerHash, BlockNumber: 12,
		Sender: "0x00000000000000000000000000000000000000ff", To: pool.PoolAddress,
	}
	if _, err := r.RecordDeposit(ctx, user, pool.Id, strangerHash, decimal.NewFromInt(1_000_000)); !errors.Is(err, ErrSenderMismatch) {
		t.Errorf("expected ErrSenderMismatch for a stranger's tx, got %v", err)
	}

	// No Deposit event and the tx went to some other contract
	elsewhereHash := "0x4000000000000000000000000000000000000000000000000000000000000004"
	chain.receipts[elsewhereHash] = &models.DepositReceipt{
		TxHash: elsewhereHash, BlockNumber: 13, Sender: testWallet,
		To: "0x4444444444444444444444444444444444444444",
	}
	if _, err := r.RecordDeposit(ctx, user, pool.Id, elsewhereHash, decimal.NewFromInt(1_000_000)); !errors.Is(err, ErrNotPoolDeposit) {
		t.Errorf("expected ErrNotPoolDeposit, got %v", err)
	}

	// Users without a linked wallet cannot record deposits at all
	walletless := createTestUser(t, dbService, "user_2", "")
	calls = chain.verifyCalls
	chain.receipts[testTxHash2] = &models.DepositReceipt{
		TxHash: testTxHash2, Sender: "0x00000000000000000000000000000000000000ff",
		Owner: "0x00000000000000000000000000000000000000ff", Assets: decimal.NewFromInt(5),
		Shares: decimal.NewFromInt(5), EventFound: true,
	}
	if _, err := r.RecordDeposit(ctx, walletless, pool.Id, testTxHash2, decimal.NewFromInt(5)); !errors.Is(err, ErrWalletRequired) {
		t.Errorf("expected ErrWalletRequired, got %v", err)
	}
	if chain.verifyCalls != calls {
		t.Error("walletless user should not reach the chain")
	}

	updated, _ := dbService.GetPool(ctx, pool.Id)
	if !updated.TotalRaised.Equal(decimal.NewFromInt(100)) {
		t.Errorf("TotalRaised = %s; rejected deposits must not be counted", updated.TotalRaised)
	}

	reverted := errors.New("transaction reverted")
	chain.verifyErr = reverted
	delete(chain.receipts, testTxHash2)
	if _, err := r.RecordDeposit(ctx, user, pool.Id, testTxHash2, decimal.NewFromInt(1)); !errors.Is(err, reverted) {
		t.Errorf("expected chain error to be wrapped, got %v", err)
	}
}

type failingDepositStore struct {
	store.PoolStore
}

func (failingDepositStore) RecordDeposit(context.Context, store.RecordDepositParams) (*models.Transaction, bool, error) {
	return nil, false, errors.New("database is locked")
}

func TestRecordDeposit_StoreFailureAfterChainSuccess(t *testing.T) {
	dbService := setupTestStore(t)
	r := NewReconciler(newFakeChain(), failingDepositStore{dbService})

	pool := createTestPool(t, dbService, "T-Bill", "0x1111111111111111111111111111111111111111")
	user := createTestUser(t, dbService, "user_1", testWallet)

	result, err := r.RecordDeposit(context.Background(), user, pool.Id, testTxHash1, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("expected a warning result, got error %v", err)
	}
	if !result.Success {
		t.Error("chain-confirmed deposit should report success")
	}
	if !strings.Contains(result.Warning, "contact support") {
		t.Errorf("Warning = %q", result.Warning)
	}
	if result.TransactionId != "" {
		t.Errorf("TransactionId = %q; want empty", result.TransactionId)
	}
}

func TestSyncPool_MirrorsChainWithoutTransitionRules(t *testing.T) {
	dbService := setupTestStore(t)
	chain := newFakeChain()
	r := NewReconciler(chain, dbService)

	pool := createTestPool(t, dbService, "T-Bill", "0x1111111111111111111111111111111111111111")
	chain.states[pool.PoolAddress] = &models.OnchainPoolState{
		StatusCode:     3,
		Status:         models.PoolMatured,
		TotalRaised:    decimal.RequireFromString("750000.25"),
		ActualInvested: decimal.NewFromInt(700000),
		TotalInvestors: 42,
	}

	result, err := r.SyncPool(context.Background(), pool.Id)
	if err != nil {
		t.Fatalf("SyncPool failed: %v", err)
	}
	if result.Status != models.PoolMatured {
		t.Errorf("Status = %s; want MATURED", result.Status)
	}
	if !result.TotalRaised.Equal(decimal.RequireFromString("750000.25")) || result.TotalInvestors != 42 {
		t.Errorf("unexpected counters %+v", result)
	}
	if result.SyncedAt.IsZero() {
		t.Error("SyncedAt should be set")
	}
}

func TestCloseEpoch(t *testing.T) {
	dbService := setupTestStore(t)
	chain := newFakeChain()
	r := NewReconciler(chain, dbService)
	ctx := context.Background()

	pool := createTestPool(t, dbService, "T-Bill", "0x1111111111111111111111111111111111111111")
	epochEnd := time.Now().Add(time.Hour)
	chain.states[pool.PoolAddress] = &models.OnchainPoolState{
		Status:       models.PoolFunding,
		EpochEndTime: epochEnd,
		TotalRaised:  decimal.NewFromInt(5000),
	}

	if _, err := r.CloseEpoch(ctx, pool.Id, false); !errors.Is(err, ErrEpochNotEnded) {
		t.Fatalf("expected ErrEpochNotEnded, got %v", err)
	}
	if len(chain.closes) != 0 {
		t.Fatal("closeEpoch should not be sent before the epoch ends")
	}

	r.now = func() time.Time { return epochEnd.Add(time.Minute) }
	result, err := r.CloseEpoch(ctx, pool.Id, false)
	if err != nil {
		t.Fatalf("CloseEpoch failed: %v", err)
	}
	if result.Status != models.PoolPendingInvestment || result.TxHash == "" {
		t.Errorf("unexpected result %+v", result)
	}

	updated, _ := dbService.GetPool(ctx, pool.Id)
	if updated.Status != models.PoolPendingInvestment {
		t.Errorf("stored Status = %s; want PENDING_INVESTMENT", updated.Status)
	}
	if !updated.TotalRaised.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("TotalRaised = %s; want 5000", updated.TotalRaised)
	}

	if _, err := r.CloseEpoch(ctx, pool.Id, true); !errors.Is(err, ErrEpochClosed) {
		t.Errorf("expected ErrEpochClosed on second close, got %v", err)
	}
}

func TestCloseEpoch_ForceBeforeEnd(t *testing.T) {
	dbService := setupTestStore(t)
	chain := newFakeChain()
	r := NewReconciler(chain, dbService)

	pool := createTestPool(t, dbService, "T-Bill", "0x1111111111111111111111111111111111111111")
	chain.states[pool.PoolAddress] = &models.OnchainPoolState{
		Status:       models.PoolFunding,
		EpochEndTime: time.Now().Add(24 * time.Hour),
	}

	result, err := r.CloseEpoch(context.Background(), pool.Id, true)
	if err != nil {
		t.Fatalf("forced CloseEpoch failed: %v", err)
	}
	if !result.Forced || len(chain.closes) != 1 {
		t.Errorf("expected one forced close, got %+v with %d sends", result, len(chain.closes))
	}
}

type fakeRegistry struct {
	active []string
}

func (f fakeRegistry) ActivePools(context.Context) ([]string, error) {
	return f.active, nil
}

func TestPoolListener_SyncOnce(t *testing.T) {
	dbService := setupTestStore(t)
	chain := newFakeChain()
	ctx := context.Background()

	good := createTestPool(t, dbService, "Good", "0x1111111111111111111111111111111111111111")
	bad := createTestPool(t, dbService, "Bad", "0x3333333333333333333333333333333333333333")
	createTestPool(t, dbService, "Draft", "")

	chain.states[good.PoolAddress] = &models.OnchainPoolState{Status: models.PoolInvested, TotalRaised: decimal.NewFromInt(10), TotalInvestors: 1}
	chain.readErrs[bad.PoolAddress] = errors.New("rpc unavailable")

	l := NewPoolListener(PoolListenerConfig{
		Reconciler:      NewReconciler(chain, dbService),
		DbService:       dbService,
		Registry:        fakeRegistry{active: []string{good.PoolAddress, "0x4444444444444444444444444444444444444444"}},
		PollingInterval: time.Hour,
		PoolTimeout:     time.Second,
	})

	synced, failed := l.SyncOnce(ctx)
	if synced != 1 || failed != 1 {
		t.Errorf("SyncOnce = (%d, %d); want (1, 1)", synced, failed)
	}

	updated, _ := dbService.GetPool(ctx, good.Id)
	if updated.Status != models.PoolInvested {
		t.Errorf("Status = %s; want INVESTED", updated.Status)
	}

	if err := l.checkRegistry(ctx); err != nil {
		t.Errorf("checkRegistry failed: %v", err)
	}
}

func TestPoolListener_StartStop(t *testing.T) {
	dbService := setupTestStore(t)
	l := NewPoolListener(PoolListenerConfig{
		Reconciler:      NewReconciler(newFakeChain(), dbService),
		DbService:       dbService,
		PollingInterval: 10 * time.Millisecond,
	})

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	l.Stop()

	bad := NewPoolListener(PoolListenerConfig{DbService: dbService})
	if err := bad.Start(context.Background()); err == nil {
		t.Error("Start should reject a zero polling interval")
	}
}

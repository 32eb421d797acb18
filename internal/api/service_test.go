package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"piron-pools-go/internal/database"
	"piron-pools-go/internal/kyc"
	"piron-pools-go/internal/listener"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	testPoolAddress = "0x1111111111111111111111111111111111111111"
	testWallet      = "0x00000000000000000000000000000000000000aa"
	testTxHash      = "0x1000000000000000000000000000000000000000000000000000000000000001"
)

var (
	superPrincipal = &models.Principal{ClerkId: "user_super", Email: "super@piron.finance"}
	adminPrincipal = &models.Principal{ClerkId: "user_admin", Email: "ops@piron.finance"}
	userPrincipal  = &models.Principal{ClerkId: "user_investor", Email: "investor@example.com"}
)

type stubChain struct{}

func (stubChain) ReadPoolState(_ context.Context, p *models.Pool) (*models.OnchainPoolState, error) {
	return &models.OnchainPoolState{
		Status:         models.PoolFunding,
		TotalRaised:    decimal.NewFromInt(4200),
		TotalInvestors: 3,
		ActualInvested: decimal.Zero,
		EpochEndTime:   p.EpochEndTime,
	}, nil
}

func (stubChain) VerifyDeposit(_ context.Context, _ *models.Pool, txHash string) (*models.DepositReceipt, error) {
	return &models.DepositReceipt{
		TxHash: txHash, BlockNumber: 12, Sender: testWallet, Owner: testWallet,
		Assets: decimal.NewFromInt(2500), Shares: decimal.NewFromInt(2500), EventFound: true,
	}, nil
}

func (stubChain) CloseEpoch(context.Context, *models.Pool) (*models.TxReceipt, error) {
	return &models.TxReceipt{TxHash: "0xc105e", BlockNumber: 100}, nil
}

func setupTestService(t *testing.T, policy models.PolicyConfig) (*Service, *database.Service) {
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

	svc := NewService(ServiceConfig{
		DbService:  dbService,
		Reconciler: listener.NewReconciler(stubChain{}, dbService),
		Policy:     policy,
	})
	return svc, dbService
}

func bootstrapPolicy() models.PolicyConfig {
	return models.PolicyConfig{AdminBootstrapEnabled: true}
}

// setupAdmins bootstraps superPrincipal and adds adminPrincipal as a plain ADMIN.
func setupAdmins(t *testing.T, svc *Service) (super, admin *models.Admin) {
	t.Helper()
	ctx := context.Background()
	super, err := svc.CreateFirstAdmin(ctx, superPrincipal, "Super")
	if err != nil {
		t.Fatalf("CreateFirstAdmin failed: %v", err)
	}
	admin, err = svc.CreateAdmin(ctx, superPrincipal, CreateAdminRequest{
		ClerkId: adminPrincipal.ClerkId,
		Email:   adminPrincipal.Email,
		Name:    "Ops",
		Role:    models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}
	return super, admin
}

func testPoolRequest() CreatePoolRequest {
	epochEnd := time.Now().Add(30 * 24 * time.Hour).UTC()
	return CreatePoolRequest{
		Name:              "US T-Bill 3M",
		InstrumentType:    models.InstrumentDiscounted,
		AssetSymbol:       "usdc",
		PoolAddress:       testPoolAddress,
		ManagerAddress:    "0x2222222222222222222222222222222222222222",
		TargetRaise:       "1000000",
		MinimumInvestment: "100",
		DiscountRate:      1000,
		EpochEndTime:      epochEnd,
		MaturityDate:      epochEnd.Add(91 * 24 * time.Hour),
		RiskLevel:         "LOW",
	}
}

func TestAccessState(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()

	access, err := svc.AccessState(ctx, nil)
	if err != nil || access.State != AccessUnauthenticated {
		t.Fatalf("anonymous: got %v, %v; want UNAUTHENTICATED", access, err)
	}

	access, err = svc.AccessState(ctx, superPrincipal)
	if err != nil || access.State != AccessBootstrap {
		t.Fatalf("empty admin table: got %v, %v; want BOOTSTRAP", access, err)
	}

	setupAdmins(t, svc)

	access, err = svc.AccessState(ctx, adminPrincipal)
	if err != nil || access.State != AccessGranted || access.Admin == nil {
		t.Fatalf("admin: got %v, %v; want GRANTED", access, err)
	}

	access, err = svc.AccessState(ctx, userPrincipal)
	if err != nil || access.State != AccessDenied {
		t.Fatalf("non-admin: got %v, %v; want DENIED", access, err)
	}
}

func TestAccessState_BootstrapDisabled(t *testing.T) {
	svc, _ := setupTestService(t, models.PolicyConfig{})

	access, err := svc.AccessState(context.Background(), superPrincipal)
	if err != nil {
		t.Fatalf("AccessState failed: %v", err)
	}
	if access.State != AccessDenied {
		t.Errorf("State = %s; want DENIED", access.State)
	}

	if _, err := svc.CreateFirstAdmin(context.Background(), superPrincipal, "Super"); !errors.Is(err, ErrBootstrapClosed) {
		t.Errorf("CreateFirstAdmin error = %v; want ErrBootstrapClosed", err)
	}
}

func TestCreateFirstAdmin_OnlyOnce(t *testing.T) {
	svc, dbService := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()

	admin, err := svc.CreateFirstAdmin(ctx, superPrincipal, "")
	if err != nil {
		t.Fatalf("CreateFirstAdmin failed: %v", err)
	}
	if admin.Role != models.RoleSuperAdmin {
		t.Errorf("Role = %s; want SUPER_ADMIN", admin.Role)
	}
	if admin.Name != superPrincipal.Email {
		t.Errorf("Name = %q; want email fallback", admin.Name)
	}

	_, err = svc.CreateFirstAdmin(ctx, userPrincipal, "Intruder")
	if !errors.Is(err, ErrBootstrapClosed) {
		t.Fatalf("second bootstrap error = %v; want ErrBootstrapClosed", err)
	}

	count, _ := dbService.CountAdmins(ctx)
	if count != 1 {
		t.Errorf("admin count = %d; want 1", count)
	}

	actions, _ := dbService.ListAdminActions(ctx, admin.Id, 10)
	if len(actions) != 1 || actions[0].Action != "BOOTSTRAP_ADMIN" {
		t.Errorf("audit log = %+v; want one BOOTSTRAP_ADMIN entry", actions)
	}
}

func TestDeleteAdmin_Permissions(t *testing.T) {
	svc, dbService := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	super, admin := setupAdmins(t, svc)

	tests := []struct {
		name    string
		p       *models.Principal
		target  string
		wantErr error
	}{
		{"anonymous", nil, admin.Id, ErrUnauthorized},
		{"non-admin", userPrincipal, admin.Id, ErrForbidden},
		{"plain admin", adminPrincipal, super.Id, ErrForbidden},
		{"self delete by admin", adminPrincipal, admin.Id, ErrSelfDelete},
		{"self delete by super admin", superPrincipal, super.Id, ErrSelfDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.DeleteAdmin(ctx, tt.p, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeleteAdmin error = %v; want %v", err, tt.wantErr)
			}
		})
	}

	admins, _ := dbService.ListAdmins(ctx)
	if len(admins) != 2 {
		t.Fatalf("admin count = %d after rejected deletes; want 2", len(admins))
	}

	if err := svc.DeleteAdmin(ctx, superPrincipal, admin.Id); err != nil {
		t.Fatalf("DeleteAdmin by super admin failed: %v", err)
	}
	if _, err := dbService.GetAdminById(ctx, admin.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted admin still present: %v", err)
	}
}

func TestUpdateAdmin_CannotDemoteSelf(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	super, admin := setupAdmins(t, svc)

	inactive := false
	if _, err := svc.UpdateAdmin(ctx, superPrincipal, super.Id, UpdateAdminRequest{IsActive: &inactive}); !errors.Is(err, ErrForbidden) {
		t.Errorf("self deactivate error = %v; want ErrForbidden", err)
	}

	role := models.RoleAdmin
	if _, err := svc.UpdateAdmin(ctx, superPrincipal, super.Id, UpdateAdminRequest{Role: &role}); !errors.Is(err, ErrForbidden) {
		t.Errorf("self demote error = %v; want ErrForbidden", err)
	}

	updated, err := svc.UpdateAdmin(ctx, superPrincipal, admin.Id, UpdateAdminRequest{IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateAdmin failed: %v", err)
	}
	if updated.IsActive {
		t.Error("admin still active")
	}

	access, _ := svc.AccessState(ctx, adminPrincipal)
	if access.State != AccessDenied {
		t.Errorf("deactivated admin State = %s; want DENIED", access.State)
	}
}

func TestCreatePool(t *testing.T) {
	svc, dbService := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	if _, err := svc.CreatePool(ctx, userPrincipal, testPoolRequest()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin CreatePool error = %v; want ErrForbidden", err)
	}

	created, err := svc.CreatePool(ctx, superPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if created.Status != models.PoolFunding {
		t.Errorf("Status = %s; want FUNDING", created.Status)
	}
	if created.TotalRaised.String() != "0" {
		t.Errorf("TotalRaised = %s; want 0", created.TotalRaised)
	}
	if created.ProgressPercentage != 0 {
		t.Errorf("ProgressPercentage = %v; want 0", created.ProgressPercentage)
	}
	if created.ExpectedAPY <= 0 || created.ExpectedAPY > 30 {
		t.Errorf("ExpectedAPY = %v; want within (0, 30]", created.ExpectedAPY)
	}
	if created.AssetSymbol != "USDC" {
		t.Errorf("AssetSymbol = %q; want USDC", created.AssetSymbol)
	}

	all, err := svc.GetAllPoolsWithComputed(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("GetAllPoolsWithComputed = %d pools, %v; want 1", len(all), err)
	}

	byAddress, err := svc.GetPoolByAddress(ctx, "0x1111111111111111111111111111111111111111")
	if err != nil || byAddress.Id != created.Id {
		t.Errorf("GetPoolByAddress = %v, %v", byAddress, err)
	}

	actions, _ := dbService.ListAdminActions(ctx, "", 10)
	found := false
	for _, a := range actions {
		if a.Action == "CREATE_POOL" && a.TargetId == created.Id {
			found = true
		}
	}
	if !found {
		t.Error("CREATE_POOL missing from audit log")
	}
}

func TestCreatePool_InvalidInput(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	tests := []struct {
		name   string
		mutate func(*CreatePoolRequest)
	}{
		{"zero target", func(r *CreatePoolRequest) { r.TargetRaise = "0" }},
		{"minimum above target", func(r *CreatePoolRequest) { r.MinimumInvestment = "2000000" }},
		{"maturity before epoch end", func(r *CreatePoolRequest) { r.MaturityDate = r.EpochEndTime.Add(-time.Hour) }},
		{"bad pool address", func(r *CreatePoolRequest) { r.PoolAddress = "0x1234" }},
		{"coupon length mismatch", func(r *CreatePoolRequest) { r.CouponRates = []int64{500} }},
		{"unknown instrument", func(r *CreatePoolRequest) { r.InstrumentType = "EQUITY" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testPoolRequest()
			tt.mutate(&req)
			if _, err := svc.CreatePool(ctx, adminPrincipal, req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("CreatePool error = %v; want ErrInvalidInput", err)
			}
		})
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	created, err := svc.CreatePool(ctx, adminPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, adminPrincipal, created.Id, models.PoolMatured); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("FUNDING -> MATURED error = %v; want ErrIllegalTransition", err)
	}
	if _, err := svc.UpdateStatus(ctx, adminPrincipal, created.Id, "CLOSED"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status error = %v; want ErrInvalidInput", err)
	}

	updated, err := svc.UpdateStatus(ctx, adminPrincipal, created.Id, models.PoolPendingInvestment)
	if err != nil {
		t.Fatalf("FUNDING -> PENDING_INVESTMENT failed: %v", err)
	}
	if updated.Status != models.PoolPendingInvestment {
		t.Errorf("Status = %s; want PENDING_INVESTMENT", updated.Status)
	}

	if _, err := svc.UpdateStatus(ctx, adminPrincipal, created.Id, models.PoolFunding); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("backwards transition error = %v; want ErrIllegalTransition", err)
	}
}

func TestPoolModerationAndDelete(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	created, err := svc.CreatePool(ctx, superPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if created.ApprovalStatus != models.ApprovalApproved {
		t.Errorf("ApprovalStatus = %s; want APPROVED on creation", created.ApprovalStatus)
	}

	rejected, err := svc.RejectPool(ctx, adminPrincipal, created.Id, "terms unclear")
	if err != nil {
		t.Fatalf("RejectPool failed: %v", err)
	}
	if rejected.ApprovalStatus != models.ApprovalRejected || rejected.Status != models.PoolFunding {
		t.Errorf("after reject: approval %s, status %s", rejected.ApprovalStatus, rejected.Status)
	}

	approved, err := svc.ApprovePool(ctx, adminPrincipal, created.Id)
	if err != nil || approved.ApprovalStatus != models.ApprovalApproved {
		t.Fatalf("ApprovePool = %v, %v", approved, err)
	}

	if err := svc.DeletePool(ctx, adminPrincipal, created.Id); !errors.Is(err, ErrForbidden) {
		t.Errorf("ADMIN DeletePool error = %v; want ErrForbidden", err)
	}
	if err := svc.DeletePool(ctx, superPrincipal, created.Id); err != nil {
		t.Fatalf("DeletePool failed: %v", err)
	}
	if _, err := svc.GetPool(ctx, created.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetPool after delete error = %v; want ErrNotFound", err)
	}
}

func TestSubmitKYC_Tiers(t *testing.T) {
	basic := kyc.Submission{FirstName: "Ada", LastName: "Obi", IdType: "passport", IdNumber: "A1234567"}
	full := basic
	full.City = "Lagos"
	full.Address = "1 Marina"
	full.ZipCode = "101001"

	tests := []struct {
		name         string
		preventDown  bool
		first        kyc.Submission
		second       kyc.Submission
		wantLevel    models.KycLevel
		wantStatus   models.KycStatus
		wantLimitInt int64
		wantIdNumber string
		wantCity     string
	}{
		{"basic", false, basic, basic, models.KycLevelBasic, models.KycApproved, 10000, "A1234567", ""},
		{"full", false, basic, full, models.KycLevelEnhanced, models.KycApproved, 50000, "A1234567", "Lagos"},
		{"downgrade allowed", false, full, basic, models.KycLevelBasic, models.KycApproved, 10000, "A1234567", ""},
		{"downgrade prevented", true, full, basic, models.KycLevelEnhanced, models.KycApproved, 50000, "A1234567", "Lagos"},
		{"downgrade prevented keeps details", true, full, kyc.Submission{FirstName: "Ada"}, models.KycLevelEnhanced, models.KycApproved, 50000, "A1234567", "Lagos"},
		{"incomplete", false, kyc.Submission{FirstName: "Ada"}, kyc.Submission{FirstName: "Ada"}, models.KycLevelNone, models.KycInProgress, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := bootstrapPolicy()
			policy.KYCPreventDowngrade = tt.preventDown
			svc, _ := setupTestService(t, policy)
			ctx := context.Background()

			if _, err := svc.SubmitKYC(ctx, userPrincipal, KycSubmitRequest{Submission: tt.first}); err != nil {
				t.Fatalf("first SubmitKYC failed: %v", err)
			}
			user, err := svc.SubmitKYC(ctx, userPrincipal, KycSubmitRequest{Submission: tt.second})
			if err != nil {
				t.Fatalf("second SubmitKYC failed: %v", err)
			}

			if user.KycLevel != tt.wantLevel {
				t.Errorf("KycLevel = %s; want %s", user.KycLevel, tt.wantLevel)
			}
			if user.KycStatus != tt.wantStatus {
				t.Errorf("KycStatus = %s; want %s", user.KycStatus, tt.wantStatus)
			}
			if !user.InvestmentLimit.Equal(decimal.NewFromInt(tt.wantLimitInt)) {
				t.Errorf("InvestmentLimit = %s; want %d", user.InvestmentLimit, tt.wantLimitInt)
			}
			if user.KycSubmittedAt == nil {
				t.Error("KycSubmittedAt not set")
			}
			if user.IdNumber != tt.wantIdNumber || user.City != tt.wantCity {
				t.Errorf("IdNumber/City = %q/%q; want %q/%q", user.IdNumber, user.City, tt.wantIdNumber, tt.wantCity)
			}
			if user.KycLevel == models.KycLevelEnhanced && (user.Address != full.Address || user.ZipCode != full.ZipCode) {
				t.Errorf("Address/ZipCode = %q/%q; want the enhanced details", user.Address, user.ZipCode)
			}
		})
	}
}

func TestSubmitKYC_ByWallet(t *testing.T) {
	svc, dbService := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()

	req := KycSubmitRequest{
		Submission:    kyc.Submission{FirstName: "Ada", LastName: "Obi", IdType: "passport", IdNumber: "A1"},
		WalletAddress: "0x00000000000000000000000000000000000000AA",
	}
	user, err := svc.SubmitKYC(ctx, nil, req)
	if err != nil {
		t.Fatalf("SubmitKYC failed: %v", err)
	}
	if user.WalletAddress != testWallet {
		t.Errorf("WalletAddress = %q; want %q", user.WalletAddress, testWallet)
	}

	again, err := svc.SubmitKYC(ctx, nil, req)
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if again.Id != user.Id {
		t.Error("resubmission by wallet created a second user")
	}

	if _, err := dbService.GetUserByWallet(ctx, testWallet); err != nil {
		t.Errorf("GetUserByWallet failed: %v", err)
	}

	if _, err := svc.SubmitKYC(ctx, nil, KycSubmitRequest{Submission: req.Submission}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("no subject error = %v; want ErrUnauthorized", err)
	}
}

func TestDecideKYC(t *testing.T) {
	svc, dbService := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	user, err := svc.EnsureUser(ctx, userPrincipal)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}

	if _, err := svc.DecideKYC(ctx, userPrincipal, user.Id, KycDecisionRequest{Decision: KycDecisionApprove}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self approval error = %v; want ErrForbidden", err)
	}

	approved, err := svc.DecideKYC(ctx, adminPrincipal, user.Id, KycDecisionRequest{Decision: KycDecisionApprove})
	if err != nil {
		t.Fatalf("DecideKYC approve failed: %v", err)
	}
	if approved.KycStatus != models.KycApproved || approved.KycLevel != models.KycLevelBasic {
		t.Errorf("approved = %s/%s; want APPROVED/BASIC", approved.KycStatus, approved.KycLevel)
	}
	if !approved.InvestmentLimit.Equal(kyc.BasicLimit) {
		t.Errorf("InvestmentLimit = %s; want %s", approved.InvestmentLimit, kyc.BasicLimit)
	}

	rejected, err := svc.DecideKYC(ctx, adminPrincipal, user.Id, KycDecisionRequest{Decision: KycDecisionReject, Reason: "document expired"})
	if err != nil {
		t.Fatalf("DecideKYC reject failed: %v", err)
	}
	if rejected.KycStatus != models.KycRejected || rejected.RejectionReason != "document expired" {
		t.Errorf("rejected = %s %q", rejected.KycStatus, rejected.RejectionReason)
	}

	notifications, _ := dbService.ListNotifications(ctx, user.Id, 10)
	if len(notifications) != 2 {
		t.Errorf("notifications = %d; want 2", len(notifications))
	}
}

func TestRecordDeposit(t *testing.T) {
	svc, dbService := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	created, err := svc.CreatePool(ctx, adminPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	req := RecordDepositRequest{PoolId: created.Id, TxHash: testTxHash, Amount: "2500"}

	if _, err := svc.RecordDeposit(ctx, userPrincipal, req); !errors.Is(err, ErrInvalidInput) || !errors.Is(err, listener.ErrWalletRequired) {
		t.Fatalf("deposit without wallet error = %v; want ErrInvalidInput wrapping ErrWalletRequired", err)
	}

	if _, err := svc.LinkWallet(ctx, userPrincipal, testWallet); err != nil {
		t.Fatalf("LinkWallet failed: %v", err)
	}

	result, err := svc.RecordDeposit(ctx, userPrincipal, req)
	if err != nil {
		t.Fatalf("RecordDeposit failed: %v", err)
	}
	if !result.Success || result.TransactionId == "" || !result.FirstDeposit {
		t.Errorf("unexpected result %+v", result)
	}

	if _, err := svc.RecordDeposit(ctx, userPrincipal, req); !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Errorf("duplicate error = %v; want ErrDuplicateTransaction", err)
	}

	history, err := svc.GetUserTransactions(ctx, userPrincipal, 0, 0)
	if err != nil || len(history) != 1 {
		t.Fatalf("GetUserTransactions = %d, %v; want 1", len(history), err)
	}
	if history[0].Type != models.TxDeposit || !history[0].Amount.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("history[0] = %+v", history[0])
	}

	poolHistory, err := svc.GetPoolTransactions(ctx, created.Id, 10, 0)
	if err != nil || len(poolHistory) != 1 {
		t.Errorf("GetPoolTransactions = %d, %v; want 1", len(poolHistory), err)
	}

	notifications, _ := svc.ListNotifications(ctx, userPrincipal, 0)
	if len(notifications) != 1 || notifications[0].Type != "DEPOSIT" {
		t.Errorf("notifications = %+v; want one DEPOSIT", notifications)
	}

	updated, _ := dbService.GetPool(ctx, created.Id)
	if !updated.TotalRaised.Equal(decimal.NewFromInt(2500)) || updated.TotalInvestors != 1 {
		t.Errorf("pool counters = %s/%d; want 2500/1", updated.TotalRaised, updated.TotalInvestors)
	}
}

func TestRecordDeposit_Paused(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	created, err := svc.CreatePool(ctx, adminPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	if _, err := svc.SetSetting(ctx, adminPrincipal, settingDepositsPaused, SetSettingRequest{Value: "true"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("plain admin SetSetting error = %v; want ErrForbidden", err)
	}
	if _, err := svc.SetSetting(ctx, superPrincipal, settingDepositsPaused, SetSettingRequest{Value: "true"}); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	req := RecordDepositRequest{PoolId: created.Id, TxHash: testTxHash, Amount: "2500"}
	if _, err := svc.RecordDeposit(ctx, userPrincipal, req); !errors.Is(err, ErrDepositsPaused) {
		t.Errorf("RecordDeposit error = %v; want ErrDepositsPaused", err)
	}
}

func TestRecordDeposit_InvalidRequest(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()

	tests := []struct {
		name string
		req  RecordDepositRequest
	}{
		{"missing pool", RecordDepositRequest{TxHash: testTxHash, Amount: "1"}},
		{"non-numeric amount", RecordDepositRequest{PoolId: "p", TxHash: testTxHash, Amount: "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RecordDeposit(ctx, userPrincipal, tt.req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v; want ErrInvalidInput", err)
			}
		})
	}
}

func TestManualSyncAndCloseEpoch(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	created, err := svc.CreatePool(ctx, adminPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	synced, err := svc.ManualSync(ctx, adminPrincipal, created.Id)
	if err != nil {
		t.Fatalf("ManualSync failed: %v", err)
	}
	if !synced.TotalRaised.Equal(decimal.NewFromInt(4200)) || synced.TotalInvestors != 3 {
		t.Errorf("synced = %+v", synced)
	}

	// Epoch ends in 30 days
	if _, err := svc.CloseEpoch(ctx, adminPrincipal, created.Id, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("early CloseEpoch error = %v; want ErrInvalidInput", err)
	}

	closed, err := svc.CloseEpoch(ctx, adminPrincipal, created.Id, true)
	if err != nil {
		t.Fatalf("forced CloseEpoch failed: %v", err)
	}
	if closed.TxHash != "0xc105e" || !closed.Forced {
		t.Errorf("closed = %+v", closed)
	}
}

func TestSyncWithOnchain_Overwrites(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	created, err := svc.CreatePool(ctx, adminPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	// Chain-reported status bypasses the transition table
	matured := models.PoolMatured
	updated, err := svc.SyncWithOnchain(ctx, adminPrincipal, created.Id, SyncParams{
		TotalRaised:    "500000",
		TotalInvestors: 12,
		Status:         &matured,
	})
	if err != nil {
		t.Fatalf("SyncWithOnchain failed: %v", err)
	}
	if updated.Status != models.PoolMatured || updated.ProgressPercentage != 50 {
		t.Errorf("updated = %s %v%%; want MATURED 50%%", updated.Status, updated.ProgressPercentage)
	}
	if updated.LastSyncedAt == nil {
		t.Error("LastSyncedAt not set")
	}
}

func TestPlatformMetrics(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()
	setupAdmins(t, svc)

	empty, err := svc.PlatformMetrics(ctx)
	if err != nil {
		t.Fatalf("PlatformMetrics failed: %v", err)
	}
	if empty.PoolCount != 0 || !empty.TotalValueLocked.IsZero() || empty.AverageAPY != 0 {
		t.Errorf("empty metrics = %+v", empty)
	}

	created, err := svc.CreatePool(ctx, adminPrincipal, testPoolRequest())
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if _, err := svc.SyncWithOnchain(ctx, adminPrincipal, created.Id, SyncParams{TotalRaised: "1250.5", TotalInvestors: 4}); err != nil {
		t.Fatalf("SyncWithOnchain failed: %v", err)
	}

	m, err := svc.PlatformMetrics(ctx)
	if err != nil {
		t.Fatalf("PlatformMetrics failed: %v", err)
	}
	if m.PoolCount != 1 || m.TotalInvestors != 4 {
		t.Errorf("PoolCount/TotalInvestors = %d/%d; want 1/4", m.PoolCount, m.TotalInvestors)
	}
	if !m.TotalValueLocked.Equal(decimal.RequireFromString("1250.5")) {
		t.Errorf("TotalValueLocked = %s; want 1250.5", m.TotalValueLocked)
	}
	if m.PoolsByStatus[models.PoolFunding] != 1 {
		t.Errorf("PoolsByStatus = %v", m.PoolsByStatus)
	}
	if m.AverageAPY <= 0 {
		t.Errorf("AverageAPY = %v; want positive", m.AverageAPY)
	}
}

func TestPlatformMetrics_UnreachableCacheFallsBack(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	svc.cache = newMetricsCache(client, time.Minute)
	t.Cleanup(func() { _ = client.Close() })

	m, err := svc.PlatformMetrics(context.Background())
	if err != nil {
		t.Fatalf("PlatformMetrics failed with cache down: %v", err)
	}
	if m.PoolCount != 0 {
		t.Errorf("PoolCount = %d; want 0", m.PoolCount)
	}

	if err := svc.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck passed with cache down")
	}
}

func TestEnsureUserAndLinkWallet(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())
	ctx := context.Background()

	if _, err := svc.EnsureUser(ctx, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("EnsureUser(nil) error = %v; want ErrUnauthorized", err)
	}

	first, err := svc.EnsureUser(ctx, userPrincipal)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	second, err := svc.EnsureUser(ctx, userPrincipal)
	if err != nil || second.Id != first.Id {
		t.Fatalf("EnsureUser not idempotent: %v, %v", second, err)
	}

	if _, err := svc.LinkWallet(ctx, userPrincipal, "not-a-wallet"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad wallet error = %v; want ErrInvalidInput", err)
	}
	if _, err := svc.LinkWallet(ctx, userPrincipal, testWallet); err != nil {
		t.Fatalf("LinkWallet failed: %v", err)
	}
	if _, err := svc.LinkWallet(ctx, userPrincipal, "0x00000000000000000000000000000000000000bb"); !errors.Is(err, store.ErrWalletAlreadySet) {
		t.Errorf("relink error = %v; want ErrWalletAlreadySet", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, defaultPageSize},
		{-5, defaultPageSize},
		{7, 7},
		{maxPageSize + 1, maxPageSize},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatValidationError(t *testing.T) {
	svc, _ := setupTestService(t, bootstrapPolicy())

	err := svc.validate.Struct(CreateAdminRequest{Email: "nope", Role: "OWNER"})
	msgs := FormatValidationError(err)
	if len(msgs) != 4 {
		t.Fatalf("messages = %v; want 4", msgs)
	}
	if msgs[0] != "clerk_id is required" {
		t.Errorf("first message = %q; want json field name", msgs[0])
	}
}

package store

import (
	"context"
	"errors"
	"time"

	"piron-pools-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrWalletAlreadySet       = errors.New("user already has a primary wallet")
	ErrAdminsExist            = errors.New("admins already exist")
)

// CreatePoolParams contains the parameters for inserting a pool.
// Status, approval status and counters are set by the store.
type CreatePoolParams struct {
	Name              string
	Description       string
	InstrumentType    models.InstrumentType
	AssetSymbol       string
	AssetAddress      string
	PoolAddress       string
	ManagerAddress    string
	EscrowAddress     string
	SpvAddress        string
	TargetRaise       decimal.Decimal
	MinimumInvestment decimal.Decimal
	DiscountRate      int64
	CouponRates       []int64
	CouponDates       []int64
	EpochEndTime      time.Time
	MaturityDate      time.Time
	RiskLevel         string
	CreatedBy         string
}

// SyncPoolParams overwrites the chain-mirrored fields of a pool. A nil Status
// leaves the stored status untouched.
type SyncPoolParams struct {
	TotalRaised    decimal.Decimal
	TotalInvestors int64
	ActualInvested decimal.Decimal
	Status         *models.PoolStatus
}

// RecordDepositParams describes a confirmed deposit to persist.
type RecordDepositParams struct {
	UserId      string
	PoolId      string
	Amount      decimal.Decimal
	Shares      decimal.Decimal
	TxHash      string
	BlockNumber uint64
}

// KycUpdate is the full set of KYC fields written on a submission or decision.
type KycUpdate struct {
	FirstName       string
	LastName        string
	IdType          string
	IdNumber        string
	DateOfBirth     string
	Country         string
	City            string
	Address         string
	ZipCode         string
	Status          models.KycStatus
	Level           models.KycLevel
	InvestmentLimit decimal.Decimal
	RejectionReason string
	SubmittedAt     *time.Time
	ReviewedAt      *time.Time
}

// UpdateAdminParams patches an admin. Nil fields are left unchanged.
type UpdateAdminParams struct {
	Name     *string
	Role     *models.AdminRole
	IsActive *bool
}

// PoolStore defines the contract that every document store backend must satisfy.
type PoolStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, clerkId, email, walletAddress string) (*models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByClerkId(ctx context.Context, clerkId string) (*models.User, error)
	GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	SetUserWallet(ctx context.Context, userId, walletAddress string) (*models.User, error)
	UpdateUserKyc(ctx context.Context, userId string, update KycUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, userId string) error

	// --- Admins ---
	CountAdmins(ctx context.Context) (int, error)
	CreateFirstAdmin(ctx context.Context, clerkId, email, name string) (*models.Admin, error)
	CreateAdmin(ctx context.Context, clerkId, email, name string, role models.AdminRole, createdBy string) (*models.Admin, error)
	GetAdminById(ctx context.Context, adminId string) (*models.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetAdminByClerkId(ctx context.Context, clerkId string) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	UpdateAdmin(ctx context.Context, adminId string, params UpdateAdminParams) (*models.Admin, error)
	DeleteAdmin(ctx context.Context, adminId string) error

	// --- Pools ---
	CreatePool(ctx context.Context, params CreatePoolParams) (*models.Pool, error)
	GetPool(ctx context.Context, poolId string) (*models.Pool, error)
	GetPoolByAddress(ctx context.Context, poolAddress string) (*models.Pool, error)
	ListPools(ctx context.Context) ([]models.Pool, error)
	ListPoolsByStatus(ctx context.Context, status models.PoolStatus) ([]models.Pool, error)
	UpdatePoolStatus(ctx context.Context, poolId string, status models.PoolStatus) (*models.Pool, error)
	UpdatePoolApproval(ctx context.Context, poolId string, approval models.ApprovalStatus) (*models.Pool, error)
	SyncPool(ctx context.Context, poolId string, params SyncPoolParams) (*models.Pool, error)
	DeletePool(ctx context.Context, poolId string) error

	// --- Transactions ---
	RecordDeposit(ctx context.Context, params RecordDepositParams) (*models.Transaction, bool, error)
	GetTransactionByHash(ctx context.Context, txHash string) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error)
	GetPoolTransactions(ctx context.Context, poolId string, limit, offset int) ([]models.Transaction, error)

	// --- Audit ---
	LogAdminAction(ctx context.Context, adminId, action, targetId string, details map[string]any) error
	ListAdminActions(ctx context.Context, adminId string, limit int) ([]models.AdminAction, error)

	// --- Notifications ---
	CreateNotification(ctx context.Context, userId, notificationType, title, message string) (*models.Notification, error)
	ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userId, notificationId string) error
	MarkAllNotificationsRead(ctx context.Context, userId string) (int64, error)

	// --- Settings ---
	GetSetting(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSettings(ctx context.Context) ([]models.SystemSetting, error)
	SetSetting(ctx context.Context, key, value, description, updatedBy string) (*models.SystemSetting, error)

	// --- Lifecycle ---
	Close()
}

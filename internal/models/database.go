package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type KycStatus string

const (
	KycNotStarted KycStatus = "NOT_STARTED"
	KycInProgress KycStatus = "IN_PROGRESS"
	KycApproved   KycStatus = "APPROVED"
	KycRejected   KycStatus = "REJECTED"
	KycExpired    KycStatus = "EXPIRED"
)

type KycLevel string

const (
	KycLevelNone     KycLevel = "NONE"
	KycLevelBasic    KycLevel = "BASIC"
	KycLevelEnhanced KycLevel = "ENHANCED"
)

type AdminRole string

const (
	RoleAdmin      AdminRole = "ADMIN"
	RoleSuperAdmin AdminRole = "SUPER_ADMIN"
)

type InstrumentType string

const (
	InstrumentDiscounted      InstrumentType = "DISCOUNTED"
	InstrumentInterestBearing InstrumentType = "INTEREST_BEARING"
)

type PoolStatus string

const (
	PoolFunding           PoolStatus = "FUNDING"
	PoolPendingInvestment PoolStatus = "PENDING_INVESTMENT"
	PoolInvested          PoolStatus = "INVESTED"
	PoolMatured           PoolStatus = "MATURED"
	PoolEmergency         PoolStatus = "EMERGENCY"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type TransactionType string

const (
	TxDeposit            TransactionType = "DEPOSIT"
	TxWithdraw           TransactionType = "WITHDRAW"
	TxRedeem             TransactionType = "REDEEM"
	TxCouponPayment      TransactionType = "COUPON_PAYMENT"
	TxMaturityRedemption TransactionType = "MATURITY_REDEMPTION"
	TxEmergencyWithdraw  TransactionType = "EMERGENCY_WITHDRAW"
)

const TxStatusConfirmed = "CONFIRMED"

// User represents an investor identity
type User struct {
	Id              string          `db:"id" json:"id"`
	ClerkId         string          `db:"clerk_id" json:"clerk_id,omitempty"`
	Email           string          `db:"email" json:"email,omitempty"`
	WalletAddress   string          `db:"wallet_address" json:"wallet_address,omitempty"`
	FirstName       string          `db:"first_name" json:"first_name,omitempty"`
	LastName        string          `db:"last_name" json:"last_name,omitempty"`
	IdType          string          `db:"id_type" json:"id_type,omitempty"`
	IdNumber        string          `db:"id_number" json:"id_number,omitempty"`
	DateOfBirth     string          `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Country         string          `db:"country" json:"country,omitempty"`
	City            string          `db:"city" json:"city,omitempty"`
	Address         string          `db:"address" json:"address,omitempty"`
	ZipCode         string          `db:"zip_code" json:"zip_code,omitempty"`
	KycStatus       KycStatus       `db:"kyc_status" json:"kyc_status"`
	KycLevel        KycLevel        `db:"kyc_level" json:"kyc_level"`
	InvestmentLimit decimal.Decimal `db:"investment_limit" json:"investment_limit"`
	RejectionReason string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	KycSubmittedAt  *time.Time      `db:"kyc_submitted_at" json:"kyc_submitted_at,omitempty"`
	KycReviewedAt   *time.Time      `db:"kyc_reviewed_at" json:"kyc_reviewed_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Admin represents an operator identity
type Admin struct {
	Id        string    `db:"id" json:"id"`
	ClerkId   string    `db:"clerk_id" json:"clerk_id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      AdminRole `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedBy string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Pool represents an investment vehicle and its on-chain contract triple
type Pool struct {
	Id                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Description       string          `db:"description" json:"description,omitempty"`
	InstrumentType    InstrumentType  `db:"instrument_type" json:"instrument_type"`
	AssetSymbol       string          `db:"asset_symbol" json:"asset_symbol"`
	AssetAddress      string          `db:"asset_address" json:"asset_address,omitempty"`
	PoolAddress       string          `db:"pool_address" json:"pool_address,omitempty"`
	ManagerAddress    string          `db:"manager_address" json:"manager_address,omitempty"`
	EscrowAddress     string          `db:"escrow_address" json:"escrow_address,omitempty"`
	SpvAddress        string          `db:"spv_address" json:"spv_address,omitempty"`
	TargetRaise       decimal.Decimal `db:"target_raise" json:"target_raise"`
	TotalRaised       decimal.Decimal `db:"total_raised" json:"total_raised"`
	ActualInvested    decimal.Decimal `db:"actual_invested" json:"actual_invested"`
	TotalInvestors    int64           `db:"total_investors" json:"total_investors"`
	MinimumInvestment decimal.Decimal `db:"minimum_investment" json:"minimum_investment"`
	DiscountRate      int64           `db:"discount_rate" json:"discount_rate"` // basis points
	CouponRates       []int64         `db:"coupon_rates" json:"coupon_rates,omitempty"`
	CouponDates       []int64         `db:"coupon_dates" json:"coupon_dates,omitempty"`
	EpochEndTime      time.Time       `db:"epoch_end_time" json:"epoch_end_time"`
	MaturityDate      time.Time       `db:"maturity_date" json:"maturity_date"`
	Status            PoolStatus      `db:"status" json:"status"`
	ApprovalStatus    ApprovalStatus  `db:"approval_status" json:"approval_status"`
	RiskLevel         string          `db:"risk_level" json:"risk_level,omitempty"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	LastSyncedAt      *time.Time      `db:"last_synced_at" json:"last_synced_at,omitempty"`
	Version           int64           `db:"version" json:"version"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction represents an immutable ledger row for a confirmed chain transaction
type Transaction struct {
	Id          string          `db:"id" json:"id"`
	UserId      string          `db:"user_id" json:"user_id"`
	PoolId      string          `db:"pool_id" json:"pool_id"`
	Type        TransactionType `db:"type" json:"type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Shares      decimal.Decimal `db:"shares" json:"shares"`
	TxHash      string          `db:"tx_hash" json:"tx_hash"`
	BlockNumber uint64          `db:"block_number" json:"block_number"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// AdminAction represents an append-only audit entry
type AdminAction struct {
	Id        string    `db:"id" json:"id"`
	AdminId   string    `db:"admin_id" json:"admin_id"`
	Action    string    `db:"action" json:"action"`
	TargetId  string    `db:"target_id" json:"target_id,omitempty"`
	Details   string    `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Notification represents a message addressed to a user
type Notification struct {
	Id        string    `db:"id" json:"id"`
	UserId    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SystemSetting represents a key/value platform setting
type SystemSetting struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description string    `db:"description" json:"description,omitempty"`
	UpdatedBy   string    `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

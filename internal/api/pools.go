/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"piron-pools-go/internal/models"
	"piron-pools-go/internal/pool"
	"piron-pools-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePoolRequest is the input of CreatePool
type CreatePoolRequest struct {
	Name              string                `json:"name" validate:"required,max=200"`
	Description       string                `json:"description" validate:"max=2000"`
	InstrumentType    models.InstrumentType `json:"instrument_type" validate:"required,oneof=DISCOUNTED INTEREST_BEARING"`
	AssetSymbol       string                `json:"asset_symbol" validate:"required,max=16"`
	AssetAddress      string                `json:"asset_address" validate:"omitempty,eth_addr"`
	PoolAddress       string                `json:"pool_address" validate:"omitempty,eth_addr"`
	ManagerAddress    string                `json:"manager_address" validate:"omitempty,eth_addr"`
	EscrowAddress     string                `json:"escrow_address" validate:"omitempty,eth_addr"`
	SpvAddress        string                `json:"spv_address" validate:"omitempty,eth_addr"`
	TargetRaise       string                `json:"target_raise" validate:"required,numeric"`
	MinimumInvestment string                `json:"minimum_investment" validate:"omitempty,numeric"`
	DiscountRate      int64                 `json:"discount_rate" validate:"gte=0,lte=10000"`
	CouponRates       []int64               `json:"coupon_rates" validate:"dive,gte=0,lte=10000"`
	CouponDates       []int64               `json:"coupon_dates" validate:"dive,gt=0"`
	EpochEndTime      time.Time             `json:"epoch_end_time" validate:"required"`
	MaturityDate      time.Time             `json:"maturity_date" validate:"required,gtfield=EpochEndTime"`
	RiskLevel         string                `json:"risk_level" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

func (req CreatePoolRequest) toParams(createdBy string) (store.CreatePoolParams, error) {
	target, err := decimal.NewFromString(req.TargetRaise)
	if err != nil || !target.IsPositive() {
		return store.CreatePoolParams{}, invalidInput("target_raise must be a positive amount")
	}

	minimum := decimal.Zero
	if req.MinimumInvestment != "" {
		minimum, err = decimal.NewFromString(req.MinimumInvestment)
		if err != nil || minimum.IsNegative() {
			return store.CreatePoolParams{}, invalidInput("minimum_investment must not be negative")
		}
	}
	if minimum.GreaterThan(target) {
		return store.CreatePoolParams{}, invalidInput("minimum_investment exceeds target_raise")
	}
	if len(req.CouponRates) != len(req.CouponDates) {
		return store.CreatePoolParams{}, invalidInput("coupon_rates and coupon_dates must have the same length")
	}

	return store.CreatePoolParams{
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		InstrumentType:    req.InstrumentType,
		AssetSymbol:       strings.ToUpper(req.AssetSymbol),
		AssetAddress:      req.AssetAddress,
		PoolAddress:       req.PoolAddress,
		ManagerAddress:    req.ManagerAddress,
		EscrowAddress:     req.EscrowAddress,
		SpvAddress:        req.SpvAddress,
		TargetRaise:       target,
		MinimumInvestment: minimum,
		DiscountRate:      req.DiscountRate,
		CouponRates:       req.CouponRates,
		CouponDates:       req.CouponDates,
		EpochEndTime:      req.EpochEndTime,
		MaturityDate:      req.MaturityDate,
		RiskLevel:         req.RiskLevel,
		CreatedBy:         createdBy,
	}, nil
}

// CreatePool inserts a pool in FUNDING with zeroed counters.
func (s *Service) CreatePool(ctx context.Context, p *models.Principal, req CreatePoolRequest) (*models.PoolWithComputed, error) {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	params, err := req.toParams(actor.Id)
	if err != nil {
		return nil, err
	}

	created, err := s.dbService.CreatePool(ctx, params)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "CREATE_POOL", created.Id, map[string]any{
		"name":            created.Name,
		"instrument_type": created.InstrumentType,
		"target_raise":    created.TargetRaise.String(),
	})
	s.invalidateMetrics(ctx)

	decorated := pool.Decorate(*created)
	return &decorated, nil
}

// GetAllPoolsWithComputed returns every pool with progress and expected APY.
func (s *Service) GetAllPoolsWithComputed(ctx context.Context) ([]models.PoolWithComputed, error) {
	pools, err := s.dbService.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	return pool.DecorateAll(pools), nil
}

func (s *Service) GetPool(ctx context.Context, poolId string) (*models.PoolWithComputed, error) {
	p, err := s.dbService.GetPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	decorated := pool.Decorate(*p)
	return &decorated, nil
}

func (s *Service) GetPoolByAddress(ctx context.Context, poolAddress string) (*models.PoolWithComputed, error) {
	p, err := s.dbService.GetPoolByAddress(ctx, poolAddress)
	if err != nil {
		return nil, err
	}
	decorated := pool.Decorate(*p)
	return &decorated, nil
}

func (s *Service) ListPoolsByStatus(ctx context.Context, status models.PoolStatus) ([]models.PoolWithComputed, error) {
	if !pool.IsValidStatus(status) {
		return nil, invalidInput("unknown pool status %q", status)
	}
	pools, err := s.dbService.ListPoolsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return pool.DecorateAll(pools), nil
}

// UpdateStatus moves a pool along the lifecycle. Only the edges allowed by
// pool.CanTransition are accepted.
func (s *Service) UpdateStatus(ctx context.Context, p *models.Principal, poolId string, status models.PoolStatus) (*models.PoolWithComputed, error) {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if !pool.IsValidStatus(status) {
		return nil, invalidInput("unknown pool status %q", status)
	}

	current, err := s.dbService.GetPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	if !pool.CanTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current.Status, status)
	}

	updated, err := s.dbService.UpdatePoolStatus(ctx, poolId, status)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "UPDATE_POOL_STATUS", poolId, map[string]any{
		"from": current.Status,
		"to":   status,
	})
	s.invalidateMetrics(ctx)

	decorated := pool.Decorate(*updated)
	return &decorated, nil
}

func (s *Service) ApprovePool(ctx context.Context, p *models.Principal, poolId string) (*models.PoolWithComputed, error) {
	return s.setApproval(ctx, p, poolId, models.ApprovalApproved, "APPROVE_POOL", "")
}

func (s *Service) RejectPool(ctx context.Context, p *models.Principal, poolId, reason string) (*models.PoolWithComputed, error) {
	return s.setApproval(ctx, p, poolId, models.ApprovalRejected, "REJECT_POOL", reason)
}

func (s *Service) setApproval(ctx context.Context, p *models.Principal, poolId string, approval models.ApprovalStatus, action, reason string) (*models.PoolWithComputed, error) {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}

	updated, err := s.dbService.UpdatePoolApproval(ctx, poolId, approval)
	if err != nil {
		return nil, err
	}

	details := map[string]any{"approval_status": approval}
	if reason != "" {
		details["reason"] = reason
	}
	s.audit(ctx, actor, action, poolId, details)

	decorated := pool.Decorate(*updated)
	return &decorated, nil
}

func (s *Service) DeletePool(ctx context.Context, p *models.Principal, poolId string) error {
	actor, err := s.requireSuperAdmin(ctx, p)
	if err != nil {
		return err
	}

	existing, err := s.dbService.GetPool(ctx, poolId)
	if err != nil {
		return err
	}
	if err := s.dbService.DeletePool(ctx, poolId); err != nil {
		return err
	}

	s.audit(ctx, actor, "DELETE_POOL", poolId, map[string]any{"name": existing.Name, "status": existing.Status})
	s.invalidateMetrics(ctx)
	return nil
}

// SyncParams is the input of SyncWithOnchain
type SyncParams struct {
	TotalRaised    string             `json:"total_raised" validate:"required,numeric"`
	TotalInvestors int64              `json:"total_investors" validate:"gte=0"`
	ActualInvested string             `json:"actual_invested" validate:"omitempty,numeric"`
	Status         *models.PoolStatus `json:"status"`
}

// SyncWithOnchain overwrites the chain-mirrored counters with caller-supplied
// values. Last writer wins; status is taken as-is.
func (s *Service) SyncWithOnchain(ctx context.Context, p *models.Principal, poolId string, params SyncParams) (*models.PoolWithComputed, error) {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.validateStruct(params); err != nil {
		return nil, err
	}
	if params.Status != nil && !pool.IsValidStatus(*params.Status) {
		return nil, invalidInput("unknown pool status %q", *params.Status)
	}

	raised, err := decimal.NewFromString(params.TotalRaised)
	if err != nil {
		return nil, invalidInput("total_raised: %v", err)
	}
	invested := decimal.Zero
	if params.ActualInvested != "" {
		if invested, err = decimal.NewFromString(params.ActualInvested); err != nil {
			return nil, invalidInput("actual_invested: %v", err)
		}
	}

	updated, err := s.dbService.SyncPool(ctx, poolId, store.SyncPoolParams{
		TotalRaised:    raised,
		TotalInvestors: params.TotalInvestors,
		ActualInvested: invested,
		Status:         params.Status,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "SYNC_POOL", poolId, map[string]any{
		"total_raised":    raised.String(),
		"total_investors": params.TotalInvestors,
		"source":          "manual",
	})
	s.invalidateMetrics(ctx)

	decorated := pool.Decorate(*updated)
	return &decorated, nil
}

// ManualSync reads the manager contract and mirrors it into the pool record.
func (s *Service) ManualSync(ctx context.Context, p *models.Principal, poolId string) (*models.SyncResult, error) {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.requireReconciler(); err != nil {
		return nil, err
	}

	result, err := s.reconciler.SyncPool(ctx, poolId)
	if err != nil {
		zap.L().Error("Manual sync failed", zap.String("pool_id", poolId), zap.Error(err))
		return nil, translateReconcileErr(err)
	}

	s.audit(ctx, actor, "SYNC_POOL", poolId, map[string]any{
		"status":          result.Status,
		"total_raised":    result.TotalRaised.String(),
		"total_investors": result.TotalInvestors,
		"source":          "chain",
	})
	s.invalidateMetrics(ctx)
	return result, nil
}

// CloseEpoch ends the funding period on chain. See listener.Reconciler.CloseEpoch.
func (s *Service) CloseEpoch(ctx context.Context, p *models.Principal, poolId string, force bool) (*models.EpochCloseResult, error) {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.requireReconciler(); err != nil {
		return nil, err
	}

	result, err := s.reconciler.CloseEpoch(ctx, poolId, force)
	if err != nil {
		return nil, translateReconcileErr(err)
	}

	s.audit(ctx, actor, "CLOSE_EPOCH", poolId, map[string]any{
		"tx_hash": result.TxHash,
		"block":   result.BlockNumber,
		"forced":  force,
	})
	s.invalidateMetrics(ctx)
	return result, nil
}

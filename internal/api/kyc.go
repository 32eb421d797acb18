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
	"errors"
	"fmt"
	"strings"
	"time"

	"piron-pools-go/internal/kyc"
	"piron-pools-go/internal/models"
	"piron-pools-go/internal/store"

	"go.uber.org/zap"
)

// KYC decisions an admin can take.
const (
	KycDecisionApprove = "APPROVE"
	KycDecisionReject  = "REJECT"
)

// KycSubmitRequest carries the identity fields and, for users without a session
// subject, the wallet used to find or create the user.
type KycSubmitRequest struct {
	kyc.Submission
	WalletAddress string `json:"wallet_address" validate:"omitempty,eth_addr"`
}

// KycDecisionRequest is the input of DecideKYC
type KycDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Reason   string `json:"reason" validate:"max=500"`
}

// SubmitKYC stores the submitted fields and assigns the tier they earn. A
// resubmission with fewer fields lowers the tier unless downgrades are disabled;
// when the previous tier is kept, blank fields keep their previous values.
func (s *Service) SubmitKYC(ctx context.Context, p *models.Principal, req KycSubmitRequest) (*models.User, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.kycSubject(ctx, p, req.WalletAddress)
	if err != nil {
		return nil, err
	}

	evaluated := kyc.Evaluate(req.Submission)
	result := evaluated
	if s.policy.KYCPreventDowngrade {
		result = kyc.KeepHigher(user.KycStatus, user.KycLevel, user.InvestmentLimit, evaluated)
	}

	now := time.Now().UTC()
	sub := req.Submission
	update := store.KycUpdate{
		FirstName:       strings.TrimSpace(sub.FirstName),
		LastName:        strings.TrimSpace(sub.LastName),
		IdType:          sub.IdType,
		IdNumber:        strings.TrimSpace(sub.IdNumber),
		DateOfBirth:     sub.DateOfBirth,
		Country:         strings.TrimSpace(sub.Country),
		City:            strings.TrimSpace(sub.City),
		Address:         strings.TrimSpace(sub.Address),
		ZipCode:         strings.TrimSpace(sub.ZipCode),
		Status:          result.Status,
		Level:           result.Level,
		InvestmentLimit: result.Limit,
		SubmittedAt:     &now,
	}
	if result.Level != evaluated.Level {
		keepPreviousFields(&update, user)
	}

	updated, err := s.dbService.UpdateUserKyc(ctx, user.Id, update)
	if err != nil {
		return nil, err
	}

	zap.L().Info("KYC submitted",
		zap.String("user_id", user.Id),
		zap.String("previous_level", string(user.KycLevel)),
		zap.String("level", string(result.Level)),
		zap.String("status", string(result.Status)))

	return updated, nil
}

// keepPreviousFields fills blank fields of update from the stored record so a
// kept tier stays backed by the details that earned it.
func keepPreviousFields(update *store.KycUpdate, prev *models.User) {
	fields := []struct {
		dst *string
		old string
	}{
		{&update.FirstName, prev.FirstName},
		{&update.LastName, prev.LastName},
		{&update.IdType, prev.IdType},
		{&update.IdNumber, prev.IdNumber},
		{&update.DateOfBirth, prev.DateOfBirth},
		{&update.Country, prev.Country},
		{&update.City, prev.City},
		{&update.Address, prev.Address},
		{&update.ZipCode, prev.ZipCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.dst) == "" {
			*f.dst = f.old
		}
	}
}

// kycSubject resolves the submitting user by session subject, else by wallet,
// creating the record when neither exists yet.
func (s *Service) kycSubject(ctx context.Context, p *models.Principal, wallet string) (*models.User, error) {
	if p != nil && p.ClerkId != "" {
		user, err := s.EnsureUser(ctx, p)
		if err != nil {
			return nil, err
		}
		if wallet != "" && user.WalletAddress == "" {
			return s.dbService.SetUserWallet(ctx, user.Id, wallet)
		}
		return user, nil
	}

	if wallet == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.dbService.GetUserByWallet(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.dbService.CreateUser(ctx, "", "", wallet)
}

// DecideKYC records an admin's manual KYC decision and notifies the user.
func (s *Service) DecideKYC(ctx context.Context, p *models.Principal, userId string, req KycDecisionRequest) (*models.User, error) {
	actor, err := s.requireAdmin(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.dbService.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	update := kycUpdateFrom(user)
	now := time.Now().UTC()
	update.ReviewedAt = &now

	var title, message string
	switch req.Decision {
	case KycDecisionApprove:
		update.Status = models.KycApproved
		update.RejectionReason = ""
		if update.Level == models.KycLevelNone {
			update.Level = models.KycLevelBasic
		}
		update.InvestmentLimit = kyc.LimitFor(update.Level)
		title = "KYC approved"
		message = fmt.Sprintf("Your identity verification was approved at the %s tier.", update.Level)
	case KycDecisionReject:
		update.Status = models.KycRejected
		update.RejectionReason = strings.TrimSpace(req.Reason)
		title = "KYC rejected"
		message = "Your identity verification was rejected."
		if update.RejectionReason != "" {
			message += " Reason: " + update.RejectionReason
		}
	}

	updated, err := s.dbService.UpdateUserKyc(ctx, userId, update)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "KYC_DECISION", userId, map[string]any{
		"decision": req.Decision,
		"level":    updated.KycLevel,
		"reason":   req.Reason,
	})
	s.notify(ctx, userId, "KYC", title, message)

	return updated, nil
}

func kycUpdateFrom(u *models.User) store.KycUpdate {
	return store.KycUpdate{
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		IdType:          u.IdType,
		IdNumber:        u.IdNumber,
		DateOfBirth:     u.DateOfBirth,
		Country:         u.Country,
		City:            u.City,
		Address:         u.Address,
		ZipCode:         u.ZipCode,
		Status:          u.KycStatus,
		Level:           u.KycLevel,
		InvestmentLimit: u.InvestmentLimit,
		RejectionReason: u.RejectionReason,
	}
}

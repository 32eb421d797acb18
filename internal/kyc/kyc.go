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

// Package kyc derives a user's KYC status, tier and investment limit from the
// identity fields they have submitted.
package kyc

import (
	"strings"

	"piron-pools-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	BasicLimit    = decimal.NewFromInt(10000)
	EnhancedLimit = decimal.NewFromInt(50000)
)

// Submission holds the identity fields a user provides.
type Submission struct {
	FirstName   string `json:"first_name" validate:"omitempty,max=100"`
	LastName    string `json:"last_name" validate:"omitempty,max=100"`
	IdType      string `json:"id_type" validate:"omitempty,oneof=passport national_id drivers_license"`
	IdNumber    string `json:"id_number" validate:"omitempty,max=64"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Country     string `json:"country" validate:"omitempty,max=64"`
	City        string `json:"city" validate:"omitempty,max=100"`
	Address     string `json:"address" validate:"omitempty,max=255"`
	ZipCode     string `json:"zip_code" validate:"omitempty,max=20"`
}

// Result is the outcome of evaluating a submission.
type Result struct {
	Status models.KycStatus
	Level  models.KycLevel
	Limit  decimal.Decimal
}

func present(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// HasBasic reports whether the name and identity document fields are all present.
func (s Submission) HasBasic() bool {
	return present(s.FirstName, s.LastName, s.IdType, s.IdNumber)
}

// HasAddress reports whether the address fields are all present.
func (s Submission) HasAddress() bool {
	return present(s.City, s.Address, s.ZipCode)
}

// Evaluate assigns the tier. Basic plus address fields gives ENHANCED, basic
// alone gives BASIC, anything less leaves the user IN_PROGRESS.
func Evaluate(s Submission) Result {
	switch {
	case s.HasBasic() && s.HasAddress():
		return Result{Status: models.KycApproved, Level: models.KycLevelEnhanced, Limit: EnhancedLimit}
	case s.HasBasic():
		return Result{Status: models.KycApproved, Level: models.KycLevelBasic, Limit: BasicLimit}
	default:
		return Result{Status: models.KycInProgress, Level: models.KycLevelNone, Limit: decimal.Zero}
	}
}

func rank(level models.KycLevel) int {
	switch level {
	case models.KycLevelEnhanced:
		return 2
	case models.KycLevelBasic:
		return 1
	default:
		return 0
	}
}

// KeepHigher returns the previous tier when it outranks the new result.
// It is only applied when downgrades on resubmission are disabled.
func KeepHigher(prevStatus models.KycStatus, prevLevel models.KycLevel, prevLimit decimal.Decimal, next Result) Result {
	if prevStatus == models.KycApproved && rank(prevLevel) > rank(next.Level) {
		return Result{Status: prevStatus, Level: prevLevel, Limit: prevLimit}
	}
	return next
}

// LimitFor returns the investment limit attached to a level.
func LimitFor(level models.KycLevel) decimal.Decimal {
	switch level {
	case models.KycLevelEnhanced:
		return EnhancedLimit
	case models.KycLevelBasic:
		return BasicLimit
	default:
		return decimal.Zero
	}
}

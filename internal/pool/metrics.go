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

package pool

import (
	"time"

	"piron-pools-go/internal/models"

	"github.com/shopspring/decimal"
)

// MaxDiscountedAPY caps the annualised yield shown for discounted instruments.
const MaxDiscountedAPY = 30.0

const yearDuration = 365 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// Progress returns 100*raised/target, or 0 when target is zero. Over-subscribed
// pools report more than 100.
func Progress(totalRaised, targetRaise decimal.Decimal) float64 {
	if targetRaise.IsZero() {
		return 0
	}
	return totalRaised.Mul(hundred).Div(targetRaise).InexactFloat64()
}

// ExpectedAPY returns the indicative annual yield in percent.
//
// DISCOUNTED pools annualise the discount over the epoch-end to maturity span
// and clamp to [0, MaxDiscountedAPY]. INTEREST_BEARING pools sum the coupon
// rates (bps) without clamping.
func ExpectedAPY(p *models.Pool) float64 {
	switch p.InstrumentType {
	case models.InstrumentDiscounted:
		return discountedAPY(p.DiscountRate, p.EpochEndTime, p.MaturityDate)
	case models.InstrumentInterestBearing:
		return couponAPY(p.CouponRates)
	default:
		return 0
	}
}

func discountedAPY(discountBps int64, epochEnd, maturity time.Time) float64 {
	years := maturity.Sub(epochEnd).Seconds() / yearDuration.Seconds()
	if years <= 0 {
		return 0
	}

	apy := (float64(discountBps) / 100) / years
	if apy < 0 {
		return 0
	}
	if apy > MaxDiscountedAPY {
		return MaxDiscountedAPY
	}
	return apy
}

func couponAPY(couponRates []int64) float64 {
	var sum int64
	for _, rate := range couponRates {
		sum += rate
	}
	return float64(sum) / 100
}

// Decorate attaches the read-time indicators to a pool.
func Decorate(p models.Pool) models.PoolWithComputed {
	return models.PoolWithComputed{
		Pool:               p,
		ProgressPercentage: Progress(p.TotalRaised, p.TargetRaise),
		ExpectedAPY:        ExpectedAPY(&p),
	}
}

// DecorateAll decorates every pool, preserving order.
func DecorateAll(pools []models.Pool) []models.PoolWithComputed {
	out := make([]models.PoolWithComputed, 0, len(pools))
	for _, p := range pools {
		out = append(out, Decorate(p))
	}
	return out
}

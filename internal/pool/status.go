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
	"errors"
	"fmt"

	"piron-pools-go/internal/models"
)

// ErrUnknownStatus is returned for a chain status code outside the known range.
var ErrUnknownStatus = errors.New("unknown on-chain pool status")

// chainStatuses is indexed by the manager contract's numeric status.
var chainStatuses = []models.PoolStatus{
	models.PoolFunding,
	models.PoolPendingInvestment,
	models.PoolInvested,
	models.PoolMatured,
	models.PoolEmergency,
}

var transitions = map[models.PoolStatus][]models.PoolStatus{
	models.PoolFunding:           {models.PoolPendingInvestment, models.PoolEmergency},
	models.PoolPendingInvestment: {models.PoolInvested, models.PoolEmergency},
	models.PoolInvested:          {models.PoolMatured, models.PoolEmergency},
	models.PoolMatured:           {},
	models.PoolEmergency:         {},
}

// StatusFromCode maps the contract's numeric status onto a PoolStatus.
func StatusFromCode(code uint8) (models.PoolStatus, error) {
	if int(code) >= len(chainStatuses) {
		return "", fmt.Errorf("status code %d: %w", code, ErrUnknownStatus)
	}
	return chainStatuses[code], nil
}

// IsValidStatus reports whether s is one of the five lifecycle states.
func IsValidStatus(s models.PoolStatus) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an admin may move a pool from one status to another.
// Chain sync does not go through this check.
func CanTransition(from, to models.PoolStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no admin transition leaves s.
func IsTerminal(s models.PoolStatus) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

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

package server

import (
	"net/http"
	"strconv"

	"piron-pools-go/internal/api"
	"piron-pools-go/internal/models"

	"github.com/go-chi/chi/v5"
)

type handler struct {
	svc *api.Service
}

func principal(r *http.Request) *models.Principal {
	return models.GetPrincipal(r.Context())
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.HealthCheck(r.Context()); err != nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "ok"})
}

// --- Pools ---

func (h *handler) listPools(w http.ResponseWriter, r *http.Request) {
	var (
		pools []models.PoolWithComputed
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		pools, err = h.svc.ListPoolsByStatus(r.Context(), models.PoolStatus(status))
	} else {
		pools, err = h.svc.GetAllPoolsWithComputed(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if pools == nil {
		pools = []models.PoolWithComputed{}
	}
	writeJSON(w, http.StatusOK, pools)
}

func (h *handler) getPool(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPool(r.Context(), chi.URLParam(r, "poolId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) getPoolByAddress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPoolByAddress(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) poolTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.GetPoolTransactions(r.Context(), chi.URLParam(r, "poolId"), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) platformMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.PlatformMetrics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- Signed-in user ---

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.EnsureUser(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type linkWalletRequest struct {
	WalletAddress string `json:"wallet_address"`
}

func (h *handler) linkWallet(w http.ResponseWriter, r *http.Request) {
	var req linkWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.svc.LinkWallet(r.Context(), principal(r), req.WalletAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) submitKYC(w http.ResponseWriter, r *http.Request) {
	var req api.KycSubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.svc.SubmitKYC(r.Context(), principal(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) recordDeposit(w http.ResponseWriter, r *http.Request) {
	var req api.RecordDepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RecordDeposit(r.Context(), principal(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) myTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.GetUserTransactions(r.Context(), principal(r), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.ListNotifications(r.Context(), principal(r), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkNotificationRead(r.Context(), principal(r), chi.URLParam(r, "notificationId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllNotificationsRead(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

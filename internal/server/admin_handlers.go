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

func (h *handler) accessState(w http.ResponseWriter, r *http.Request) {
	access, err := h.svc.AccessState(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

type bootstrapRequest struct {
	Name string `json:"name"`
}

func (h *handler) bootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	admin, err := h.svc.CreateFirstAdmin(r.Context(), principal(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

// --- Pools ---

func (h *handler) createPool(w http.ResponseWriter, r *http.Request) {
	var req api.CreatePoolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreatePool(r.Context(), principal(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type updateStatusRequest struct {
	Status models.PoolStatus `json:"status"`
}

func (h *handler) updatePoolStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateStatus(r.Context(), principal(r), chi.URLParam(r, "poolId"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) approvePool(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ApprovePool(r.Context(), principal(r), chi.URLParam(r, "poolId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type rejectPoolRequest struct {
	Reason string `json:"reason"`
}

func (h *handler) rejectPool(w http.ResponseWriter, r *http.Request) {
	var req rejectPoolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.RejectPool(r.Context(), principal(r), chi.URLParam(r, "poolId"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deletePool(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePool(r.Context(), principal(r), chi.URLParam(r, "poolId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) syncPoolFromChain(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ManualSync(r.Context(), principal(r), chi.URLParam(r, "poolId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) overwritePoolCounters(w http.ResponseWriter, r *http.Request) {
	var params api.SyncParams
	if !decodeJSON(w, r, &params) {
		return
	}
	p, err := h.svc.SyncWithOnchain(r.Context(), principal(r), chi.URLParam(r, "poolId"), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) closeEpoch(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	result, err := h.svc.CloseEpoch(r.Context(), principal(r), chi.URLParam(r, "poolId"), force)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Admins ---

func (h *handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.svc.ListAdmins(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admins)
}

func (h *handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	admin, err := h.svc.CreateAdmin(r.Context(), principal(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

func (h *handler) updateAdmin(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	admin, err := h.svc.UpdateAdmin(r.Context(), principal(r), chi.URLParam(r, "adminId"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

func (h *handler) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAdmin(r.Context(), principal(r), chi.URLParam(r, "adminId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listAdminActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.svc.ListAdminActions(r.Context(), principal(r), r.URL.Query().Get("admin_id"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if actions == nil {
		actions = []models.AdminAction{}
	}
	writeJSON(w, http.StatusOK, actions)
}

// --- Users ---

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), principal(r), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), principal(r), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), principal(r), chi.URLParam(r, "userId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) decideKYC(w http.ResponseWriter, r *http.Request) {
	var req api.KycDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.svc.DecideKYC(r.Context(), principal(r), chi.URLParam(r, "userId"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// --- Settings ---

func (h *handler) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.ListSettings(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *handler) getSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.svc.GetSetting(r.Context(), principal(r), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (h *handler) setSetting(w http.ResponseWriter, r *http.Request) {
	var req api.SetSettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	setting, err := h.svc.SetSetting(r.Context(), principal(r), chi.URLParam(r, "key"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

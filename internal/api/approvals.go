package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"

	"github.com/go-chi/chi/v5"
)

type SubmitRequest struct {
	DocumentID string        `json:"documentId"`
	Urgency    model.Urgency `json:"urgency,omitempty"`
}

func (d Dependencies) submitForApproval(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.DocumentID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "documentId is required", d.Log)
		return
	}
	if req.Urgency == "" {
		req.Urgency = model.UrgencyNormal
	}

	inst, err := d.Approvals.SubmitForApproval(r.Context(), req.DocumentID, callerID(r), req.Urgency)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusCreated, inst)
}

type ProcessRequest struct {
	Level    int                  `json:"level"`
	Action   model.ApprovalAction `json:"action"`
	Comments string               `json:"comments,omitempty"`
}

func (d Dependencies) processApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.Action != model.ActionApprove && req.Action != model.ActionReject {
		WriteError(w, http.StatusBadRequest, "invalid_request", "action must be approve or reject", d.Log)
		return
	}

	inst, err := d.Approvals.ProcessApproval(r.Context(), id, req.Level, callerID(r), req.Action, req.Comments)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

type DelegateRequest struct {
	Level    int    `json:"level"`
	ToUserID string `json:"toUserId"`
	Reason   string `json:"reason,omitempty"`
}

func (d Dependencies) delegateApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.ToUserID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "toUserId is required", d.Log)
		return
	}

	inst, err := d.Approvals.DelegateApproval(r.Context(), id, req.Level, callerID(r), req.ToUserID, req.Reason)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

type EscalateRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (d Dependencies) escalateApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The body is optional; an empty body is fine, a malformed one is not.
	var req EscalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.Reason == "" {
		req.Reason = "manual escalation"
	}

	inst, err := d.Approvals.EscalateManually(r.Context(), id, req.Reason)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (d Dependencies) cancelApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	inst, err := d.Approvals.CancelApproval(r.Context(), id, callerID(r), req.Reason)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

func (d Dependencies) getInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inst, err := d.Approvals.GetInstance(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

func (d Dependencies) pendingApprovals(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	records, err := d.Approvals.GetPendingApprovals(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"pending": records})
}

func (d Dependencies) approvalHistory(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentId")

	history, err := d.Approvals.GetApprovalHistory(r.Context(), documentID)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

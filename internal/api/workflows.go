package api

import (
	"encoding/json"
	"net/http"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/service"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var input service.WorkflowInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	def, err := d.Workflows.CreateWorkflow(r.Context(), input)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusCreated, def)
}

func (d Dependencies) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.WorkflowInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	def, err := d.Workflows.UpdateWorkflow(r.Context(), id, input)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, def)
}

func (d Dependencies) getWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	def, err := d.Workflows.GetWorkflow(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, def)
}

func (d Dependencies) listWorkflows(w http.ResponseWriter, r *http.Request) {
	defs, err := d.Workflows.ListWorkflows(r.Context())
	if err != nil {
		WriteDomainError(w, err, d.Log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"workflows": defs})
}

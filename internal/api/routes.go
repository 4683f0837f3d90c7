package api

import (
	"net/http"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Dependencies struct {
	Workflows *service.WorkflowService
	Approvals *service.ApprovalService
	Log       *zap.Logger
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	// Add request logging middleware
	r.Use(RequestLogger(d.Log))

	// Workflow definition endpoints
	r.Post("/workflows", d.createWorkflow)
	r.Get("/workflows", d.listWorkflows)
	r.Get("/workflows/{id}", d.getWorkflow)
	r.Put("/workflows/{id}", d.updateWorkflow)

	// Approval instance endpoints
	r.Post("/approvals/submit", d.submitForApproval)
	r.Get("/approvals/{id}", d.getInstance)
	r.Post("/approvals/{id}/process", d.processApproval)
	r.Post("/approvals/{id}/delegate", d.delegateApproval)
	r.Post("/approvals/{id}/escalate", d.escalateApproval)
	r.Post("/approvals/{id}/cancel", d.cancelApproval)

	// Query endpoints
	r.Get("/approvals/pending/{userId}", d.pendingApprovals)
	r.Get("/documents/{documentId}/history", d.approvalHistory)

	return r
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/clausewise/clausewise/internal/pkg/errcode"
	"github.com/clausewise/clausewise/internal/pkg/response"
	"github.com/clausewise/clausewise/internal/service"
)

type DraftHandler struct {
	drafts *service.DraftService
}

func NewDraftHandler(drafts *service.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

type createDraftRequest struct {
	ContractType string            `json:"contract_type"`
	Params       map[string]string `json:"params"`
}

func (h *DraftHandler) Create(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	task, err := h.drafts.CreateTask(c.Request.Context(), getTenantID(c), req.ContractType, req.Params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"task_id": task.ID, "status": task.Status})
}

func (h *DraftHandler) Get(c *gin.Context) {
	task, err := h.drafts.GetTask(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, task)
}

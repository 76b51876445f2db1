package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/clausewise/clausewise/internal/pkg/errcode"
	"github.com/clausewise/clausewise/internal/pkg/response"
	"github.com/clausewise/clausewise/internal/service"
)

type RetrievalHandler struct {
	retrieval *service.RetrievalService
	suggest   *service.SuggestService
}

func NewRetrievalHandler(retrieval *service.RetrievalService, suggest *service.SuggestService) *RetrievalHandler {
	return &RetrievalHandler{retrieval: retrieval, suggest: suggest}
}

type searchRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"top_k"`
	MinSimilarity float64 `json:"min_similarity"`
}

type classifyRequest struct {
	Text string `json:"text"`
}

type suggestRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

func (h *RetrievalHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	results, err := h.retrieval.Search(c.Request.Context(), getTenantID(c), req.Query, service.SearchOptions{
		TopK:          req.TopK,
		MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": results})
}

func (h *RetrievalHandler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.retrieval.ClassifyClause(c.Request.Context(), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *RetrievalHandler) Suggest(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.suggest.SuggestClause(c.Request.Context(), getTenantID(c), req.Text, req.Instruction)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

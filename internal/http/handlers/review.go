package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyforge-backend/internal/http/middleware"
	"github.com/yungbote/studyforge-backend/internal/http/response"
	"github.com/yungbote/studyforge-backend/internal/services"
)

const defaultDueLimit = 50

type ReviewHandler struct {
	reviews services.ReviewService
}

func NewReviewHandler(reviews services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) Due(c *gin.Context) {
	docID, err := optionalUUID(c.Query("documentId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultDueLimit)))
	if err != nil || limit <= 0 {
		limit = defaultDueLimit
	}
	items, err := h.reviews.DueQueue(c.Request.Context(), middleware.UserID(c), docID, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

type answerRequest struct {
	Quality *int `json:"quality"`
}

func (h *ReviewHandler) Answer(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quality == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	item, err := h.reviews.Answer(c.Request.Context(), middleware.UserID(c), itemID, *req.Quality)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

package delivery

import (
	"errors"
	"net/http"
	"strconv"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
	"github.com/Photon3009/cisoinbox/internal/email/repository"
	"github.com/Photon3009/cisoinbox/internal/mailsync"
	"github.com/Photon3009/cisoinbox/internal/rag"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	repo       repository.EmailRepository
	ragService *rag.Service
	supervisor *mailsync.Supervisor
}

func NewEmailHandler(repo repository.EmailRepository, ragService *rag.Service, supervisor *mailsync.Supervisor) *EmailHandler {
	return &EmailHandler{
		repo:       repo,
		ragService: ragService,
		supervisor: supervisor,
	}
}

func (h *EmailHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

func (h *EmailHandler) SearchEmails(c *gin.Context) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if pageStr := c.Query("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 1 {
			offset = (parsed - 1) * limit
		}
	}

	filter := repository.SearchFilter{
		Query:    c.Query("q"),
		Account:  c.Query("account"),
		Folder:   c.Query("folder"),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	}

	emails, total, err := h.repo.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"emails": emails,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (h *EmailHandler) GetEmailByID(c *gin.Context) {
	email, err := h.repo.FetchByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": email})
}

type suggestReplyRequest struct {
	EmailID string `json:"email_id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SuggestReply generates a reply either for a stored email (by id) or
// for inline content.
func (h *EmailHandler) SuggestReply(c *gin.Context) {
	var req suggestReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	from, subject, body := req.From, req.Subject, req.Body
	if req.EmailID != "" {
		email, err := h.repo.FetchByID(c.Request.Context(), req.EmailID)
		if err != nil {
			respondError(c, err)
			return
		}
		from, subject, body = email.From, email.Subject, email.Body
	}

	suggestion, err := h.ragService.SuggestReply(c.Request.Context(), from, subject, body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": suggestion})
}

type addExampleRequest struct {
	Context string `json:"context"`
	Email   string `json:"email"`
	Reply   string `json:"reply"`
}

func (h *EmailHandler) AddExample(c *gin.Context) {
	var req addExampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	doc, err := h.ragService.AddExample(c.Request.Context(), req.Context, req.Email, req.Reply)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": doc})
}

func (h *EmailHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": emaildomain.AllCategories()})
}

func (h *EmailHandler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.supervisor.Status()})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, emaildomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, emaildomain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

// Package api exposes the document and chat operations over HTTP.
package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docqa/internal/rag/errs"
	"docqa/internal/service"
	"docqa/pkg/logger"
)

// API provides the HTTP handlers of the service.
type API struct {
	documents *service.DocumentService
	chats     *service.ChatService
	logger    *logger.Logger
}

// NewAPI creates a new API handler.
func NewAPI(documents *service.DocumentService, chats *service.ChatService, logger *logger.Logger) *API {
	return &API{documents: documents, chats: chats, logger: logger}
}

// UploadDocumentHandler accepts a multipart file upload and queues its
// ingestion. Re-uploading identical content returns the existing document.
func (a *API) UploadDocumentHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	result, err := a.documents.Upload(c.Request.Context(), fileHeader.Filename, content)
	if err != nil {
		a.renderError(c, err)
		return
	}
	if result.Duplicate {
		c.JSON(http.StatusOK, result)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

// GetDocumentHandler returns one document record with its processing status.
func (a *API) GetDocumentHandler(c *gin.Context) {
	id, ok := a.parseID(c)
	if !ok {
		return
	}
	doc, err := a.documents.Get(c.Request.Context(), id)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListDocumentsHandler returns document records, newest first.
func (a *API) ListDocumentsHandler(c *gin.Context) {
	offset, limit := pagination(c)
	docs, err := a.documents.List(c.Request.Context(), offset, limit)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// DeleteDocumentHandler removes a document and all of its indexed chunks.
func (a *API) DeleteDocumentHandler(c *gin.Context) {
	id, ok := a.parseID(c)
	if !ok {
		return
	}
	if err := a.documents.Delete(c.Request.Context(), id); err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ReingestDocumentHandler queues a fresh ingestion run with new content.
func (a *API) ReingestDocumentHandler(c *gin.Context) {
	id, ok := a.parseID(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	doc, err := a.documents.Reingest(c.Request.Context(), id, fileHeader.Filename, content)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, doc)
}

// CancelDocumentHandler force-fails a processing document.
func (a *API) CancelDocumentHandler(c *gin.Context) {
	id, ok := a.parseID(c)
	if !ok {
		return
	}
	doc, err := a.documents.Cancel(c.Request.Context(), id)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// StatsHandler returns a diagnostic snapshot of the corpus and both indexes.
func (a *API) StatsHandler(c *gin.Context) {
	stats, err := a.documents.Stats(c.Request.Context())
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CreateChatHandler starts a new conversation.
func (a *API) CreateChatHandler(c *gin.Context) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	chat, err := a.chats.CreateChat(c.Request.Context(), payload.Title)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

// ListChatsHandler returns conversations ordered by recency.
func (a *API) ListChatsHandler(c *gin.Context) {
	offset, limit := pagination(c)
	chats, err := a.chats.ListChats(c.Request.Context(), offset, limit)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// ListMessagesHandler returns a chat's history in chronological order.
func (a *API) ListMessagesHandler(c *gin.Context) {
	id, ok := a.parseID(c)
	if !ok {
		return
	}
	offset, limit := pagination(c)
	messages, err := a.chats.ListMessages(c.Request.Context(), id, offset, limit)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// AskHandler answers a question within a chat.
func (a *API) AskHandler(c *gin.Context) {
	id, ok := a.parseID(c)
	if !ok {
		return
	}
	var req service.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	result, err := a.chats.Ask(c.Request.Context(), id, req)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// renderError maps the error taxonomy onto HTTP status codes. Transient
// failures are 503 so clients know a retry is reasonable; everything
// unclassified is a plain 500.
func (a *API) renderError(c *gin.Context, err error) {
	switch {
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errs.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errs.IsDuplicate(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errs.IsTransient(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		a.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

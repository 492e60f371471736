package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/models"
	"github.com/TWRT/tasksync/internal/repository"
)

const maxPushSize = 8 << 20 // 8MB

type PushRequestBody struct {
	Todos *models.Collection `json:"todos"`
}

// SyncHandler serves the remote copy of one collection.
type SyncHandler struct {
	blobs repository.BlobStore
	key   string
	log   *logger.Logger
}

func NewSyncHandler(blobs repository.BlobStore, key string, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		blobs: blobs,
		key:   key,
		log:   log,
	}
}

func (h *SyncHandler) Pull(c *gin.Context) {
	data, err := h.blobs.Get(c.Request.Context(), h.key)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"todos": models.Collection{}})
		return
	}
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "read remote tasks failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error trying to read tasks: " + err.Error()})
		return
	}

	var tasks models.Collection
	if err := json.Unmarshal(data, &tasks); err != nil {
		h.log.ErrorContext(c.Request.Context(), "stored remote tasks unreadable", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored tasks are corrupt"})
		return
	}
	if tasks == nil {
		tasks = models.Collection{}
	}

	c.JSON(http.StatusOK, gin.H{"todos": tasks})
}

func (h *SyncHandler) Push(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPushSize)

	var body PushRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON error: " + err.Error()})
		return
	}
	if body.Todos == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "todos array is required"})
		return
	}

	tasks := body.Todos.Dedupe()
	data, err := json.Marshal(tasks)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error encoding tasks: " + err.Error()})
		return
	}
	if err := h.blobs.Set(c.Request.Context(), h.key, data); err != nil {
		h.log.ErrorContext(c.Request.Context(), "write remote tasks failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error trying to save tasks: " + err.Error()})
		return
	}

	h.log.InfoContext(c.Request.Context(), "remote tasks replaced", "count", len(tasks))
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(tasks)})
}

func (h *SyncHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

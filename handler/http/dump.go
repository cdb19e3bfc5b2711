package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"treedump/src/fsutil"
	"treedump/src/infrastructure/job"
	"treedump/src/storage/minioctrl"
	"treedump/src/storage/postgres/runctrl"
)

type DumpHandler struct {
	jobService   *job.JobService
	runService   *runctrl.DumpRunService
	minioService *minioctrl.MinioService
	fileStore    fsutil.FileStore
}

func NewDumpHandler(
	jobService *job.JobService,
	runService *runctrl.DumpRunService,
	minioService *minioctrl.MinioService,
	fileStore fsutil.FileStore,
) *DumpHandler {
	return &DumpHandler{
		jobService:   jobService,
		runService:   runService,
		minioService: minioService,
		fileStore:    fileStore,
	}
}

type createDumpRequest struct {
	SourcePath string `json:"source_path" binding:"required"`
	Bucket     string `json:"bucket"`
}

// Create enqueues a dump job for the given source directory
func (h *DumpHandler) Create(c *gin.Context) {
	var req createDumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Reject obviously bad requests before they reach the queue
	ok, err := h.fileStore.IsDirectory(req.SourcePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check source directory"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Source directory not found: %s", req.SourcePath)})
		return
	}

	payload, err := json.Marshal(job.DumpPayload{
		SourcePath: req.SourcePath,
		Bucket:     req.Bucket,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal payload"})
		return
	}

	enqueued, err := h.jobService.EnqueueJob(c.Request.Context(), job.TaskTypeDump, payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue dump job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": enqueued.ID,
		"status": enqueued.Status,
	})
}

// List returns recorded dump runs, newest first
func (h *DumpHandler) List(c *gin.Context) {
	// Parse query parameters with defaults
	limit := 10 // default limit
	offset := 0 // default offset

	if limitParam := c.Query("limit"); limitParam != "" {
		if _, err := fmt.Sscanf(limitParam, "%d", &limit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		if _, err := fmt.Sscanf(offsetParam, "%d", &offset); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
			return
		}
	}

	runs, err := h.runService.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list dump runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs": runs,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// ListJobs returns queued and finished dump jobs, newest first
func (h *DumpHandler) ListJobs(c *gin.Context) {
	limit := 10
	offset := 0

	if limitParam := c.Query("limit"); limitParam != "" {
		if _, err := fmt.Sscanf(limitParam, "%d", &limit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		if _, err := fmt.Sscanf(offsetParam, "%d", &offset); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
			return
		}
	}

	jobs, err := h.jobService.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs": jobs,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// Get returns a single dump run by ID
func (h *DumpHandler) Get(c *gin.Context) {
	var id int64
	if _, err := fmt.Sscanf(c.Param("id"), "%d", &id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, err := h.runService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dump run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dump run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// Delete removes a dump run record and its archived object
func (h *DumpHandler) Delete(c *gin.Context) {
	var id int64
	if _, err := fmt.Sscanf(c.Param("id"), "%d", &id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, err := h.runService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dump run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dump run not found"})
		return
	}

	// Drop the archive first so a failed object delete never leaves an
	// orphaned record pointing at nothing
	bucket, objectName := h.minioService.GetBucketAndObjectFromURL(run.ObjectURL)
	if bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Malformed object URL on dump run"})
		return
	}
	if err := h.minioService.DeleteObject(c.Request.Context(), bucket, objectName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete dump archive"})
		return
	}

	if err := h.runService.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete dump run"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Download streams a run's archived dump file from MinIO
func (h *DumpHandler) Download(c *gin.Context) {
	var id int64
	if _, err := fmt.Sscanf(c.Param("id"), "%d", &id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, err := h.runService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dump run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dump run not found"})
		return
	}

	bucket, objectName := h.minioService.GetBucketAndObjectFromURL(run.ObjectURL)
	if bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Malformed object URL on dump run"})
		return
	}

	data, err := h.minioService.GetObject(c.Request.Context(), bucket, objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dump archive"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", objectName))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/application/port"
	"github.com/garyjia/tax-document-analyzer/internal/application/service"
	"github.com/garyjia/tax-document-analyzer/internal/fattura"
	"github.com/garyjia/tax-document-analyzer/internal/infrastructure/storage"
	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/payslip"
)

// Version is reported by the health check
var Version = "dev"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	documents     service.DocumentService
	storage       port.FileStorage
	maxUploadSize int64
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(documents service.DocumentService, files port.FileStorage, maxUploadSize int64, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		documents:     documents,
		storage:       files,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	Type     models.DocumentType `json:"type" binding:"required"`
	Document json.RawMessage     `json:"document" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	})
}

// ProcessDocument handles POST /api/v1/documents (multipart field "file",
// optional form fields "type" and "analyze")
func (h *Handlers) ProcessDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		h.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", h.maxUploadSize))
		return
	}

	kind := models.DocumentType(c.PostForm("type"))
	if kind == "" {
		detected, err := service.DetectType(fileHeader.Filename)
		if err != nil {
			h.fail(c, http.StatusUnprocessableEntity, err)
			return
		}
		kind = detected
	}
	analyze, err := strconv.ParseBool(c.DefaultPostForm("analyze", "true"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid analyze flag %q", c.PostForm("analyze")))
		return
	}

	content, err := readUpload(fileHeader)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}

	rel := storage.UploadPath(fileHeader.Filename)
	ctx := c.Request.Context()
	if err := h.storage.Save(ctx, rel, content); err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	defer func() {
		if err := h.storage.Delete(ctx, rel); err != nil {
			h.logger.Warn("Failed to remove upload", zap.String("path", rel), zap.Error(err))
		}
	}()

	result, err := h.documents.ProcessUpload(ctx, h.storage.GetFullPath(rel), fileHeader.Filename, kind, analyze)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// AnalyzeDocument handles POST /api/v1/analyze
func (h *Handlers) AnalyzeDocument(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}

	result, err := h.documents.Analyze(c.Request.Context(), req.Type, req.Document)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListAnalyses handles GET /api/v1/analyses?limit=
func (h *Handlers) ListAnalyses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		h.fail(c, http.StatusBadRequest, errors.New("limit must be between 1 and 500"))
		return
	}

	records, err := h.documents.History(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetAnalysis handles GET /api/v1/analyses/:id
func (h *Handlers) GetAnalysis(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// ExportAnalysis handles GET /api/v1/analyses/:id/export
func (h *Handlers) ExportAnalysis(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.documents.Export(c.Request.Context(), id, &buf); err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analisi_%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Stats handles GET /api/v1/stats
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.documents.Stats()})
}

func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

func (h *Handlers) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var parseErr *fattura.ParseError
	var extractErr *payslip.ExtractionError
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrUnsupportedDocument),
		errors.Is(err, analysis.ErrInvalidDocumentType),
		errors.Is(err, analysis.ErrNilDocument),
		errors.Is(err, analysis.ErrDocumentTypeMismatch),
		errors.As(err, &parseErr),
		errors.As(err, &extractErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return content, nil
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShipCreekGroup/email-parser/internal/domain"
	"github.com/ShipCreekGroup/email-parser/internal/export"
	"github.com/ShipCreekGroup/email-parser/internal/schema"
)

// ExportHandler renders a validated record list as a downloadable file.
type ExportHandler struct {
	validator *schema.Validator
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(validator *schema.Validator) *ExportHandler {
	return &ExportHandler{validator: validator}
}

// ExportRequest is the body of both export endpoints.
type ExportRequest struct {
	Emails []domain.Email `json:"emails" binding:"required"`
}

// ExportCSV handles POST /api/v1/export/csv. Output is tab-separated
// with a UTF-8 BOM for Excel compatibility.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	emails, ok := h.bindValidated(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/tab-separated-values; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="emails.tsv"`)
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(export.BOM); err != nil {
		return
	}
	w := export.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteEmails(emails); err != nil {
		return
	}
	w.Flush()
}

// ExportXLSX handles POST /api/v1/export/xlsx.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	emails, ok := h.bindValidated(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="emails.xlsx"`)
	c.Status(http.StatusOK)

	if err := export.WriteXLSX(c.Writer, emails); err != nil {
		HandleError(c, err)
	}
}

// bindValidated decodes the request body and re-checks the record list
// against the strict schema; exports only ever carry fully valid data.
func (h *ExportHandler) bindValidated(c *gin.Context) ([]domain.Email, bool) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "emails field is required")
		return nil, false
	}

	encoded, err := json.Marshal(req.Emails)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "emails could not be encoded")
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "emails could not be decoded")
		return nil, false
	}
	if err := h.validator.ValidateStrict(doc); err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "SCHEMA_VALIDATION_FAILED", err.Error())
		return nil, false
	}
	return req.Emails, true
}

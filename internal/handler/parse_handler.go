package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShipCreekGroup/email-parser/internal/domain"
	"github.com/ShipCreekGroup/email-parser/internal/port"
	"github.com/ShipCreekGroup/email-parser/internal/service"
)

// ParseHandler handles text-to-records parse endpoints.
type ParseHandler struct {
	svc service.ParseService
}

// NewParseHandler creates a new ParseHandler.
func NewParseHandler(svc service.ParseService) *ParseHandler {
	return &ParseHandler{svc: svc}
}

// ParseRequest is the body of both parse endpoints.
type ParseRequest struct {
	Text string `json:"text" binding:"required"`
}

// Parse handles POST /api/v1/parse/sync. It blocks until the stream has
// completed and returns only the terminal result.
func (h *ParseHandler) Parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "text field is required")
		return
	}

	result, err := h.svc.ParseText(c.Request.Context(), req.Text, port.DiscardSink{})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// ParseStream handles POST /api/v1/parse. The response is a
// server-sent-event stream: zero or more "progress" events while
// records are recovered, then exactly one terminal "result" or "error"
// event.
func (h *ParseHandler) ParseStream(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "text field is required")
		return
	}

	sink := &sseSink{c: c}
	result, err := h.svc.ParseText(c.Request.Context(), req.Text, sink)
	if err != nil {
		var pf *domain.ParseFailure
		if errors.As(err, &pf) {
			// The sink has already written the terminal error event.
			return
		}
		if !sink.wrote {
			// Nothing streamed yet; a plain error response is still possible.
			HandleError(c, err)
			return
		}
		_, code, msg := MapDomainError(err)
		sink.event("error", gin.H{"kind": code, "message": msg})
		return
	}

	sink.event("result", result)
}

// sseSink renders progress and failure notifications as SSE events. It
// defers the event-stream headers until the first event so that
// requests rejected before streaming still get a plain JSON response.
type sseSink struct {
	c     *gin.Context
	wrote bool
}

func (s *sseSink) begin() {
	if s.wrote {
		return
	}
	s.c.Writer.Header().Set("Content-Type", "text/event-stream")
	s.c.Writer.Header().Set("Cache-Control", "no-cache")
	s.c.Writer.Header().Set("Connection", "keep-alive")
	s.wrote = true
}

func (s *sseSink) event(name string, payload interface{}) {
	s.begin()
	s.c.SSEvent(name, payload)
	s.c.Writer.Flush()
}

func (s *sseSink) ReportProgress(emails []domain.Email, count int) {
	s.event("progress", gin.H{"count": count, "emails": emails})
}

func (s *sseSink) ReportFailure(f *domain.ParseFailure) {
	payload := gin.H{"kind": f.Kind, "message": f.Message}
	if f.Kind == domain.FailureKindSchema {
		payload["field_path"] = f.FieldPath
	} else {
		payload["raw_text"] = f.RawText
	}
	s.event("error", payload)
}

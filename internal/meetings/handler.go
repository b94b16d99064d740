package meetings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Averytsai/meeting-ai-system/internal/auth"
	"github.com/Averytsai/meeting-ai-system/internal/models"
	"github.com/Averytsai/meeting-ai-system/pkg/queue"
	"github.com/Averytsai/meeting-ai-system/pkg/response"
	"github.com/Averytsai/meeting-ai-system/pkg/storage"
)

// StartRequest is the body for POST /meetings/start.
type StartRequest struct {
	Room      string                  `json:"room" binding:"required"`
	Topic     string                  `json:"topic"`
	StartTime *time.Time              `json:"start_time"`
	Attendees []models.AttendeeCreate `json:"attendees" binding:"dive"`
}

// StatusResponse is the body for GET /meetings/:id/status.
type StatusResponse struct {
	Meeting   *models.Meeting        `json:"meeting"`
	Steps     models.ProcessingSteps `json:"steps"`
	Attendees []models.Attendee      `json:"attendees"`
}

// Handler handles meeting HTTP endpoints.
type Handler struct {
	repo      *Repository
	artifacts *storage.Artifacts
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewHandler creates a meetings handler.
func NewHandler(repo *Repository, artifacts *storage.Artifacts, q *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, artifacts: artifacts, queue: q, logger: logger}
}

// Start handles POST /meetings/start. The meeting is created in recording
// state; processing begins only at the end-of-meeting call.
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	userID, _ := currentUser(c)
	startTime := time.Now()
	if req.StartTime != nil {
		startTime = *req.StartTime
	}

	m := &models.Meeting{
		CreatedBy: userID,
		Room:      req.Room,
		Topic:     req.Topic,
		StartTime: startTime,
	}
	if err := h.repo.Create(c.Request.Context(), m, req.Attendees); err != nil {
		h.logger.Error("create meeting failed", zap.Error(err))
		response.Internal(c, "failed to create meeting")
		return
	}
	response.Created(c, m)
}

// End handles POST /meetings/:id/end (multipart). The audio recording is
// required; an optional "attendees" form field carries a JSON array that
// replaces the attendee list. This call is the single trigger of the
// processing pipeline: the recording -> processing transition and the queue
// push happen here and a repeat call is rejected on status.
func (h *Handler) End(c *gin.Context) {
	m, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if m.Status != models.MeetingStatusRecording {
		response.Conflict(c, fmt.Sprintf("meeting is not recording (status: %s)", m.Status))
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		response.BadRequest(c, "audio file is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read audio upload")
		return
	}
	defer f.Close()

	audioPath, err := h.artifacts.SaveAudio(m.ID.String(), fileHeader.Filename, f)
	if err != nil {
		h.logger.Error("save audio failed", zap.String("meeting_id", m.ID.String()), zap.Error(err))
		response.Internal(c, "failed to store audio")
		return
	}

	attendees, replace, parseErr := parseAttendeeUpdate(c.PostForm("attendees"))
	if parseErr != nil {
		// A broken attendee payload does not block the upload; the original
		// attendee list stays in effect.
		h.logger.Warn("ignoring malformed attendees field",
			zap.String("meeting_id", m.ID.String()), zap.Error(parseErr))
	}

	endTime := time.Now()
	if err := h.repo.FinishRecording(c.Request.Context(), m.ID, endTime, audioPath, attendees, replace); err != nil {
		h.logger.Error("finish recording failed", zap.String("meeting_id", m.ID.String()), zap.Error(err))
		response.Internal(c, "failed to finish meeting")
		return
	}

	if err := h.queue.EnqueueMeetingProcess(c.Request.Context(), queue.MeetingProcessPayload{MeetingID: m.ID}); err != nil {
		h.logger.Error("enqueue meeting process failed", zap.String("meeting_id", m.ID.String()), zap.Error(err))
		response.Internal(c, "failed to start processing")
		return
	}

	m.Status = models.MeetingStatusProcessing
	m.EndTime = &endTime
	m.AudioPath = audioPath
	response.OK(c, m)
}

// Status handles GET /meetings/:id/status.
func (h *Handler) Status(c *gin.Context) {
	m, ok := h.loadOwned(c)
	if !ok {
		return
	}
	attendees, err := h.repo.ListAttendees(c.Request.Context(), m.ID)
	if err != nil {
		response.Internal(c, "failed to load attendees")
		return
	}
	response.OK(c, StatusResponse{
		Meeting:   m,
		Steps:     DeriveSteps(m.Status, m.TranscriptPath, m.SummaryPath),
		Attendees: attendees,
	})
}

// Summary handles GET /meetings/:id/summary.
func (h *Handler) Summary(c *gin.Context) {
	m, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if m.SummaryPath == "" {
		response.NotFound(c, "summary is not available yet")
		return
	}
	content, err := storage.ReadFile(m.SummaryPath)
	if err != nil {
		h.logger.Error("read summary failed", zap.String("meeting_id", m.ID.String()), zap.Error(err))
		response.Internal(c, "failed to read summary")
		return
	}
	response.OK(c, gin.H{"meeting_id": m.ID, "summary": content})
}

// List handles GET /meetings. Optional query params: limit, date (YYYY-MM-DD, UTC).
func (h *Handler) List(c *gin.Context) {
	userID, _ := currentUser(c)

	if dateStr := c.Query("date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			response.BadRequest(c, "invalid date (want YYYY-MM-DD)")
			return
		}
		list, err := h.repo.ListByUserAndDate(c.Request.Context(), userID, date)
		if err != nil {
			response.Internal(c, "failed to list meetings")
			return
		}
		response.OK(c, list)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.repo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.Internal(c, "failed to list meetings")
		return
	}
	response.OK(c, list)
}

// loadOwned parses the :id param, loads the meeting and enforces that the
// caller owns it (admins may access any meeting). Writes the error response
// itself and returns ok=false on failure.
func (h *Handler) loadOwned(c *gin.Context) (*models.Meeting, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return nil, false
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load meeting")
		return nil, false
	}
	if m == nil {
		response.NotFound(c, "meeting not found")
		return nil, false
	}
	userID, role := currentUser(c)
	if m.CreatedBy != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "not your meeting")
		return nil, false
	}
	return m, true
}

func currentUser(c *gin.Context) (uuid.UUID, string) {
	idVal, _ := c.Get(auth.ContextUserID)
	roleVal, _ := c.Get(auth.ContextUserRole)
	id, _ := idVal.(uuid.UUID)
	role, _ := roleVal.(string)
	return id, role
}

// parseAttendeeUpdate decodes the optional attendees form field. An empty
// field keeps the existing list (replace=false). A malformed payload also
// keeps the existing list and reports the parse error. Entries without an
// email are dropped; an explicit empty array clears the list.
func parseAttendeeUpdate(raw string) ([]models.AttendeeCreate, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	var decoded []models.AttendeeCreate
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, false, fmt.Errorf("decode attendees: %w", err)
	}
	out := make([]models.AttendeeCreate, 0, len(decoded))
	for _, a := range decoded {
		a.Email = strings.ToLower(strings.TrimSpace(a.Email))
		if a.Email == "" || !strings.Contains(a.Email, "@") {
			continue
		}
		out = append(out, a)
	}
	return out, true, nil
}

// Package admin exposes the admin surface: password login and cross-user
// reporting over completed meetings.
package admin

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Averytsai/meeting-ai-system/internal/auth"
	"github.com/Averytsai/meeting-ai-system/internal/meetings"
	"github.com/Averytsai/meeting-ai-system/internal/models"
	"github.com/Averytsai/meeting-ai-system/pkg/response"
	"github.com/Averytsai/meeting-ai-system/pkg/storage"
	"github.com/Averytsai/meeting-ai-system/pkg/utils"
)

// LoginRequest is the body for POST /admin/login. Unlike regular users the
// admin authenticates with the seeded password.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OverviewMeeting is one completed meeting in the daily overview.
type OverviewMeeting struct {
	ID        uuid.UUID  `json:"id"`
	Room      string     `json:"room"`
	Topic     string     `json:"topic,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Attendees []string   `json:"attendees"`
	Summary   string     `json:"summary,omitempty"`
}

// OverviewUser groups one user's completed meetings for the day.
type OverviewUser struct {
	UserID       uuid.UUID         `json:"user_id"`
	Email        string            `json:"email"`
	FullName     string            `json:"full_name,omitempty"`
	MeetingCount int               `json:"meeting_count"`
	Meetings     []OverviewMeeting `json:"meetings"`
}

// Handler handles admin HTTP endpoints.
type Handler struct {
	users    *auth.Repository
	meetings *meetings.Repository
	jwt      *auth.JWTService
	logger   *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(users *auth.Repository, meetingsRepo *meetings.Repository, jwt *auth.JWTService, logger *zap.Logger) *Handler {
	return &Handler{users: users, meetings: meetingsRepo, jwt: jwt, logger: logger}
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Internal(c, "failed to load user")
		return
	}
	if user == nil || user.Role != models.RoleAdmin || user.Password == "" {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Data: auth.TokenResponse{Token: token, User: user}})
}

// Users handles GET /admin/users.
func (h *Handler) Users(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// Overview handles GET /admin/daily-overview?date=YYYY-MM-DD. It reports, per user,
// the completed meetings of that day with their summaries and attendee names.
// Users without completed meetings are omitted; the busiest users come first.
func (h *Handler) Overview(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}

	users, err := h.users.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}

	var overview []OverviewUser
	for _, u := range users {
		list, err := h.meetings.ListCompletedByUserAndDate(c.Request.Context(), u.ID, date)
		if err != nil {
			response.Internal(c, "failed to list meetings")
			return
		}
		if len(list) == 0 {
			continue
		}
		entry := OverviewUser{
			UserID:       u.ID,
			Email:        u.Email,
			FullName:     u.FullName,
			MeetingCount: len(list),
		}
		for _, m := range list {
			entry.Meetings = append(entry.Meetings, h.overviewMeeting(c, m))
		}
		overview = append(overview, entry)
	}

	sort.SliceStable(overview, func(i, j int) bool {
		return overview[i].MeetingCount > overview[j].MeetingCount
	})
	response.OK(c, gin.H{
		"date":  date.Format("2006-01-02"),
		"users": overview,
	})
}

// UserMeetings handles GET /admin/users/:id/meetings?date=YYYY-MM-DD.
func (h *Handler) UserMeetings(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	date, ok := h.parseDate(c)
	if !ok {
		return
	}
	list, err := h.meetings.ListByUserAndDate(c.Request.Context(), userID, date)
	if err != nil {
		response.Internal(c, "failed to list meetings")
		return
	}
	response.OK(c, list)
}

func (h *Handler) overviewMeeting(c *gin.Context, m models.Meeting) OverviewMeeting {
	out := OverviewMeeting{
		ID:        m.ID,
		Room:      m.Room,
		Topic:     m.Topic,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
	}

	attendees, err := h.meetings.ListAttendees(c.Request.Context(), m.ID)
	if err != nil {
		h.logger.Warn("overview: load attendees failed", zap.String("meeting_id", m.ID.String()), zap.Error(err))
	}
	for _, a := range attendees {
		out.Attendees = append(out.Attendees, a.DisplayName())
	}

	if m.SummaryPath != "" {
		summary, err := storage.ReadFile(m.SummaryPath)
		if err != nil {
			h.logger.Warn("overview: read summary failed", zap.String("meeting_id", m.ID.String()), zap.Error(err))
		} else {
			out.Summary = summary
		}
	}
	return out
}

func (h *Handler) parseDate(c *gin.Context) (time.Time, bool) {
	dateStr := c.Query("date")
	if dateStr == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		response.BadRequest(c, "invalid date (want YYYY-MM-DD)")
		return time.Time{}, false
	}
	return date, true
}

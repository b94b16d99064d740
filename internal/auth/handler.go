package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Averytsai/meeting-ai-system/internal/models"
	"github.com/Averytsai/meeting-ai-system/pkg/response"
)

// Gin context keys set by the JWT middleware.
const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// LoginRequest is the body for POST /auth/login. Login is email-only: the
// account is created on first use.
type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo           *Repository
	jwt            *JWTService
	allowedDomains []string
	logger         *zap.Logger
}

// NewHandler creates an auth handler. allowedDomains restricts login to the
// given email domains; empty allows any domain.
func NewHandler(repo *Repository, jwt *JWTService, allowedDomains []string, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, allowedDomains: allowedDomains, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !h.domainAllowed(email) {
		response.Forbidden(c, "email domain is not allowed")
		return
	}

	user, err := h.repo.UpsertLogin(c.Request.Context(), email, strings.TrimSpace(req.Name))
	if err != nil {
		h.logger.Error("login upsert failed", zap.String("email", email), zap.Error(err))
		response.Internal(c, "failed to log in")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	c.JSON(http.StatusOK, response.Body{Success: true, Data: TokenResponse{Token: token, User: user}})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Internal(c, "failed to load user")
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user)
}

// Logout handles POST /auth/logout. Tokens are stateless; the client discards
// its copy and this endpoint exists so the frontend has a uniform flow.
func (h *Handler) Logout(c *gin.Context) {
	response.OK(c, gin.H{"message": "logged out"})
}

func (h *Handler) domainAllowed(email string) bool {
	if len(h.allowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range h.allowedDomains {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}

package handlers

import (
	"net/http"

	"pa-intake/engine"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler exposes the intake engine over HTTP. It does no domain work
// of its own: every request body is validated, handed to the engine, and the
// engine's reply serialized back.
type SessionHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewSessionHandler(eng *engine.Engine, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{engine: eng, logger: logger}
}

func (h *SessionHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateSession starts a new intake conversation.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	id, err := h.engine.Create(c.Request.Context())
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err, "could not create session", h.logger)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": id,
		"action":     engine.ActionCollectIntake,
	})
}

type intakeRequest struct {
	// Either a single structured field...
	Field string `json:"field"`
	Value string `json:"value"`
	// ...or free text for the extraction collaborator.
	Text string `json:"text"`
}

// SubmitIntake records identity fields, structured or free-text.
func (h *SessionHandler) SubmitIntake(c *gin.Context) {
	sessionID := c.Param("id")

	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var reply engine.Reply
	var err error
	switch {
	case req.Field != "":
		reply, err = h.engine.SubmitIntakeField(c.Request.Context(), sessionID, req.Field, req.Value)
	case req.Text != "":
		reply, err = h.engine.SubmitIntake(c.Request.Context(), sessionID, req.Text)
	default:
		respondWithClientError(c, http.StatusBadRequest, "provide either field/value or text")
		return
	}
	if err != nil {
		respondEngineError(c, err, h.logger, zap.String("session_id", sessionID))
		return
	}
	c.JSON(http.StatusOK, reply)
}

type answerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// SubmitAnswer feeds one raw answer to the current question.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID := c.Param("id")

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "answer is required")
		return
	}

	reply, err := h.engine.SubmitAnswer(c.Request.Context(), sessionID, req.Answer)
	if err != nil {
		respondEngineError(c, err, h.logger, zap.String("session_id", sessionID))
		return
	}
	c.JSON(http.StatusOK, reply)
}

// CurrentQuestion returns the question the session is waiting on.
func (h *SessionHandler) CurrentQuestion(c *gin.Context) {
	sessionID := c.Param("id")

	q, err := h.engine.GetCurrentQuestion(c.Request.Context(), sessionID)
	if err != nil {
		respondEngineError(c, err, h.logger, zap.String("session_id", sessionID))
		return
	}
	c.JSON(http.StatusOK, q)
}

// Summary returns the externally visible session state.
func (h *SessionHandler) Summary(c *gin.Context) {
	sessionID := c.Param("id")

	summary, err := h.engine.GetSessionSummary(c.Request.Context(), sessionID)
	if err != nil {
		respondEngineError(c, err, h.logger, zap.String("session_id", sessionID))
		return
	}
	c.JSON(http.StatusOK, summary)
}

// EndSession terminates the conversation.
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.engine.End(c.Request.Context(), sessionID); err != nil {
		respondEngineError(c, err, h.logger, zap.String("session_id", sessionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// Package handlers contains the HTTP request handlers for the REST API.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"phrasely-backend/application/commands"
	"phrasely-backend/application/commands/bus"
	"phrasely-backend/application/queries"
	querybus "phrasely-backend/application/queries/bus"
	"phrasely-backend/pkg/common"
	pkgerrors "phrasely-backend/pkg/errors"
	"phrasely-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20 // 1MB

// SessionHandler handles session-related HTTP requests. Void commands
// go through the command bus; commands whose results feed the response
// body call their handlers directly.
type SessionHandler struct {
	commandBus     *bus.CommandBus
	queryBus       *querybus.QueryBus
	createHandler  *commands.CreateSessionHandler
	submitHandler  *commands.SubmitParaphraseHandler
	cleanupHandler *commands.CleanupSessionsHandler
	errorHandler   *pkgerrors.ErrorHandler
	logger         *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	createHandler *commands.CreateSessionHandler,
	submitHandler *commands.SubmitParaphraseHandler,
	cleanupHandler *commands.CleanupSessionsHandler,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		commandBus:     commandBus,
		queryBus:       queryBus,
		createHandler:  createHandler,
		submitHandler:  submitHandler,
		cleanupHandler: cleanupHandler,
		errorHandler:   errorHandler,
		logger:         logger,
	}
}

// CreateSessionRequest represents the request body for opening a session
type CreateSessionRequest struct {
	SocketID string `json:"socketId" validate:"required,min=1,max=100"`
}

// CreateSessionResponse represents the response for opening a session
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// SubmitParaphraseRequest represents the request body for starting a run
type SubmitParaphraseRequest struct {
	Text         string   `json:"text" validate:"required"`
	Language     string   `json:"language,omitempty"`
	Mode         string   `json:"mode,omitempty" validate:"omitempty,oneof=standard fluency formal simple creative expand shorten"`
	SynonymLevel string   `json:"synonymLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	FreezeWords  []string `json:"freezeWords,omitempty" validate:"omitempty,max=50,dive,min=1,max=60"`
}

// ReplaceWordRequest represents the request body for a word replacement
type ReplaceWordRequest struct {
	SentenceIndex int    `json:"sentenceIndex" validate:"min=0"`
	WordIndex     int    `json:"wordIndex" validate:"min=0"`
	Replacement   string `json:"replacement" validate:"required,max=100"`
}

// ReplaceSentenceRequest represents the request body for a sentence replacement
type ReplaceSentenceRequest struct {
	SentenceIndex int      `json:"sentenceIndex" validate:"min=0"`
	Words         []string `json:"words" validate:"required,min=1,dive,required"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}

	var req CreateSessionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	cmd := commands.CreateSessionCommand{
		OwnerID:  ownerID,
		SocketID: req.SocketID,
	}
	session, err := h.createHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.logger.Error("Failed to create session",
			zap.String("ownerID", ownerID),
			zap.Error(err),
		)
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID().String(),
		Status:    string(session.Status()),
		CreatedAt: session.CreatedAt().Format(time.RFC3339),
	})
}

// SubmitParaphrase handles POST /sessions/{sessionID}/paraphrase
func (h *SessionHandler) SubmitParaphrase(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req SubmitParaphraseRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	cmd := commands.SubmitParaphraseCommand{
		SessionID:    sessionID,
		OwnerID:      ownerID,
		Text:         req.Text,
		Language:     req.Language,
		Mode:         req.Mode,
		SynonymLevel: req.SynonymLevel,
		FreezeWords:  req.FreezeWords,
	}
	correlationID, err := h.submitHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.logger.Error("Failed to submit paraphrase",
			zap.String("sessionID", sessionID),
			zap.String("ownerID", ownerID),
			zap.Error(err),
		)
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusAccepted, map[string]string{
		"sessionId":     sessionID,
		"correlationId": correlationID.String(),
		"status":        "streaming",
	})
}

// ReplaceWord handles POST /sessions/{sessionID}/words
func (h *SessionHandler) ReplaceWord(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req ReplaceWordRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	cmd := commands.ReplaceWordCommand{
		SessionID:     sessionID,
		OwnerID:       ownerID,
		SentenceIndex: req.SentenceIndex,
		WordIndex:     req.WordIndex,
		Replacement:   req.Replacement,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to replace word",
			zap.String("sessionID", sessionID),
			zap.Int("sentenceIndex", req.SentenceIndex),
			zap.Int("wordIndex", req.WordIndex),
			zap.Error(err),
		)
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "replaced"})
}

// ReplaceSentence handles POST /sessions/{sessionID}/sentences
func (h *SessionHandler) ReplaceSentence(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req ReplaceSentenceRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	cmd := commands.ReplaceSentenceCommand{
		SessionID:     sessionID,
		OwnerID:       ownerID,
		SentenceIndex: req.SentenceIndex,
		Words:         req.Words,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to replace sentence",
			zap.String("sessionID", sessionID),
			zap.Int("sentenceIndex", req.SentenceIndex),
			zap.Error(err),
		)
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "replaced"})
}

// UndoReplacement handles POST /sessions/{sessionID}/undo
func (h *SessionHandler) UndoReplacement(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	cmd := commands.UndoReplacementCommand{
		SessionID: sessionID,
		OwnerID:   ownerID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to undo replacement",
			zap.String("sessionID", sessionID),
			zap.Error(err),
		)
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "reverted"})
}

// GetDocument handles GET /sessions/{sessionID}/document
func (h *SessionHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}

	query := queries.GetDocumentQuery{
		SessionID: chi.URLParam(r, "sessionID"),
		OwnerID:   ownerID,
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetProjection handles GET /sessions/{sessionID}/projection
func (h *SessionHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}

	query := queries.GetProjectionQuery{
		SessionID:         chi.URLParam(r, "sessionID"),
		OwnerID:           ownerID,
		ShowTagColors:     queryFlag(r, "tagColors", true),
		ShowStructural:    queryFlag(r, "structural", true),
		ShowUnchangedRuns: queryFlag(r, "unchangedRuns", true),
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetStatus handles GET /sessions/{sessionID}/status
func (h *SessionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}

	query := queries.GetSessionStatusQuery{
		SessionID: chi.URLParam(r, "sessionID"),
		OwnerID:   ownerID,
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}

	params := common.ExtractPaginationParams(r)
	query := queries.ListSessionsQuery{
		OwnerID:  ownerID,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if listed, ok := result.(*queries.ListSessionsResult); ok {
		common.RespondWithMeta(w, http.StatusOK, listed.Sessions, &common.MetaInfo{
			Pagination: common.BuildPaginationMeta(listed.Page, listed.PageSize, listed.Total),
		})
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// CleanupSessions handles POST /sessions/cleanup
func (h *SessionHandler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := common.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Missing user identity")
		return
	}

	maxAge := 24 * time.Hour
	if raw := r.URL.Query().Get("maxAgeHours"); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			maxAge = time.Duration(hours) * time.Hour
		}
	}

	cmd := &commands.CleanupSessionsCommand{
		OwnerID: ownerID,
		MaxAge:  maxAge,
	}
	deleted, err := h.cleanupHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"deletedCount": deleted,
	})
}

// queryFlag parses a boolean query parameter with a default
func queryFlag(r *http.Request, name string, defaultValue bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/validators"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
	"phrasely-backend/pkg/ratelimit"
	"phrasely-backend/pkg/utils"
)

// SubmitParaphraseCommand represents the command to start a streaming
// paraphrase run for a session
type SubmitParaphraseCommand struct {
	SessionID    string   `json:"session_id" validate:"required"`
	OwnerID      string   `json:"owner_id" validate:"required"`
	Text         string   `json:"text" validate:"required,max=20000"`
	Language     string   `json:"language"`
	Mode         string   `json:"mode" validate:"omitempty,oneof=standard fluency formal simple creative expand shorten"`
	SynonymLevel string   `json:"synonym_level" validate:"omitempty,oneof=low medium high"`
	FreezeWords  []string `json:"freeze_words" validate:"max=50,dive,min=1,max=60"`
}

// Validate validates the command
func (cmd SubmitParaphraseCommand) Validate() error {
	if cmd.SessionID == "" {
		return errors.New("session ID is required")
	}
	if cmd.Text == "" {
		return errors.New("text is required")
	}
	return utils.ValidateStruct(cmd)
}

// SubmitParaphraseHandler handles the SubmitParaphraseCommand
type SubmitParaphraseHandler struct {
	sessions  ports.SessionRepository
	upstream  ports.UpstreamGateway
	eventBus  ports.EventBus
	limiter   *ratelimit.OwnerRateLimiter
	validator *validators.InputValidator
	logger    *zap.Logger
}

// NewSubmitParaphraseHandler creates a new handler instance
func NewSubmitParaphraseHandler(
	sessions ports.SessionRepository,
	upstream ports.UpstreamGateway,
	eventBus ports.EventBus,
	limiter *ratelimit.OwnerRateLimiter,
	logger *zap.Logger,
) *SubmitParaphraseHandler {
	return &SubmitParaphraseHandler{
		sessions:  sessions,
		upstream:  upstream,
		eventBus:  eventBus,
		limiter:   limiter,
		validator: validators.NewInputValidator(),
		logger:    logger,
	}
}

// Handle executes the submit paraphrase command. A resubmission while a
// run is still streaming supersedes it: the new correlation id becomes
// the only id the session accepts, and the old request is left to
// finish into the void.
func (h *SubmitParaphraseHandler) Handle(ctx context.Context, cmd SubmitParaphraseCommand) (valueobjects.CorrelationID, error) {
	allowed, err := h.limiter.Allow(ctx, cmd.OwnerID)
	if err != nil {
		return valueobjects.CorrelationID{}, err
	}
	if !allowed {
		return valueobjects.CorrelationID{}, pkgerrors.NewRateLimitError(0, "minute").
			WithCode("SUBMIT_RATE_LIMITED")
	}

	sessionID, err := valueobjects.NewSessionIDFromString(cmd.SessionID)
	if err != nil {
		return valueobjects.CorrelationID{}, pkgerrors.NewValidationError("invalid session ID")
	}

	if err := h.validator.ValidateSubmission(cmd.Text, cmd.FreezeWords); err != nil {
		return valueobjects.CorrelationID{}, err
	}

	language := valueobjects.ParseLanguage(cmd.Language)

	var correlationID valueobjects.CorrelationID
	err = h.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if session.OwnerID() != cmd.OwnerID {
			return pkgerrors.NewNotFoundError("session")
		}
		correlationID, err = session.BeginRun(cmd.Text, language, cmd.Mode, cmd.SynonymLevel, cmd.FreezeWords)
		if err != nil {
			return err
		}
		for _, event := range session.DomainEvents() {
			if pubErr := h.eventBus.Publish(ctx, event); pubErr != nil {
				h.logger.Warn("Failed to publish event", zap.Error(pubErr))
			}
		}
		return nil
	})
	if err != nil {
		return valueobjects.CorrelationID{}, err
	}

	req := ports.UpstreamRequest{
		CorrelationID: correlationID,
		Text:          cmd.Text,
		Language:      language,
		Mode:          cmd.Mode,
		SynonymLevel:  cmd.SynonymLevel,
		FreezeWords:   cmd.FreezeWords,
	}
	if err := h.upstream.StartParaphrase(ctx, req); err != nil {
		failErr := h.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
			session.MarkFailed("upstream submission failed")
			for _, event := range session.DomainEvents() {
				if pubErr := h.eventBus.Publish(ctx, event); pubErr != nil {
					h.logger.Warn("Failed to publish event", zap.Error(pubErr))
				}
			}
			return nil
		})
		if failErr != nil {
			h.logger.Error("Failed to mark session failed", zap.Error(failErr))
		}
		return valueobjects.CorrelationID{}, pkgerrors.NewExternalError("paraphrase", err)
	}

	h.logger.Info("Paraphrase run started",
		zap.String("sessionID", cmd.SessionID),
		zap.String("correlationID", correlationID.String()),
		zap.String("language", language.String()),
		zap.String("mode", cmd.Mode),
	)

	return correlationID, nil
}

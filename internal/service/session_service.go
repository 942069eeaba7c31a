package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"compass-llm/internal/domain"
	"compass-llm/internal/llm"
)

// SessionService construye sesiones conversacionales contra el proveedor,
// parametrizadas por idioma. No envia ningun turno: solo valida credencial y
// modelo, y entrega el handle que luego consume ExchangeService.
type SessionService struct {
	provider    llm.Provider
	builder     PersonaBuilder
	temperature float64
	logger      *zap.Logger
}

var ErrSessionServiceNotConfigured = errors.New("session service not configured")

func NewSessionService(provider llm.Provider, temperature float64, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		provider:    provider,
		builder:     PersonaBuilder{},
		temperature: temperature,
		logger:      logger,
	}
}

// CreateSession resuelve el idioma (fallback a ingles), arma la persona y
// ejecuta exactamente una llamada de construccion contra el proveedor.
// Los errores se propagan sin reintento: la politica de reintento es del caller.
func (s *SessionService) CreateSession(ctx context.Context, languageCode string) (*domain.ConversationSession, error) {
	if s == nil || s.provider == nil {
		return nil, ErrSessionServiceNotConfigured
	}

	lang := domain.ResolveLanguage(languageCode)
	persona := s.builder.BuildPersona(lang)

	if err := s.provider.ValidateModel(ctx); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session := &domain.ConversationSession{
		ID:          uuid.NewString(),
		Language:    lang,
		Persona:     persona,
		Temperature: s.temperature,
		CreatedAt:   time.Now().UTC(),
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("language", lang.Code),
	)
	return session, nil
}

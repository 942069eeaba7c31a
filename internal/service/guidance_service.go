package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"compass-llm/internal/domain"
	"compass-llm/internal/repository"
)

// SessionCreator construye sesiones de proveedor (ver SessionService).
type SessionCreator interface {
	CreateSession(ctx context.Context, languageCode string) (*domain.ConversationSession, error)
}

// TurnSender aplica un turno sobre una sesion (ver ExchangeService).
type TurnSender interface {
	Send(ctx context.Context, session *domain.ConversationSession, turn domain.Turn) domain.Reply
}

// GuidanceService orquesta la conversacion completa: valida el turno, asegura
// una sesion viva (creandola de forma lazy y recreandola tras un fallo de
// construccion o un reinicio), delega el intercambio y persiste el log
// append-only de mensajes. Es la capa "caller" que el core asume.
type GuidanceService struct {
	sessions      SessionCreator
	exchange      TurnSender
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	logger        *zap.Logger

	// live mapea conversation ID -> sesion de proveedor en memoria.
	// turnLocks serializa los envios por conversacion: el contexto del
	// proveedor es orden-dependiente.
	mu        sync.Mutex
	live      map[string]*domain.ConversationSession
	turnLocks map[string]*sync.Mutex
}

var ErrGuidanceServiceNotConfigured = errors.New("guidance service not configured")

const conversationTitleLimit = 60

func NewGuidanceService(
	sessions SessionCreator,
	exchange TurnSender,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	logger *zap.Logger,
) *GuidanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuidanceService{
		sessions:      sessions,
		exchange:      exchange,
		conversations: conversations,
		messages:      messages,
		logger:        logger,
		live:          make(map[string]*domain.ConversationSession),
		turnLocks:     make(map[string]*sync.Mutex),
	}
}

// StartConversation crea la cabecera persistida y su sesion de proveedor.
// Un fallo de construccion no deja fila huerfana: se propaga sin persistir.
func (s *GuidanceService) StartConversation(ctx context.Context, userID, languageCode string) (domain.Conversation, error) {
	if s == nil || s.sessions == nil || s.conversations == nil {
		return domain.Conversation{}, ErrGuidanceServiceNotConfigured
	}

	session, err := s.sessions.CreateSession(ctx, languageCode)
	if err != nil {
		return domain.Conversation{}, err
	}

	conv := domain.Conversation{
		ID:        session.ID,
		UserID:    userID,
		Language:  session.Language.Code,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("persist conversation: %w", err)
	}

	s.mu.Lock()
	s.live[conv.ID] = session
	s.mu.Unlock()

	return conv, nil
}

// SendTurn aplica un turno de usuario sobre una conversacion y devuelve el
// mensaje del usuario y el del asistente ya persistidos. Un fallo de
// intercambio no es un error aqui: la Reply de fallback se persiste igual
// para mantener el log siempre renderizable.
func (s *GuidanceService) SendTurn(ctx context.Context, userID, conversationID string, turn domain.Turn) (domain.Message, domain.Message, error) {
	if s == nil || s.sessions == nil || s.exchange == nil || s.messages == nil {
		return domain.Message{}, domain.Message{}, ErrGuidanceServiceNotConfigured
	}

	if strings.TrimSpace(turn.Text) == "" && turn.Attachment == nil {
		return domain.Message{}, domain.Message{}, domain.ErrEmptyTurn
	}

	conv, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return domain.Message{}, domain.Message{}, err
	}

	lock := s.turnLock(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.ensureSession(ctx, conv)
	if err != nil {
		return domain.Message{}, domain.Message{}, err
	}

	reply := s.exchange.Send(ctx, session, turn)
	if reply.Err != nil {
		s.logger.Warn("exchange degraded",
			zap.String("conversation_id", conv.ID),
			zap.Error(reply.Err),
		)
	}

	now := time.Now().UTC()
	userMsg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           domain.RoleUser,
		Content:        turn.Text,
		CreatedAt:      now,
	}
	if turn.Attachment != nil {
		userMsg.AttachmentMime = turn.Attachment.MimeType
	}
	assistantMsg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           domain.RoleAssistant,
		Content:        reply.Text,
		CreatedAt:      now.Add(time.Millisecond),
	}

	if err := s.messages.Create(ctx, userMsg); err != nil {
		return domain.Message{}, domain.Message{}, fmt.Errorf("persist user message: %w", err)
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return domain.Message{}, domain.Message{}, fmt.Errorf("persist assistant message: %w", err)
	}

	if conv.Title == "" && strings.TrimSpace(turn.Text) != "" {
		if err := s.conversations.UpdateTitle(ctx, conv.ID, deriveTitle(turn.Text)); err != nil {
			s.logger.Warn("update title failed", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}

	return userMsg, assistantMsg, nil
}

// ListConversations devuelve las conversaciones del usuario, mas reciente primero.
func (s *GuidanceService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if s == nil || s.conversations == nil {
		return nil, ErrGuidanceServiceNotConfigured
	}
	return s.conversations.ListByUserID(ctx, userID)
}

// History devuelve el log append-only de una conversacion del usuario.
func (s *GuidanceService) History(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if s == nil || s.messages == nil {
		return nil, ErrGuidanceServiceNotConfigured
	}
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversationID(ctx, conversationID)
}

// DeleteConversation borra la conversacion y abandona su sesion viva.
func (s *GuidanceService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if s == nil || s.conversations == nil {
		return ErrGuidanceServiceNotConfigured
	}
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.conversations.Delete(ctx, conversationID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.live, conversationID)
	delete(s.turnLocks, conversationID)
	s.mu.Unlock()
	return nil
}

func (s *GuidanceService) ownedConversation(ctx context.Context, userID, conversationID string) (domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	if conv.UserID != userID {
		return domain.Conversation{}, domain.ErrNotFound
	}
	return conv, nil
}

// ensureSession devuelve la sesion viva de la conversacion, o la reconstruye:
// tras un reinicio (o una construccion fallida previa) se crea una sesion
// nueva y se rellena su History desde el log persistido.
func (s *GuidanceService) ensureSession(ctx context.Context, conv domain.Conversation) (*domain.ConversationSession, error) {
	s.mu.Lock()
	session, ok := s.live[conv.ID]
	s.mu.Unlock()
	if ok {
		return session, nil
	}

	session, err := s.sessions.CreateSession(ctx, conv.Language)
	if err != nil {
		return nil, err
	}

	if history, err := s.messages.ListByConversationID(ctx, conv.ID); err != nil {
		s.logger.Warn("history rebuild failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	} else {
		session.History = rebuildHistory(history)
	}

	s.mu.Lock()
	s.live[conv.ID] = session
	s.mu.Unlock()

	s.logger.Info("session rebuilt",
		zap.String("conversation_id", conv.ID),
		zap.Int("history_turns", len(session.History)),
	)
	return session, nil
}

func (s *GuidanceService) turnLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.turnLocks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.turnLocks[conversationID] = lock
	}
	return lock
}

// rebuildHistory convierte el log persistido en contexto de proveedor.
// Los adjuntos no se reenvian: solo queda su eco textual.
func rebuildHistory(messages []domain.Message) []domain.Content {
	var contents []domain.Content
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := domain.RoleUser
		if msg.Role == domain.RoleAssistant {
			role = domain.RoleModel
		}
		contents = append(contents, domain.Content{
			Role:  role,
			Parts: []domain.Part{{Text: msg.Content}},
		})
	}
	return contents
}

func deriveTitle(text string) string {
	title := strings.TrimSpace(text)
	if idx := strings.IndexAny(title, "\r\n"); idx >= 0 {
		title = title[:idx]
	}
	runes := []rune(title)
	if len(runes) > conversationTitleLimit {
		title = string(runes[:conversationTitleLimit]) + "..."
	}
	return title
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"compass-llm/internal/domain"
	"compass-llm/internal/llm"
)

type mockConversationRepo struct {
	items      map[string]domain.Conversation
	createErr  error
	lastTitle  string
	titleCalls int
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{items: make(map[string]domain.Conversation)}
}

func (m *mockConversationRepo) Create(_ context.Context, conv domain.Conversation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.items[conv.ID] = conv
	return nil
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	conv, ok := m.items[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return conv, nil
}

func (m *mockConversationRepo) ListByUserID(_ context.Context, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for _, conv := range m.items {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (m *mockConversationRepo) UpdateTitle(_ context.Context, id, title string) error {
	m.titleCalls++
	m.lastTitle = title
	conv := m.items[id]
	conv.Title = title
	m.items[id] = conv
	return nil
}

func (m *mockConversationRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockGuidanceMessageRepo struct {
	created   []domain.Message
	createErr error
}

func (m *mockGuidanceMessageRepo) Create(_ context.Context, message domain.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, message)
	return nil
}

func (m *mockGuidanceMessageRepo) ListByConversationID(_ context.Context, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range m.created {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func newGuidanceFixture(provider *llm.MockProvider) (*GuidanceService, *mockConversationRepo, *mockGuidanceMessageRepo) {
	convRepo := newMockConversationRepo()
	msgRepo := &mockGuidanceMessageRepo{}
	sessions := NewSessionService(provider, 0.7, nil)
	exchange := NewExchangeService(provider, nil)
	svc := NewGuidanceService(sessions, exchange, convRepo, msgRepo, nil)
	return svc, convRepo, msgRepo
}

func TestGuidanceStartConversation(t *testing.T) {
	provider := &llm.MockProvider{}
	svc, convRepo, _ := newGuidanceFixture(provider)

	conv, err := svc.StartConversation(context.Background(), "u1", "fr")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if conv.UserID != "u1" || conv.Language != "fr" {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	if _, ok := convRepo.items[conv.ID]; !ok {
		t.Fatalf("expected conversation persisted")
	}
	if provider.ValidateCalls != 1 {
		t.Fatalf("expected 1 construction call, got %d", provider.ValidateCalls)
	}
}

func TestGuidanceStartConversation_ConstructionFailureLeavesNoRow(t *testing.T) {
	provider := &llm.MockProvider{
		ValidateErr: fmt.Errorf("%w: down", domain.ErrProviderUnavailable),
	}
	svc, convRepo, _ := newGuidanceFixture(provider)

	_, err := svc.StartConversation(context.Background(), "u1", "en")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if len(convRepo.items) != 0 {
		t.Fatalf("expected no conversation persisted")
	}
}

func TestGuidanceSendTurn_RejectsEmptyTurn(t *testing.T) {
	provider := &llm.MockProvider{}
	svc, _, _ := newGuidanceFixture(provider)

	cases := []domain.Turn{
		{},
		{Text: "   "},
	}
	for i, turn := range cases {
		if _, _, err := svc.SendTurn(context.Background(), "u1", "c1", turn); !errors.Is(err, domain.ErrEmptyTurn) {
			t.Fatalf("case %d: expected ErrEmptyTurn, got %v", i, err)
		}
	}

	// Adjunto sin texto si es un turno valido; debe fallar por conversacion, no por turno.
	turn := domain.Turn{Attachment: &domain.InlineData{Data: "x", MimeType: "image/png"}}
	if _, _, err := svc.SendTurn(context.Background(), "u1", "c1", turn); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for attachment-only turn, got %v", err)
	}
}

func TestGuidanceSendTurn_OwnershipChecks(t *testing.T) {
	provider := &llm.MockProvider{Result: &llm.GenerateResult{Text: "hi"}}
	svc, _, _ := newGuidanceFixture(provider)

	conv, err := svc.StartConversation(context.Background(), "u1", "en")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, _, err := svc.SendTurn(context.Background(), "intruder", conv.ID, domain.Turn{Text: "hi"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if _, _, err := svc.SendTurn(context.Background(), "u1", "missing", domain.Turn{Text: "hi"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing conversation, got %v", err)
	}
}

func TestGuidanceSendTurn_PersistsBothMessages(t *testing.T) {
	provider := &llm.MockProvider{Result: &llm.GenerateResult{Text: "consider a bootcamp"}}
	svc, convRepo, msgRepo := newGuidanceFixture(provider)

	conv, err := svc.StartConversation(context.Background(), "u1", "en")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	turn := domain.Turn{
		Text:       "how do I switch careers?",
		Attachment: &domain.InlineData{Data: "cv-bytes", MimeType: "application/pdf"},
	}
	userMsg, assistantMsg, err := svc.SendTurn(context.Background(), "u1", conv.ID, turn)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(msgRepo.created) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgRepo.created))
	}
	if userMsg.Role != domain.RoleUser || userMsg.Content != turn.Text {
		t.Fatalf("unexpected user message %+v", userMsg)
	}
	if userMsg.AttachmentMime != "application/pdf" {
		t.Fatalf("expected attachment mime echo, got %q", userMsg.AttachmentMime)
	}
	if assistantMsg.Role != domain.RoleAssistant || assistantMsg.Content != "consider a bootcamp" {
		t.Fatalf("unexpected assistant message %+v", assistantMsg)
	}
	if !assistantMsg.CreatedAt.After(userMsg.CreatedAt) {
		t.Fatalf("expected assistant message ordered after user message")
	}

	if convRepo.titleCalls != 1 || !strings.HasPrefix(convRepo.lastTitle, "how do I switch careers?") {
		t.Fatalf("expected title derived from first turn, got %q", convRepo.lastTitle)
	}
}

func TestGuidanceSendTurn_ExchangeFailureStillProducesAssistantTurn(t *testing.T) {
	provider := &llm.MockProvider{GenerateErr: errors.New("socket closed")}
	svc, _, msgRepo := newGuidanceFixture(provider)

	conv, err := svc.StartConversation(context.Background(), "u1", "en")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	_, assistantMsg, err := svc.SendTurn(context.Background(), "u1", conv.ID, domain.Turn{Text: "hello"})
	if err != nil {
		t.Fatalf("expected exchange failure absorbed, got %v", err)
	}
	if assistantMsg.Content != FallbackReplyText {
		t.Fatalf("expected fallback text, got %q", assistantMsg.Content)
	}
	if len(msgRepo.created) != 2 {
		t.Fatalf("expected log to stay consistent, got %d messages", len(msgRepo.created))
	}
}

func TestGuidanceSendTurn_RebuildsSessionAfterRestart(t *testing.T) {
	provider := &llm.MockProvider{Result: &llm.GenerateResult{Text: "ok"}}
	svc, convRepo, msgRepo := newGuidanceFixture(provider)

	// Conversacion persistida de un proceso anterior: sin sesion viva.
	convRepo.items["c1"] = domain.Conversation{ID: "c1", UserID: "u1", Language: "es"}
	msgRepo.created = []domain.Message{
		{ID: "m1", ConversationID: "c1", UserID: "u1", Role: domain.RoleUser, Content: "hola"},
		{ID: "m2", ConversationID: "c1", UserID: "u1", Role: domain.RoleAssistant, Content: "buenas"},
	}

	_, _, err := svc.SendTurn(context.Background(), "u1", "c1", domain.Turn{Text: "sigo aqui"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if provider.ValidateCalls != 1 {
		t.Fatalf("expected session rebuilt once, got %d construction calls", provider.ValidateCalls)
	}

	// Contexto enviado: 2 mensajes reconstruidos + turno nuevo.
	if len(provider.LastContents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(provider.LastContents))
	}
	if provider.LastContents[0].Role != domain.RoleUser || provider.LastContents[1].Role != domain.RoleModel {
		t.Fatalf("unexpected rebuilt roles %+v", provider.LastContents[:2])
	}

	// El siguiente turno reutiliza la sesion reconstruida.
	_, _, err = svc.SendTurn(context.Background(), "u1", "c1", domain.Turn{Text: "otra"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if provider.ValidateCalls != 1 {
		t.Fatalf("expected no extra construction call, got %d", provider.ValidateCalls)
	}
}

func TestGuidanceSendTurn_RetriesConstructionOnNextTurn(t *testing.T) {
	provider := &llm.MockProvider{
		ValidateErr: fmt.Errorf("%w: down", domain.ErrProviderUnavailable),
		Result:      &llm.GenerateResult{Text: "ok"},
	}
	svc, convRepo, _ := newGuidanceFixture(provider)
	convRepo.items["c1"] = domain.Conversation{ID: "c1", UserID: "u1", Language: "en"}

	if _, _, err := svc.SendTurn(context.Background(), "u1", "c1", domain.Turn{Text: "hi"}); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected construction failure surfaced, got %v", err)
	}

	// Proveedor recuperado: la proxima accion del usuario reintenta la construccion.
	provider.ValidateErr = nil
	if _, _, err := svc.SendTurn(context.Background(), "u1", "c1", domain.Turn{Text: "hi again"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if provider.ValidateCalls != 2 {
		t.Fatalf("expected 2 construction attempts, got %d", provider.ValidateCalls)
	}
}

func TestGuidanceDeleteConversation(t *testing.T) {
	provider := &llm.MockProvider{Result: &llm.GenerateResult{Text: "ok"}}
	svc, convRepo, _ := newGuidanceFixture(provider)

	conv, err := svc.StartConversation(context.Background(), "u1", "en")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := svc.DeleteConversation(context.Background(), "u1", conv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := convRepo.items[conv.ID]; ok {
		t.Fatalf("expected conversation removed")
	}
	if err := svc.DeleteConversation(context.Background(), "u1", conv.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

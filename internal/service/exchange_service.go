package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"compass-llm/internal/domain"
	"compass-llm/internal/llm"
)

// FallbackReplyText es el unico texto que ve el usuario ante cualquier fallo
// de intercambio. Continuidad conversacional antes que detalle de error.
const FallbackReplyText = "Connection interrupted. Please retry."

// ExchangeService traduce un Turn a la peticion del proveedor sobre una sesion
// existente y normaliza la salida cruda en una Reply. Nunca deja escapar un
// error del proveedor: todo fallo colapsa en la Reply de fallback, con el
// error real en Reply.Err como canal diagnostico.
type ExchangeService struct {
	provider llm.Provider
	logger   *zap.Logger
}

var ErrExchangeServiceNotConfigured = errors.New("exchange service not configured")

func NewExchangeService(provider llm.Provider, logger *zap.Logger) *ExchangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeService{provider: provider, logger: logger}
}

// Send aplica un turno sobre la sesion y devuelve siempre una Reply definida.
// Precondicion del caller: turn con texto o adjunto, y un solo Send en vuelo
// por sesion (el contexto del proveedor es orden-dependiente).
func (s *ExchangeService) Send(ctx context.Context, session *domain.ConversationSession, turn domain.Turn) domain.Reply {
	if s == nil || s.provider == nil || session == nil {
		return domain.Reply{Text: FallbackReplyText, Err: ErrExchangeServiceNotConfigured}
	}

	userContent := domain.Content{Role: domain.RoleUser, Parts: buildParts(turn)}

	contents := make([]domain.Content, 0, len(session.History)+1)
	contents = append(contents, session.History...)
	contents = append(contents, userContent)

	result, err := s.provider.GenerateContent(ctx, session.Persona, session.Temperature, contents)
	if err != nil {
		s.logger.Warn("exchange failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return domain.Reply{Text: FallbackReplyText, Err: err}
	}

	// Proveedor sin texto -> cadena vacia, nunca nil.
	text := ""
	if result != nil {
		text = result.Text
	}

	var citations []domain.Citation
	if result != nil {
		citations = filterCitations(result.Chunks)
	}
	combined := text
	if block := formatCitationBlock(citations); block != "" {
		combined = text + "\n\n" + block
	}

	// El contexto acumula la respuesta del modelo sin el bloque de fuentes:
	// las citas son decoracion para el caller, no parte de la conversacion.
	session.History = append(session.History, userContent, domain.Content{
		Role:  domain.RoleModel,
		Parts: []domain.Part{{Text: text}},
	})

	return domain.Reply{Text: combined, Citations: citations}
}

// buildParts arma la lista ordenada de partes: texto (solo si no vacio) y
// luego el adjunto (solo si presente). MIME y payload pasan sin validar.
func buildParts(turn domain.Turn) []domain.Part {
	var parts []domain.Part
	if turn.Text != "" {
		parts = append(parts, domain.Part{Text: turn.Text})
	}
	if turn.Attachment != nil {
		parts = append(parts, domain.Part{InlineData: &domain.InlineData{
			MimeType: turn.Attachment.MimeType,
			Data:     turn.Attachment.Data,
		}})
	}
	return parts
}

// filterCitations descarta en silencio los chunks sin titulo o sin URI.
func filterCitations(chunks []llm.GroundingChunk) []domain.Citation {
	var out []domain.Citation
	for _, c := range chunks {
		if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.URI) == "" {
			continue
		}
		out = append(out, domain.Citation{Title: c.Title, URI: c.URI})
	}
	return out
}

// formatCitationBlock arma el bloque "Verified Sources"; vacio si no hay citas.
func formatCitationBlock(citations []domain.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Verified Sources:")
	for _, c := range citations {
		sb.WriteString("\n- [")
		sb.WriteString(c.Title)
		sb.WriteString("](")
		sb.WriteString(c.URI)
		sb.WriteString(")")
	}
	return sb.String()
}

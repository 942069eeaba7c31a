package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"compass-llm/internal/domain"
)

// Provider define el contrato contra el servicio generativo externo.
type Provider interface {
	// ValidateModel es la llamada de construccion de sesion: valida credencial
	// y modelo contra el proveedor. Exactamente una llamada por sesion creada.
	ValidateModel(ctx context.Context) error
	// GenerateContent envia el contexto conversacional completo y devuelve el
	// texto primario mas los grounding chunks del primer candidato.
	GenerateContent(ctx context.Context, system string, temperature float64, contents []domain.Content) (*GenerateResult, error)
}

// GroundingChunk es una fuente cruda del proveedor; puede venir incompleta.
type GroundingChunk struct {
	Title string
	URI   string
}

// GenerateResult es la respuesta cruda ya decodificada de un envio.
type GenerateResult struct {
	Text   string
	Chunks []GroundingChunk
}

// GeminiClient implementa Provider contra la API REST de Gemini.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	rest    *resty.Client
	logger  *zap.Logger
}

// NewGeminiClient construye el cliente. La credencial se lee una sola vez aca;
// su ausencia no falla hasta la primera construccion de sesion (fallo lazy).
func NewGeminiClient(baseURL, apiKey, model string, logger *zap.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(60 * time.Second)
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		rest:    rest,
		logger:  logger,
	}
}

func (c *GeminiClient) ValidateModel(ctx context.Context) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return fmt.Errorf("%w: credential missing", domain.ErrConfiguration)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		Get("/models/" + c.model)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	switch code := resp.StatusCode(); {
	case code == 400 || code == 401 || code == 403:
		c.logger.Warn("provider rejected credential", zap.Int("status", code))
		return fmt.Errorf("%w: status=%d", domain.ErrConfiguration, code)
	case code >= 400:
		return fmt.Errorf("%w: status=%d", domain.ErrProviderUnavailable, code)
	}
	return nil
}

func (c *GeminiClient) GenerateContent(ctx context.Context, system string, temperature float64, contents []domain.Content) (*GenerateResult, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("%w: credential missing", domain.ErrConfiguration)
	}

	reqBody := generateRequest{
		Contents:         contents,
		GenerationConfig: &generationConfig{Temperature: temperature},
	}
	if strings.TrimSpace(system) != "" {
		reqBody.SystemInstruction = &domain.Content{Parts: []domain.Part{{Text: system}}}
	}

	var out generateResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&out).
		Post("/models/" + c.model + ":generateContent")
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp.StatusCode() >= 400 {
		c.logger.Warn("provider error response",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("generate content: status=%d", resp.StatusCode())
	}

	result := &GenerateResult{}
	// Solo se lee candidates[0]; candidatos extra se ignoran.
	if len(out.Candidates) == 0 {
		return result, nil
	}
	cand := out.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	result.Text = sb.String()

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			result.Chunks = append(result.Chunks, GroundingChunk{
				Title: chunk.Web.Title,
				URI:   chunk.Web.URI,
			})
		}
	}
	return result, nil
}

type generateRequest struct {
	Contents          []domain.Content  `json:"contents"`
	SystemInstruction *domain.Content   `json:"system_instruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

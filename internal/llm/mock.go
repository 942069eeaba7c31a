package llm

import (
	"context"

	"compass-llm/internal/domain"
)

// MockProvider permite tests sin llamar al proveedor real.
type MockProvider struct {
	ValidateErr   error
	ValidateCalls int

	Result        *GenerateResult
	GenerateErr   error
	GenerateCalls int

	LastSystem      string
	LastTemperature float64
	LastContents    []domain.Content
}

func (m *MockProvider) ValidateModel(ctx context.Context) error {
	m.ValidateCalls++
	return m.ValidateErr
}

func (m *MockProvider) GenerateContent(ctx context.Context, system string, temperature float64, contents []domain.Content) (*GenerateResult, error) {
	m.GenerateCalls++
	m.LastSystem = system
	m.LastTemperature = temperature
	m.LastContents = contents
	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}
	if m.Result == nil {
		return &GenerateResult{}, nil
	}
	return m.Result, nil
}

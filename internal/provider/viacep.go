package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confiabar/confiabar/internal/domain"
)

// ViaCEP resolves Brazilian postal codes to street addresses.
type ViaCEP struct {
	client  *Client
	baseURL string
}

// NewViaCEP creates the ViaCEP provider.
func NewViaCEP(client *Client, baseURL string) *ViaCEP {
	if baseURL == "" {
		baseURL = "https://viacep.com.br/ws"
	}
	return &ViaCEP{client: client, baseURL: baseURL}
}

type viaCEPResponse struct {
	Erro       bool   `json:"erro"`
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
}

// LookupCEP resolves an 8-digit postal code. ViaCEP answers unknown
// codes with HTTP 200 and an "erro" flag, which maps to ErrCEPNotFound.
func (p *ViaCEP) LookupCEP(ctx context.Context, cep string) (*domain.CEPResult, error) {
	body, err := p.client.get(ctx, domain.ProviderViaCEP, fmt.Sprintf("%s/%s/json", p.baseURL, cep))
	if err != nil {
		return nil, err
	}

	var resp viaCEPResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Provider: domain.ProviderViaCEP, Message: "malformed response: " + err.Error()}
	}
	if resp.Erro {
		return nil, ErrCEPNotFound
	}

	return &domain.CEPResult{
		Zip:      resp.CEP,
		Street:   resp.Logradouro,
		District: resp.Bairro,
		City:     resp.Localidade,
		State:    resp.UF,
	}, nil
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confiabar/confiabar/internal/domain"
)

// BrasilAPI queries the BrasilAPI public CNPJ endpoint. Free and
// unrestricted, so it goes first in the default cascade order.
type BrasilAPI struct {
	client  *Client
	baseURL string
}

// NewBrasilAPI creates the BrasilAPI provider.
func NewBrasilAPI(client *Client, baseURL string) *BrasilAPI {
	if baseURL == "" {
		baseURL = "https://brasilapi.com.br/api/cnpj/v1"
	}
	return &BrasilAPI{client: client, baseURL: baseURL}
}

// ID returns the provider id used as lookup origin.
func (p *BrasilAPI) ID() string {
	return domain.ProviderBrasilAPI
}

// brasilAPIResponse is the provider-owned response shape. Only the
// fields the normalizer maps are declared.
type brasilAPIResponse struct {
	CNPJ                 string      `json:"cnpj"`
	RazaoSocial          string      `json:"razao_social"`
	NomeFantasia         string      `json:"nome_fantasia"`
	CapitalSocial        float64     `json:"capital_social"`
	DataInicioAtividade  string      `json:"data_inicio_atividade"`
	SituacaoCadastral    string      `json:"descricao_situacao_cadastral"`
	Logradouro           string      `json:"logradouro"`
	Numero               string      `json:"numero"`
	Complemento          string      `json:"complemento"`
	Bairro               string      `json:"bairro"`
	Municipio            string      `json:"municipio"`
	UF                   string      `json:"uf"`
	CEP                  string      `json:"cep"`
	CNAEFiscal           json.Number `json:"cnae_fiscal"`
	CNAEFiscalDescricao  string      `json:"cnae_fiscal_descricao"`
	DDDTelefone1         string      `json:"ddd_telefone_1"`
	Email                string      `json:"email"`
}

// Fetch queries the provider and normalizes the response.
func (p *BrasilAPI) Fetch(ctx context.Context, identifier string) (*domain.CanonicalRecord, error) {
	body, err := p.client.get(ctx, p.ID(), fmt.Sprintf("%s/%s", p.baseURL, identifier))
	if err != nil {
		return nil, err
	}

	var resp brasilAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Provider: p.ID(), Message: "malformed response: " + err.Error()}
	}

	record := &domain.CanonicalRecord{
		Identifier: identifier,
		TradeName:  resp.NomeFantasia,
		LegalName:  resp.RazaoSocial,
		Equity:     resp.CapitalSocial,
		Founded:    parseProviderDate(resp.DataInicioAtividade),
		Status:     resp.SituacaoCadastral,
		Address: domain.Address{
			Street:     resp.Logradouro,
			Number:     resp.Numero,
			Complement: resp.Complemento,
			District:   resp.Bairro,
			City:       resp.Municipio,
			State:      resp.UF,
			Zip:        resp.CEP,
		},
		Activity: domain.Activity{
			Code: resp.CNAEFiscal.String(),
			Text: resp.CNAEFiscalDescricao,
		},
		Phone:      resp.DDDTelefone1,
		Email:      resp.Email,
		RawPayload: json.RawMessage(body),
	}
	if record.TradeName == "" {
		record.TradeName = resp.RazaoSocial
	}
	if record.Activity.Code == "0" {
		record.Activity.Code = ""
	}

	return record, nil
}

// parseProviderDate accepts the two date layouts seen across providers:
// ISO (BrasilAPI) and DD/MM/YYYY (ReceitaWS). Unparseable input yields
// the zero time, which scoring treats as unknown tenure.
func parseProviderDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

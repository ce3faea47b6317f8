package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/confiabar/confiabar/internal/domain"
)

// ReceitaWS queries the ReceitaWS CNPJ endpoint. Used as the fallback
// in the default cascade because its free tier is rate limited.
type ReceitaWS struct {
	client  *Client
	baseURL string
}

// NewReceitaWS creates the ReceitaWS provider.
func NewReceitaWS(client *Client, baseURL string) *ReceitaWS {
	if baseURL == "" {
		baseURL = "https://receitaws.com.br/v1/cnpj"
	}
	return &ReceitaWS{client: client, baseURL: baseURL}
}

// ID returns the provider id used as lookup origin.
func (p *ReceitaWS) ID() string {
	return domain.ProviderReceitaWS
}

type receitaWSResponse struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	Nome              string `json:"nome"`
	Fantasia          string `json:"fantasia"`
	Abertura          string `json:"abertura"`
	Situacao          string `json:"situacao"`
	CapitalSocial     string `json:"capital_social"`
	Logradouro        string `json:"logradouro"`
	Numero            string `json:"numero"`
	Complemento       string `json:"complemento"`
	Bairro            string `json:"bairro"`
	Municipio         string `json:"municipio"`
	UF                string `json:"uf"`
	CEP               string `json:"cep"`
	AtividadePrincipal []struct {
		Code string `json:"code"`
		Text string `json:"text"`
	} `json:"atividade_principal"`
	Telefone string `json:"telefone"`
	Email    string `json:"email"`
}

// Fetch queries the provider and normalizes the response. ReceitaWS
// reports business errors with HTTP 200 and status "ERROR"; those
// surface as *ProviderError.
func (p *ReceitaWS) Fetch(ctx context.Context, identifier string) (*domain.CanonicalRecord, error) {
	body, err := p.client.get(ctx, p.ID(), fmt.Sprintf("%s/%s", p.baseURL, identifier))
	if err != nil {
		return nil, err
	}

	var resp receitaWSResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Provider: p.ID(), Message: "malformed response: " + err.Error()}
	}
	if strings.EqualFold(resp.Status, "ERROR") {
		msg := resp.Message
		if msg == "" {
			msg = "provider reported an error"
		}
		return nil, &ProviderError{Provider: p.ID(), Message: msg}
	}

	record := &domain.CanonicalRecord{
		Identifier: identifier,
		TradeName:  resp.Fantasia,
		LegalName:  resp.Nome,
		Equity:     parseBrazilianMoney(resp.CapitalSocial),
		Founded:    parseProviderDate(resp.Abertura),
		Status:     resp.Situacao,
		Address: domain.Address{
			Street:     resp.Logradouro,
			Number:     resp.Numero,
			Complement: resp.Complemento,
			District:   resp.Bairro,
			City:       resp.Municipio,
			State:      resp.UF,
			Zip:        resp.CEP,
		},
		Phone:      resp.Telefone,
		Email:      resp.Email,
		RawPayload: json.RawMessage(body),
	}
	if len(resp.AtividadePrincipal) > 0 {
		record.Activity = domain.Activity{
			Code: resp.AtividadePrincipal[0].Code,
			Text: resp.AtividadePrincipal[0].Text,
		}
	}
	if record.TradeName == "" {
		record.TradeName = resp.Nome
	}

	return record, nil
}

// parseBrazilianMoney converts a string like "1.234,56" to a float.
// Thousand separators are dots and the decimal separator is a comma.
// Unparseable input yields zero.
func parseBrazilianMoney(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

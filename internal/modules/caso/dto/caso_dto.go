package dto

import (
	"time"

	"github.com/google/uuid"

	"perito.app/casetrack/internal/entity"
	evidenciaDto "perito.app/casetrack/internal/modules/evidencia/dto"
	commonDto "perito.app/casetrack/pkg/dto"
)

type ContextoRequest struct {
	TipoCaso      string `json:"tipoCaso" binding:"required"`
	OrigemDemanda string `json:"origemDemanda" binding:"required"`
	Descricao     string `json:"descricao" binding:"required"`
}

type ContextoPatch struct {
	TipoCaso      *string `json:"tipoCaso"`
	OrigemDemanda *string `json:"origemDemanda"`
	Descricao     *string `json:"descricao"`
}

type CustodiaRequest struct {
	DataColeta        *string `json:"dataColeta"`
	ResponsavelColeta *string `json:"responsavelColeta"`
}

type LocalizacaoRequest struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	EnderecoCompleto *string `json:"enderecoCompleto"`
}

type HistoryEntryRequest struct {
	Data          *string `json:"data"`
	Justificativa string  `json:"justificativa" binding:"required"`
	Substatus     *string `json:"substatus"`
	Responsavel   *string `json:"responsavel"`
}

// FlatLocation is the form-style lat/lng/enderecoCompleto accepted next to
// the nested localizacao object.
type FlatLocation struct {
	Lat              *float64 `json:"lat"`
	Lng              *float64 `json:"lng"`
	EnderecoCompleto *string  `json:"enderecoCompleto"`
}

type CreateCasoRequest struct {
	NumeroCaso     string              `json:"numeroCaso" binding:"required"`
	Titulo         string              `json:"titulo" binding:"required"`
	DataAbertura   string              `json:"dataAbertura" binding:"required"`
	Responsavel    *string             `json:"responsavel"`
	Status         string              `json:"status" binding:"required,oneof='Em andamento' Finalizado Arquivado"`
	Contexto       ContextoRequest     `json:"contexto"`
	DadosIndividuo *entity.Subject     `json:"dadosIndividuo"`
	CadeiaCustodia *CustodiaRequest    `json:"cadeiaCustodia"`
	Localizacao    *LocalizacaoRequest `json:"localizacao"`
	FlatLocation
}

type UpdateCasoRequest struct {
	NumeroCaso     *string               `json:"numeroCaso"`
	Titulo         *string               `json:"titulo"`
	DataAbertura   *string               `json:"dataAbertura"`
	Responsavel    *string               `json:"responsavel"`
	Status         *string               `json:"status" binding:"omitempty,oneof='Em andamento' Finalizado Arquivado"`
	Contexto       *ContextoPatch        `json:"contexto"`
	DadosIndividuo *entity.Subject       `json:"dadosIndividuo"`
	CadeiaCustodia *CustodiaRequest      `json:"cadeiaCustodia"`
	Localizacao    *LocalizacaoRequest   `json:"localizacao"`
	Historico      []HistoryEntryRequest `json:"historico" binding:"omitempty,dive"`
	FlatLocation
}

type ListCasosQuery struct {
	Status      string `form:"status"`
	Responsavel string `form:"responsavel"`
	Search      string `form:"search"`
}

type CasoResponse struct {
	ID             uuid.UUID             `json:"_id"`
	NumeroCaso     string                `json:"numeroCaso"`
	Titulo         string                `json:"titulo"`
	DataAbertura   time.Time             `json:"dataAbertura"`
	Responsavel    commonDto.UserSummary `json:"responsavel"`
	Status         string                `json:"status"`
	Contexto       entity.CaseContext    `json:"contexto"`
	DadosIndividuo entity.Subject        `json:"dadosIndividuo"`
	CadeiaCustodia entity.Custody        `json:"cadeiaCustodia"`
	Historico      []entity.HistoryEntry `json:"historico"`
	Localizacao    *entity.Location      `json:"localizacao,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func NewCasoResponse(c *entity.Case, responsavelName string) CasoResponse {
	historico := c.Historico
	if historico == nil {
		historico = []entity.HistoryEntry{}
	}
	return CasoResponse{
		ID:             c.ID,
		NumeroCaso:     c.NumeroCaso,
		Titulo:         c.Titulo,
		DataAbertura:   c.DataAbertura,
		Responsavel:    commonDto.UserSummary{ID: c.ResponsavelID, Username: responsavelName},
		Status:         c.Status,
		Contexto:       c.Contexto,
		DadosIndividuo: c.Individuo,
		CadeiaCustodia: c.Custodia,
		Historico:      historico,
		Localizacao:    c.Localizacao,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type CasoDetailResponse struct {
	Caso       CasoResponse                    `json:"caso"`
	Evidencias []evidenciaDto.EvidenceResponse `json:"evidencias"`
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusEmAndamento = "Em andamento"
	StatusFinalizado  = "Finalizado"
	StatusArquivado   = "Arquivado"
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusEmAndamento, StatusFinalizado, StatusArquivado:
		return true
	}
	return false
}

type CaseContext struct {
	TipoCaso      string `gorm:"size:100;not null" bson:"tipoCaso" json:"tipoCaso"`
	OrigemDemanda string `gorm:"size:100;not null" bson:"origemDemanda" json:"origemDemanda"`
	Descricao     string `gorm:"type:text;not null" bson:"descricao" json:"descricao"`
}

type Subject struct {
	Nome            *string `gorm:"size:200" bson:"nome,omitempty" json:"nome,omitempty"`
	IdadeEstimado   *int    `bson:"idadeEstimado,omitempty" json:"idadeEstimado,omitempty"`
	Sexo            *string `gorm:"size:30" bson:"sexo,omitempty" json:"sexo,omitempty"`
	Etnia           *string `gorm:"size:50" bson:"etnia,omitempty" json:"etnia,omitempty"`
	Identificadores *string `gorm:"type:text" bson:"identificadores,omitempty" json:"identificadores,omitempty"`
	Antecedentes    *string `gorm:"type:text" bson:"antecedentes,omitempty" json:"antecedentes,omitempty"`
}

type Custody struct {
	DataColeta        *time.Time `bson:"dataColeta,omitempty" json:"dataColeta,omitempty"`
	ResponsavelColeta *string    `gorm:"size:200" bson:"responsavelColeta,omitempty" json:"responsavelColeta,omitempty"`
}

type HistoryEntry struct {
	Data          time.Time `bson:"data" json:"data"`
	Justificativa string    `bson:"justificativa" json:"justificativa"`
	Substatus     *string   `bson:"substatus,omitempty" json:"substatus,omitempty"`
	Responsavel   *string   `bson:"responsavel,omitempty" json:"responsavel,omitempty"`
}

type Location struct {
	Lat              float64 `bson:"lat" json:"lat"`
	Lng              float64 `bson:"lng" json:"lng"`
	EnderecoCompleto *string `bson:"enderecoCompleto,omitempty" json:"enderecoCompleto,omitempty"`
}

// Case is persisted as the "casos" table/collection.
type Case struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" bson:"_id" json:"_id"`
	NumeroCaso    string         `gorm:"size:100;uniqueIndex;not null" bson:"numeroCaso" json:"numeroCaso"`
	Titulo        string         `gorm:"size:255;not null" bson:"titulo" json:"titulo"`
	DataAbertura  time.Time      `gorm:"not null" bson:"dataAbertura" json:"dataAbertura"`
	ResponsavelID uuid.UUID      `gorm:"column:responsavel;type:uuid;not null;index" bson:"responsavel" json:"responsavel"`
	Status        string         `gorm:"size:30;not null;index" bson:"status" json:"status"`
	Contexto      CaseContext    `gorm:"embedded;embeddedPrefix:contexto_" bson:"contexto" json:"contexto"`
	Individuo     Subject        `gorm:"embedded;embeddedPrefix:individuo_" bson:"dadosIndividuo" json:"dadosIndividuo"`
	Custodia      Custody        `gorm:"embedded;embeddedPrefix:custodia_" bson:"cadeiaCustodia" json:"cadeiaCustodia"`
	Historico     []HistoryEntry `gorm:"serializer:json;type:jsonb;not null;default:'[]'" bson:"historico" json:"historico"`
	Localizacao   *Location      `gorm:"serializer:json;type:jsonb" bson:"localizacao,omitempty" json:"localizacao,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}

func (Case) TableName() string {
	return "casos"
}

func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Historico == nil {
		c.Historico = []HistoryEntry{}
	}
	return nil
}

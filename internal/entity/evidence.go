package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EvidenceFile is the inline payload; it is either fully set or empty.
type EvidenceFile struct {
	Data        []byte `gorm:"type:bytea" bson:"data,omitempty" json:"data,omitempty"`
	ContentType string `gorm:"size:255" bson:"contentType,omitempty" json:"contentType,omitempty"`
	Filename    string `gorm:"size:255" bson:"filename,omitempty" json:"filename,omitempty"`
}

func (f EvidenceFile) IsEmpty() bool {
	return f.Filename == "" && len(f.Data) == 0
}

// Evidence is persisted as the "evidencias" table/collection.
type Evidence struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" bson:"_id" json:"_id"`
	CasoID            uuid.UUID     `gorm:"column:caso;type:uuid;not null;index" bson:"caso" json:"caso"`
	Tipo              string        `gorm:"size:100;not null" bson:"tipo" json:"tipo"`
	Descricao         string        `gorm:"type:text;not null" bson:"descricao" json:"descricao"`
	Arquivo           *EvidenceFile `gorm:"embedded;embeddedPrefix:arquivo_" bson:"arquivo,omitempty" json:"arquivo,omitempty"`
	DataColeta        time.Time     `gorm:"not null" bson:"dataColeta" json:"dataColeta"`
	ResponsavelColeta *string       `gorm:"size:200" bson:"responsavelColeta,omitempty" json:"responsavelColeta,omitempty"`
	RegistradoPor     uuid.UUID     `gorm:"column:registrado_por;type:uuid;not null;index" bson:"registradoPor" json:"registradoPor"`
	CreatedAt         time.Time     `gorm:"autoCreateTime;index" bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}

func (Evidence) TableName() string {
	return "evidencias"
}

func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.DataColeta.IsZero() {
		e.DataColeta = time.Now()
	}
	return nil
}

func (e *Evidence) HasFile() bool {
	return e.Arquivo != nil && !e.Arquivo.IsEmpty()
}

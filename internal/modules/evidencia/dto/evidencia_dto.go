package dto

import (
	"time"

	"github.com/google/uuid"

	"perito.app/casetrack/internal/entity"
	commonDto "perito.app/casetrack/pkg/dto"
)

// EvidenceForm is bound from multipart/form-data; registradoPor is never
// read from the request. Required fields are checked by the service after
// the case reference resolves.
type EvidenceForm struct {
	CasoID            string `form:"casoId"`
	Caso              string `form:"caso"`
	Tipo              string `form:"tipo"`
	Descricao         string `form:"descricao"`
	DataColeta        string `form:"dataColeta"`
	ResponsavelColeta string `form:"responsavelColeta"`
}

// CaseRef accepts both the casoId form key and the legacy caso key.
func (f EvidenceForm) CaseRef() string {
	if f.CasoID != "" {
		return f.CasoID
	}
	return f.Caso
}

type EvidenceUpdateForm struct {
	Tipo              *string `form:"tipo"`
	Descricao         *string `form:"descricao"`
	DataColeta        *string `form:"dataColeta"`
	ResponsavelColeta *string `form:"responsavelColeta"`
}

// Upload is a fully buffered file taken from the multipart body.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

type FileResponse struct {
	Data        []byte `json:"data,omitempty"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
}

type EvidenceResponse struct {
	ID                uuid.UUID             `json:"_id"`
	Caso              uuid.UUID             `json:"caso"`
	Tipo              string                `json:"tipo"`
	Descricao         string                `json:"descricao"`
	Arquivo           *FileResponse         `json:"arquivo,omitempty"`
	DataColeta        time.Time             `json:"dataColeta"`
	ResponsavelColeta *string               `json:"responsavelColeta,omitempty"`
	RegistradoPor     commonDto.UserSummary `json:"registradoPor"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

func NewEvidenceResponse(e *entity.Evidence, registrantName string) EvidenceResponse {
	res := EvidenceResponse{
		ID:                e.ID,
		Caso:              e.CasoID,
		Tipo:              e.Tipo,
		Descricao:         e.Descricao,
		DataColeta:        e.DataColeta,
		ResponsavelColeta: e.ResponsavelColeta,
		RegistradoPor:     commonDto.UserSummary{ID: e.RegistradoPor, Username: registrantName},
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
	if e.HasFile() {
		res.Arquivo = &FileResponse{
			Data:        e.Arquivo.Data,
			ContentType: e.Arquivo.ContentType,
			Filename:    e.Arquivo.Filename,
		}
	}
	return res
}

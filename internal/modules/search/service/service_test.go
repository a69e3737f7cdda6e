package search

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perito.app/casetrack/internal/entity"
)

func TestBuildCaseDocumentStripsMarkup(t *testing.T) {
	caso := &entity.Case{
		ID:            uuid.New(),
		NumeroCaso:    "2024-007",
		Titulo:        "Incêndio",
		Status:        entity.StatusFinalizado,
		ResponsavelID: uuid.New(),
		CreatedAt:     time.Unix(1700000000, 0),
		Contexto: entity.CaseContext{
			TipoCaso:      "Perícia",
			OrigemDemanda: "Delegacia",
			Descricao:     "<p>Local &amp; vestígios</p><script>alert(1)</script><br>coletados",
		},
	}

	doc := buildCaseDocument(bluemonday.StrictPolicy(), caso)

	assert.Equal(t, caso.ID.String(), doc.ID)
	assert.Equal(t, "Local & vestígios coletados", doc.Descricao)
	assert.Equal(t, caso.ResponsavelID.String(), doc.Responsavel)
	assert.Equal(t, int64(1700000000), doc.CreatedAt)
}

func TestDecodeHitIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	raw := []byte(`{"hits":[{"id":"` + a.String() + `"},{"id":"bogus"},{"id":"` + b.String() + `"}],"query":"x"}`)

	ids, err := decodeHitIDs(raw)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	_, err = decodeHitIDs([]byte("not json"))
	assert.Error(t, err)
}

func TestStatusFilter(t *testing.T) {
	assert.Equal(t, "", statusFilter(""))
	assert.Equal(t, `status = "Em andamento"`, statusFilter(entity.StatusEmAndamento))
}

package caso

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perito.app/casetrack/internal/entity"
	activity "perito.app/casetrack/internal/modules/activity/service"
	"perito.app/casetrack/internal/modules/caso/dto"
	"perito.app/casetrack/internal/testutil"
	"perito.app/casetrack/pkg/apperror"
	commonDto "perito.app/casetrack/pkg/dto"
)

func strPtr(s string) *string { return &s }

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[uuid.UUID]bool
	hits    []uuid.UUID
	err     error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: make(map[uuid.UUID]bool)}
}

func (f *fakeIndex) IndexCase(caso *entity.Case) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[caso.ID] = true
	return nil
}

func (f *fakeIndex) DeleteCase(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	return nil
}

func (f *fakeIndex) Search(string, string) ([]uuid.UUID, error) {
	return f.hits, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []activity.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event activity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc       CaseService
	cases     *testutil.CaseStore
	evidences *testutil.EvidenceStore
	index     *fakeIndex
	events    *recordingPublisher
	admin     commonDto.Actor
	perito    commonDto.Actor
	other     commonDto.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	users := testutil.NewUserStore()
	mk := func(name, role string) commonDto.Actor {
		u := &entity.User{ID: uuid.New(), Username: name, Email: name + "@example.com", Role: role}
		require.NoError(t, users.Create(ctx, u))
		return commonDto.Actor{ID: u.ID, Role: role}
	}

	f := &fixture{
		cases:     testutil.NewCaseStore(),
		evidences: testutil.NewEvidenceStore(),
		index:     newFakeIndex(),
		events:    &recordingPublisher{},
		admin:     mk("admin", entity.RoleAdmin),
		perito:    mk("perito1", entity.RolePerito),
		other:     mk("perito2", entity.RolePerito),
	}
	f.svc = NewCaseService(f.cases, f.evidences, users, f.index, f.events, nil)
	return f
}

func newCreateRequest(numero string) dto.CreateCasoRequest {
	return dto.CreateCasoRequest{
		NumeroCaso:   numero,
		Titulo:       "Identificação de ossada",
		DataAbertura: "2024-02-10",
		Status:       entity.StatusEmAndamento,
		Contexto: dto.ContextoRequest{
			TipoCaso:      "Identificação",
			OrigemDemanda: "Polícia Civil",
			Descricao:     "Ossada encontrada em área rural",
		},
	}
}

func TestCreateDefaultsResponsavelToCaller(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), f.perito, newCreateRequest("C-100"))
	require.NoError(t, err)

	assert.Equal(t, f.perito.ID, created.Responsavel.ID)
	assert.Equal(t, "perito1", created.Responsavel.Username)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), created.DataAbertura)
	assert.NotNil(t, created.Historico)
	assert.Empty(t, created.Historico)
	assert.Nil(t, created.Localizacao)
	assert.True(t, f.index.indexed[created.ID])
	assert.Equal(t, []string{activity.CasoCreated}, f.events.types())
}

func TestCreateResponsavelNomination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := newCreateRequest("C-200")
	req.Responsavel = strPtr(f.other.ID.String())
	created, err := f.svc.Create(ctx, f.admin, req)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, created.Responsavel.ID)

	req = newCreateRequest("C-201")
	req.Responsavel = strPtr(f.other.ID.String())
	_, err = f.svc.Create(ctx, f.perito, req)
	assert.Equal(t, http.StatusForbidden, apperror.MapErrorToStatus(err))

	req = newCreateRequest("C-202")
	req.Responsavel = strPtr(uuid.NewString())
	_, err = f.svc.Create(ctx, f.admin, req)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, MsgResponsavelNotFound, appErr.Message)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*dto.CreateCasoRequest)
	}{
		{"bad status", func(r *dto.CreateCasoRequest) { r.Status = "Aberto" }},
		{"bad opening date", func(r *dto.CreateCasoRequest) { r.DataAbertura = "10/02/2024" }},
		{"bad custody date", func(r *dto.CreateCasoRequest) {
			r.CadeiaCustodia = &dto.CustodiaRequest{DataColeta: strPtr("ontem")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newCreateRequest("C-300")
			tt.mutate(&req)
			_, err := f.svc.Create(context.Background(), f.perito, req)
			assert.ErrorIs(t, err, apperror.ErrBadRequest)
		})
	}
}

func TestCreateDuplicateNumeroCaso(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-400"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.other, newCreateRequest("C-400"))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, "numeroCaso", appErr.Fields["conflictField"])
}

func TestCreateAcceptsFlatLocation(t *testing.T) {
	f := newFixture(t)

	req := newCreateRequest("C-500")
	lat, lng := -8.05, -34.9
	req.FlatLocation = dto.FlatLocation{Lat: &lat, Lng: &lng, EnderecoCompleto: strPtr("Recife")}
	created, err := f.svc.Create(context.Background(), f.perito, req)
	require.NoError(t, err)

	require.NotNil(t, created.Localizacao)
	assert.Equal(t, lat, created.Localizacao.Lat)
	assert.Equal(t, lng, created.Localizacao.Lng)
	assert.Equal(t, "Recife", *created.Localizacao.EnderecoCompleto)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-600"))
	require.NoError(t, err)
	req := newCreateRequest("C-601")
	req.Status = entity.StatusFinalizado
	second, err := f.svc.Create(ctx, f.other, req)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, dto.ListCasosQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	byStatus, err := f.svc.List(ctx, dto.ListCasosQuery{Status: entity.StatusFinalizado})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, second.ID, byStatus[0].ID)

	byOwner, err := f.svc.List(ctx, dto.ListCasosQuery{Responsavel: f.perito.ID.String()})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, "perito1", byOwner[0].Responsavel.Username)

	_, err = f.svc.List(ctx, dto.ListCasosQuery{Responsavel: "nope"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestListSearchUsesIndexAndFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-700"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.perito, newCreateRequest("C-701"))
	require.NoError(t, err)

	f.index.hits = []uuid.UUID{first.ID}
	hits, err := f.svc.List(ctx, dto.ListCasosQuery{Search: "ossada"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, first.ID, hits[0].ID)

	f.index.hits = nil
	f.index.err = errors.New("meilisearch down")
	fallback, err := f.svc.List(ctx, dto.ListCasosQuery{Search: "C-701"})
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, "C-701", fallback[0].NumeroCaso)
}

func TestGetByIDIncludesEvidenceWithoutBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-800"))
	require.NoError(t, err)
	require.NoError(t, f.evidences.Create(ctx, &entity.Evidence{
		CasoID:        created.ID,
		Tipo:          "imagem",
		Descricao:     "foto",
		Arquivo:       &entity.EvidenceFile{Data: []byte("png"), ContentType: "image/png", Filename: "f.png"},
		RegistradoPor: f.other.ID,
	}))

	detail, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, detail.Caso.ID)
	require.Len(t, detail.Evidencias, 1)
	assert.Equal(t, "perito2", detail.Evidencias[0].RegistradoPor.Username)
	require.NotNil(t, detail.Evidencias[0].Arquivo)
	assert.Empty(t, detail.Evidencias[0].Arquivo.Data)

	_, err = f.svc.GetByID(ctx, uuid.New())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, MsgCasoNotFound, appErr.Message)
}

func TestUpdatePreservesHistoryAndAppendsBodyEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-900"))
	require.NoError(t, err)
	_, err = f.svc.AppendHistory(ctx, f.perito, created.ID, dto.HistoryEntryRequest{Justificativa: "Abertura"})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, f.perito, created.ID, dto.UpdateCasoRequest{
		Titulo: strPtr("Novo título"),
		Status: strPtr(entity.StatusFinalizado),
	})
	require.NoError(t, err)
	assert.Equal(t, "Novo título", updated.Titulo)
	assert.Equal(t, entity.StatusFinalizado, updated.Status)
	require.Len(t, updated.Historico, 1)
	assert.Equal(t, "Abertura", updated.Historico[0].Justificativa)

	updated, err = f.svc.Update(ctx, f.perito, created.ID, dto.UpdateCasoRequest{
		Historico: []dto.HistoryEntryRequest{{Justificativa: "Laudo emitido", Data: strPtr("2024-05-01")}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Historico, 2)
	assert.Equal(t, "Abertura", updated.Historico[0].Justificativa)
	assert.Equal(t, "Laudo emitido", updated.Historico[1].Justificativa)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), updated.Historico[1].Data)
	assert.Equal(t, "Novo título", updated.Titulo)
}

func TestUpdateMergesNestedSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := newCreateRequest("C-910")
	req.DadosIndividuo = &entity.Subject{Nome: strPtr("Desconhecido"), Sexo: strPtr("M")}
	created, err := f.svc.Create(ctx, f.perito, req)
	require.NoError(t, err)

	age := 40
	updated, err := f.svc.Update(ctx, f.perito, created.ID, dto.UpdateCasoRequest{
		DadosIndividuo: &entity.Subject{IdadeEstimado: &age},
		Contexto:       &dto.ContextoPatch{Descricao: strPtr("Descrição revisada")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Desconhecido", *updated.DadosIndividuo.Nome)
	assert.Equal(t, 40, *updated.DadosIndividuo.IdadeEstimado)
	assert.Equal(t, "Descrição revisada", updated.Contexto.Descricao)
	assert.Equal(t, "Identificação", updated.Contexto.TipoCaso)
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-920"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.perito, newCreateRequest("C-921"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.perito, uuid.New(), dto.UpdateCasoRequest{Titulo: strPtr("x")})
	assert.Equal(t, http.StatusNotFound, apperror.MapErrorToStatus(err))

	_, err = f.svc.Update(ctx, f.perito, a.ID, dto.UpdateCasoRequest{NumeroCaso: strPtr("C-921")})
	assert.Equal(t, http.StatusConflict, apperror.MapErrorToStatus(err))

	_, err = f.svc.Update(ctx, f.perito, a.ID, dto.UpdateCasoRequest{Responsavel: strPtr(f.other.ID.String())})
	assert.Equal(t, http.StatusForbidden, apperror.MapErrorToStatus(err))

	updated, err := f.svc.Update(ctx, f.admin, a.ID, dto.UpdateCasoRequest{Responsavel: strPtr(f.other.ID.String())})
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, updated.Responsavel.ID)
}

func TestUpdateBlankResponsavelKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.admin, newCreateRequest("C-925"))
	require.NoError(t, err)
	require.Equal(t, f.admin.ID, created.Responsavel.ID)

	for _, blank := range []string{"", "   "} {
		updated, err := f.svc.Update(ctx, f.perito, created.ID, dto.UpdateCasoRequest{
			Titulo:      strPtr("Novo título"),
			Responsavel: strPtr(blank),
		})
		require.NoError(t, err)
		assert.Equal(t, "Novo título", updated.Titulo)
		assert.Equal(t, f.admin.ID, updated.Responsavel.ID)
	}
}

func TestAppendHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-930"))
	require.NoError(t, err)

	updated, err := f.svc.AppendHistory(ctx, f.perito, created.ID, dto.HistoryEntryRequest{
		Justificativa: "Exame odontológico",
		Substatus:     strPtr("Em análise"),
	})
	require.NoError(t, err)
	require.Len(t, updated.Historico, 1)
	assert.Equal(t, "Em análise", *updated.Historico[0].Substatus)
	assert.False(t, updated.Historico[0].Data.IsZero())

	_, err = f.svc.AppendHistory(ctx, f.perito, created.ID, dto.HistoryEntryRequest{Justificativa: "  "})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = f.svc.AppendHistory(ctx, f.perito, uuid.New(), dto.HistoryEntryRequest{Justificativa: "x"})
	assert.Equal(t, http.StatusNotFound, apperror.MapErrorToStatus(err))
}

func TestDeleteDoesNotCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.perito, newCreateRequest("C-940"))
	require.NoError(t, err)
	require.NoError(t, f.evidences.Create(ctx, &entity.Evidence{
		CasoID: created.ID, Tipo: "texto", Descricao: "relato", RegistradoPor: f.perito.ID,
	}))

	require.NoError(t, f.svc.Delete(ctx, f.admin, created.ID))
	assert.False(t, f.index.indexed[created.ID])
	assert.Equal(t, 1, f.evidences.Count(created.ID))
	assert.Contains(t, f.events.types(), activity.CasoDeleted)

	err = f.svc.Delete(ctx, f.admin, created.ID)
	assert.Equal(t, http.StatusNotFound, apperror.MapErrorToStatus(err))
}

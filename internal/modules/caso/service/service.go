package caso

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"perito.app/casetrack/internal/entity"
	activity "perito.app/casetrack/internal/modules/activity/service"
	"perito.app/casetrack/internal/modules/caso/dto"
	"perito.app/casetrack/internal/modules/caso/repository"
	evidenciaDto "perito.app/casetrack/internal/modules/evidencia/dto"
	evidenciaRepo "perito.app/casetrack/internal/modules/evidencia/repository"
	search "perito.app/casetrack/internal/modules/search/service"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	"perito.app/casetrack/pkg/apperror"
	commonDto "perito.app/casetrack/pkg/dto"
)

const (
	MsgCasoNotFound        = "Caso não encontrado"
	MsgResponsavelNotFound = "Responsável não encontrado"
	MsgNumeroCasoConflict  = "Número de caso já está em uso"
	MsgInvalidDate         = "Data inválida"
	MsgReassignForbidden   = "Apenas administradores podem definir o responsável"
)

type CaseService interface {
	Create(ctx context.Context, actor commonDto.Actor, req dto.CreateCasoRequest) (*dto.CasoResponse, error)
	List(ctx context.Context, query dto.ListCasosQuery) ([]dto.CasoResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.CasoDetailResponse, error)
	Update(ctx context.Context, actor commonDto.Actor, id uuid.UUID, req dto.UpdateCasoRequest) (*dto.CasoResponse, error)
	AppendHistory(ctx context.Context, actor commonDto.Actor, id uuid.UUID, req dto.HistoryEntryRequest) (*dto.CasoResponse, error)
	Delete(ctx context.Context, actor commonDto.Actor, id uuid.UUID) error
}

type caseService struct {
	repo      repository.CaseRepository
	evidences evidenciaRepo.EvidenceRepository
	users     userRepo.UserRepository
	index     search.CaseIndex
	publisher activity.Publisher
	log       *zap.Logger
}

// NewCaseService accepts a nil index, in which case search falls back to the store.
func NewCaseService(
	repo repository.CaseRepository,
	evidences evidenciaRepo.EvidenceRepository,
	users userRepo.UserRepository,
	index search.CaseIndex,
	publisher activity.Publisher,
	log *zap.Logger,
) CaseService {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = activity.NewPublisher(nil, log)
	}
	return &caseService{
		repo:      repo,
		evidences: evidences,
		users:     users,
		index:     index,
		publisher: publisher,
		log:       log,
	}
}

func notFound() error {
	return apperror.NotFound(MsgCasoNotFound)
}

func invalidDate(field string) error {
	return apperror.BadRequest(MsgInvalidDate).With("field", field)
}

func mapWriteError(err error) error {
	var dup *apperror.DuplicateKeyError
	if errors.As(err, &dup) {
		return apperror.Conflict(MsgNumeroCasoConflict).With("conflictField", "numeroCaso")
	}
	return err
}

func parseOptionalDate(raw *string, field string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := commonDto.ParseDate(*raw)
	if err != nil {
		return nil, invalidDate(field)
	}
	return &t, nil
}

func (s *caseService) resolveResponsavel(ctx context.Context, actor commonDto.Actor, raw *string) (uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return actor.ID, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return uuid.Nil, apperror.BadRequest(MsgResponsavelNotFound).With("invalidId", *raw)
	}
	if id == actor.ID {
		return id, nil
	}
	if actor.Role != entity.RoleAdmin {
		return uuid.Nil, apperror.Forbidden(MsgReassignForbidden)
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return uuid.Nil, apperror.BadRequest(MsgResponsavelNotFound)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func buildHistoryEntry(req dto.HistoryEntryRequest) (entity.HistoryEntry, error) {
	justificativa := strings.TrimSpace(req.Justificativa)
	if justificativa == "" {
		return entity.HistoryEntry{}, apperror.BadRequest("Justificativa é obrigatória").
			With("requiredFields", []string{"justificativa"})
	}
	at, err := parseOptionalDate(req.Data, "data")
	if err != nil {
		return entity.HistoryEntry{}, err
	}
	entry := entity.HistoryEntry{
		Data:          time.Now(),
		Justificativa: justificativa,
		Substatus:     req.Substatus,
		Responsavel:   req.Responsavel,
	}
	if at != nil {
		entry.Data = *at
	}
	return entry, nil
}

func mergeLocation(current *entity.Location, nested *dto.LocalizacaoRequest, flat dto.FlatLocation) *entity.Location {
	if nested != nil {
		return &entity.Location{Lat: nested.Lat, Lng: nested.Lng, EnderecoCompleto: nested.EnderecoCompleto}
	}
	if flat.Lat == nil && flat.Lng == nil && flat.EnderecoCompleto == nil {
		return current
	}

	loc := entity.Location{}
	if current != nil {
		loc = *current
	}
	if flat.Lat != nil {
		loc.Lat = *flat.Lat
	}
	if flat.Lng != nil {
		loc.Lng = *flat.Lng
	}
	if flat.EnderecoCompleto != nil {
		loc.EnderecoCompleto = flat.EnderecoCompleto
	}
	return &loc
}

func mergeSubject(dst *entity.Subject, src *entity.Subject) {
	if src == nil {
		return
	}
	if src.Nome != nil {
		dst.Nome = src.Nome
	}
	if src.IdadeEstimado != nil {
		dst.IdadeEstimado = src.IdadeEstimado
	}
	if src.Sexo != nil {
		dst.Sexo = src.Sexo
	}
	if src.Etnia != nil {
		dst.Etnia = src.Etnia
	}
	if src.Identificadores != nil {
		dst.Identificadores = src.Identificadores
	}
	if src.Antecedentes != nil {
		dst.Antecedentes = src.Antecedentes
	}
}

func mergeCustody(dst *entity.Custody, src *dto.CustodiaRequest) error {
	if src == nil {
		return nil
	}
	at, err := parseOptionalDate(src.DataColeta, "cadeiaCustodia.dataColeta")
	if err != nil {
		return err
	}
	if at != nil {
		dst.DataColeta = at
	}
	if src.ResponsavelColeta != nil {
		dst.ResponsavelColeta = src.ResponsavelColeta
	}
	return nil
}

func (s *caseService) Create(ctx context.Context, actor commonDto.Actor, req dto.CreateCasoRequest) (*dto.CasoResponse, error) {
	if !entity.IsValidStatus(req.Status) {
		return nil, apperror.BadRequest("Status inválido")
	}
	opened, err := commonDto.ParseDate(req.DataAbertura)
	if err != nil {
		return nil, invalidDate("dataAbertura")
	}
	responsavel, err := s.resolveResponsavel(ctx, actor, req.Responsavel)
	if err != nil {
		return nil, err
	}

	caso := &entity.Case{
		NumeroCaso:    strings.TrimSpace(req.NumeroCaso),
		Titulo:        strings.TrimSpace(req.Titulo),
		DataAbertura:  opened,
		ResponsavelID: responsavel,
		Status:        req.Status,
		Contexto: entity.CaseContext{
			TipoCaso:      req.Contexto.TipoCaso,
			OrigemDemanda: req.Contexto.OrigemDemanda,
			Descricao:     req.Contexto.Descricao,
		},
		Historico:   []entity.HistoryEntry{},
		Localizacao: mergeLocation(nil, req.Localizacao, req.FlatLocation),
	}
	mergeSubject(&caso.Individuo, req.DadosIndividuo)
	if err := mergeCustody(&caso.Custodia, req.CadeiaCustodia); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, caso); err != nil {
		return nil, mapWriteError(err)
	}

	s.afterWrite(ctx, actor, activity.CasoCreated, caso)
	return s.toResponse(ctx, caso)
}

func (s *caseService) List(ctx context.Context, query dto.ListCasosQuery) ([]dto.CasoResponse, error) {
	filter := repository.CaseFilter{
		Status: query.Status,
		Search: strings.TrimSpace(query.Search),
	}
	if raw := strings.TrimSpace(query.Responsavel); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.BadRequest("ID inválido").With("invalidId", raw)
		}
		filter.ResponsavelID = &id
	}

	if filter.Search != "" && s.index != nil {
		ids, err := s.index.Search(filter.Search, filter.Status)
		if err != nil {
			s.log.Warn("case search index unavailable, falling back to store", zap.Error(err))
		} else {
			filter.IDs = ids
		}
	}

	casos, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	names, err := s.usernames(ctx, casos)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CasoResponse, 0, len(casos))
	for _, c := range casos {
		out = append(out, dto.NewCasoResponse(c, names[c.ResponsavelID]))
	}
	return out, nil
}

func (s *caseService) GetByID(ctx context.Context, id uuid.UUID) (*dto.CasoDetailResponse, error) {
	caso, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	evidences, err := s.evidences.FindByCaseID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := []uuid.UUID{caso.ResponsavelID}
	for _, e := range evidences {
		ids = append(ids, e.RegistradoPor)
	}
	names, err := s.users.FindUsernames(ctx, ids)
	if err != nil {
		return nil, err
	}

	detail := &dto.CasoDetailResponse{
		Caso:       dto.NewCasoResponse(caso, names[caso.ResponsavelID]),
		Evidencias: make([]evidenciaDto.EvidenceResponse, 0, len(evidences)),
	}
	for _, e := range evidences {
		detail.Evidencias = append(detail.Evidencias, evidenciaDto.NewEvidenceResponse(e, names[e.RegistradoPor]))
	}
	return detail, nil
}

func (s *caseService) Update(ctx context.Context, actor commonDto.Actor, id uuid.UUID, req dto.UpdateCasoRequest) (*dto.CasoResponse, error) {
	caso, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NumeroCaso != nil && strings.TrimSpace(*req.NumeroCaso) != "" {
		caso.NumeroCaso = strings.TrimSpace(*req.NumeroCaso)
	}
	if req.Titulo != nil && strings.TrimSpace(*req.Titulo) != "" {
		caso.Titulo = strings.TrimSpace(*req.Titulo)
	}
	if req.DataAbertura != nil {
		opened, err := commonDto.ParseDate(*req.DataAbertura)
		if err != nil {
			return nil, invalidDate("dataAbertura")
		}
		caso.DataAbertura = opened
	}
	// A blank responsavel keeps the current one.
	if req.Responsavel != nil && strings.TrimSpace(*req.Responsavel) != "" &&
		strings.TrimSpace(*req.Responsavel) != caso.ResponsavelID.String() {
		responsavel, err := s.resolveResponsavel(ctx, actor, req.Responsavel)
		if err != nil {
			return nil, err
		}
		caso.ResponsavelID = responsavel
	}
	if req.Status != nil {
		if !entity.IsValidStatus(*req.Status) {
			return nil, apperror.BadRequest("Status inválido")
		}
		caso.Status = *req.Status
	}
	if req.Contexto != nil {
		if v := req.Contexto.TipoCaso; v != nil && *v != "" {
			caso.Contexto.TipoCaso = *v
		}
		if v := req.Contexto.OrigemDemanda; v != nil && *v != "" {
			caso.Contexto.OrigemDemanda = *v
		}
		if v := req.Contexto.Descricao; v != nil && *v != "" {
			caso.Contexto.Descricao = *v
		}
	}
	mergeSubject(&caso.Individuo, req.DadosIndividuo)
	if err := mergeCustody(&caso.Custodia, req.CadeiaCustodia); err != nil {
		return nil, err
	}
	caso.Localizacao = mergeLocation(caso.Localizacao, req.Localizacao, req.FlatLocation)

	entries := make([]entity.HistoryEntry, 0, len(req.Historico))
	for _, h := range req.Historico {
		entry, err := buildHistoryEntry(h)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := s.repo.Update(ctx, caso); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notFound()
		}
		return nil, mapWriteError(err)
	}
	if len(entries) > 0 {
		if err := s.repo.AppendHistory(ctx, id, entries...); err != nil {
			return nil, err
		}
	}

	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, actor, activity.CasoUpdated, updated)
	return s.toResponse(ctx, updated)
}

func (s *caseService) AppendHistory(ctx context.Context, actor commonDto.Actor, id uuid.UUID, req dto.HistoryEntryRequest) (*dto.CasoResponse, error) {
	entry, err := buildHistoryEntry(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendHistory(ctx, id, entry); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notFound()
		}
		return nil, err
	}

	caso, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, actor, activity.CasoHistoryAdded, caso)
	return s.toResponse(ctx, caso)
}

// Delete removes only the case; evidence referencing it is left untouched.
func (s *caseService) Delete(ctx context.Context, actor commonDto.Actor, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return notFound()
		}
		return err
	}

	if s.index != nil {
		if err := s.index.DeleteCase(id); err != nil {
			s.log.Warn("failed to remove caso from search index", zap.String("id", id.String()), zap.Error(err))
		}
	}
	s.publisher.Publish(ctx, activity.Event{Type: activity.CasoDeleted, EntityID: id, CasoID: id, ActorID: actor.ID})
	return nil
}

func (s *caseService) find(ctx context.Context, id uuid.UUID) (*entity.Case, error) {
	caso, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notFound()
		}
		return nil, err
	}
	return caso, nil
}

func (s *caseService) afterWrite(ctx context.Context, actor commonDto.Actor, eventType string, caso *entity.Case) {
	if s.index != nil {
		if err := s.index.IndexCase(caso); err != nil {
			s.log.Warn("failed to index caso", zap.String("id", caso.ID.String()), zap.Error(err))
		}
	}
	s.publisher.Publish(ctx, activity.Event{Type: eventType, EntityID: caso.ID, CasoID: caso.ID, ActorID: actor.ID})
}

func (s *caseService) usernames(ctx context.Context, casos []*entity.Case) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(casos))
	for _, c := range casos {
		ids = append(ids, c.ResponsavelID)
	}
	return s.users.FindUsernames(ctx, ids)
}

func (s *caseService) toResponse(ctx context.Context, caso *entity.Case) (*dto.CasoResponse, error) {
	names, err := s.users.FindUsernames(ctx, []uuid.UUID{caso.ResponsavelID})
	if err != nil {
		return nil, err
	}
	res := dto.NewCasoResponse(caso, names[caso.ResponsavelID])
	return &res, nil
}

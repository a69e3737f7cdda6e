package evidencia

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"perito.app/casetrack/internal/entity"
	activity "perito.app/casetrack/internal/modules/activity/service"
	casoRepo "perito.app/casetrack/internal/modules/caso/repository"
	"perito.app/casetrack/internal/modules/evidencia/dto"
	"perito.app/casetrack/internal/modules/evidencia/repository"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	"perito.app/casetrack/pkg/apperror"
	commonDto "perito.app/casetrack/pkg/dto"
)

const (
	MsgInvalidCasoID     = "ID de caso inválido"
	MsgCasoNotFound      = "Caso não encontrado"
	MsgEvidenceNotFound  = "Evidência não encontrada"
	MsgFileNotFound      = "Arquivo não encontrado"
	MsgInvalidDataColeta = "Data de coleta inválida"
)

type EvidenceService interface {
	Create(ctx context.Context, actor commonDto.Actor, form dto.EvidenceForm, file *dto.Upload) (*dto.EvidenceResponse, error)
	ListByCase(ctx context.Context, casoID uuid.UUID) ([]dto.EvidenceResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.EvidenceResponse, error)
	DownloadFile(ctx context.Context, id uuid.UUID) (*dto.Upload, error)
	Update(ctx context.Context, actor commonDto.Actor, id uuid.UUID, form dto.EvidenceUpdateForm, file *dto.Upload) (*dto.EvidenceResponse, error)
	Delete(ctx context.Context, actor commonDto.Actor, id uuid.UUID) error
}

type evidenceService struct {
	repo      repository.EvidenceRepository
	cases     casoRepo.CaseRepository
	users     userRepo.UserRepository
	publisher activity.Publisher
	log       *zap.Logger
}

func NewEvidenceService(
	repo repository.EvidenceRepository,
	cases casoRepo.CaseRepository,
	users userRepo.UserRepository,
	publisher activity.Publisher,
	log *zap.Logger,
) EvidenceService {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = activity.NewPublisher(nil, log)
	}
	return &evidenceService{
		repo:      repo,
		cases:     cases,
		users:     users,
		publisher: publisher,
		log:       log,
	}
}

func toFile(upload *dto.Upload) *entity.EvidenceFile {
	if upload == nil {
		return nil
	}
	return &entity.EvidenceFile{
		Data:        upload.Data,
		ContentType: upload.ContentType,
		Filename:    upload.Filename,
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *evidenceService) Create(ctx context.Context, actor commonDto.Actor, form dto.EvidenceForm, file *dto.Upload) (*dto.EvidenceResponse, error) {
	casoID, err := uuid.Parse(strings.TrimSpace(form.CaseRef()))
	if err != nil {
		return nil, apperror.BadRequest(MsgInvalidCasoID)
	}
	if _, err := s.cases.FindByID(ctx, casoID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound(MsgCasoNotFound)
		}
		return nil, err
	}

	evidence := &entity.Evidence{
		CasoID:            casoID,
		Tipo:              strings.TrimSpace(form.Tipo),
		Descricao:         form.Descricao,
		Arquivo:           toFile(file),
		ResponsavelColeta: optionalString(form.ResponsavelColeta),
		RegistradoPor:     actor.ID,
	}
	if evidence.Tipo == "" || strings.TrimSpace(evidence.Descricao) == "" {
		return nil, apperror.BadRequest("Tipo e descrição são obrigatórios").
			With("requiredFields", []string{"tipo", "descricao"})
	}
	if raw := strings.TrimSpace(form.DataColeta); raw != "" {
		collected, err := commonDto.ParseDate(raw)
		if err != nil {
			return nil, apperror.BadRequest(MsgInvalidDataColeta)
		}
		evidence.DataColeta = collected
	}

	if err := s.repo.Create(ctx, evidence); err != nil {
		return nil, err
	}

	s.publish(ctx, actor, activity.EvidenciaCreated, evidence)
	return s.toResponse(ctx, evidence)
}

func (s *evidenceService) ListByCase(ctx context.Context, casoID uuid.UUID) ([]dto.EvidenceResponse, error) {
	evidences, err := s.repo.FindByCaseID(ctx, casoID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(evidences))
	for _, e := range evidences {
		ids = append(ids, e.RegistradoPor)
	}
	names, err := s.users.FindUsernames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.EvidenceResponse, 0, len(evidences))
	for _, e := range evidences {
		out = append(out, dto.NewEvidenceResponse(e, names[e.RegistradoPor]))
	}
	return out, nil
}

func (s *evidenceService) GetByID(ctx context.Context, id uuid.UUID) (*dto.EvidenceResponse, error) {
	evidence, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, evidence)
}

func (s *evidenceService) DownloadFile(ctx context.Context, id uuid.UUID) (*dto.Upload, error) {
	evidence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound(MsgFileNotFound)
		}
		return nil, err
	}
	if !evidence.HasFile() || len(evidence.Arquivo.Data) == 0 {
		return nil, apperror.NotFound(MsgFileNotFound)
	}
	return &dto.Upload{
		Data:        evidence.Arquivo.Data,
		ContentType: evidence.Arquivo.ContentType,
		Filename:    evidence.Arquivo.Filename,
	}, nil
}

// Update never changes RegistradoPor; the stored registrant is kept whoever
// performs the update.
func (s *evidenceService) Update(ctx context.Context, actor commonDto.Actor, id uuid.UUID, form dto.EvidenceUpdateForm, file *dto.Upload) (*dto.EvidenceResponse, error) {
	evidence, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	registrant := evidence.RegistradoPor

	if form.Tipo != nil && strings.TrimSpace(*form.Tipo) != "" {
		evidence.Tipo = strings.TrimSpace(*form.Tipo)
	}
	if form.Descricao != nil && strings.TrimSpace(*form.Descricao) != "" {
		evidence.Descricao = *form.Descricao
	}
	if form.ResponsavelColeta != nil {
		evidence.ResponsavelColeta = optionalString(*form.ResponsavelColeta)
	}
	if form.DataColeta != nil && strings.TrimSpace(*form.DataColeta) != "" {
		collected, err := commonDto.ParseDate(*form.DataColeta)
		if err != nil {
			return nil, apperror.BadRequest(MsgInvalidDataColeta)
		}
		evidence.DataColeta = collected
	}
	if file != nil {
		evidence.Arquivo = toFile(file)
	}
	evidence.RegistradoPor = registrant

	if err := s.repo.Update(ctx, evidence); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound(MsgEvidenceNotFound)
		}
		return nil, err
	}

	s.publish(ctx, actor, activity.EvidenciaUpdated, evidence)
	return s.toResponse(ctx, evidence)
}

func (s *evidenceService) Delete(ctx context.Context, actor commonDto.Actor, id uuid.UUID) error {
	evidence, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound(MsgEvidenceNotFound)
		}
		return err
	}

	s.publish(ctx, actor, activity.EvidenciaDeleted, evidence)
	return nil
}

func (s *evidenceService) find(ctx context.Context, id uuid.UUID) (*entity.Evidence, error) {
	evidence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound(MsgEvidenceNotFound)
		}
		return nil, err
	}
	return evidence, nil
}

func (s *evidenceService) publish(ctx context.Context, actor commonDto.Actor, eventType string, evidence *entity.Evidence) {
	s.publisher.Publish(ctx, activity.Event{
		Type:     eventType,
		EntityID: evidence.ID,
		CasoID:   evidence.CasoID,
		ActorID:  actor.ID,
	})
}

func (s *evidenceService) toResponse(ctx context.Context, evidence *entity.Evidence) (*dto.EvidenceResponse, error) {
	names, err := s.users.FindUsernames(ctx, []uuid.UUID{evidence.RegistradoPor})
	if err != nil {
		return nil, err
	}
	res := dto.NewEvidenceResponse(evidence, names[evidence.RegistradoPor])
	return &res, nil
}

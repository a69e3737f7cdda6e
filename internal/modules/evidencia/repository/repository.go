package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/pkg/apperror"
)

type EvidenceRepository interface {
	Create(ctx context.Context, evidence *entity.Evidence) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Evidence, error)
	// FindByCaseID returns newest first and never loads the file bytes.
	FindByCaseID(ctx context.Context, casoID uuid.UUID) ([]*entity.Evidence, error)
	Update(ctx context.Context, evidence *entity.Evidence) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type evidenceRepository struct {
	db *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) EvidenceRepository {
	return &evidenceRepository{db: db}
}

func (r *evidenceRepository) Create(ctx context.Context, evidence *entity.Evidence) error {
	return r.db.WithContext(ctx).Create(evidence).Error
}

func (r *evidenceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Evidence, error) {
	var evidence entity.Evidence
	if err := r.db.WithContext(ctx).First(&evidence, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &evidence, nil
}

func (r *evidenceRepository) FindByCaseID(ctx context.Context, casoID uuid.UUID) ([]*entity.Evidence, error) {
	evidences := []*entity.Evidence{}
	if err := r.db.WithContext(ctx).
		Omit("arquivo_data").
		Where("caso = ?", casoID).
		Order("created_at DESC").
		Find(&evidences).Error; err != nil {
		return nil, err
	}
	return evidences, nil
}

func (r *evidenceRepository) Update(ctx context.Context, evidence *entity.Evidence) error {
	return r.db.WithContext(ctx).Omit("created_at").Save(evidence).Error
}

func (r *evidenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Evidence{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/pkg/apperror"
	"perito.app/casetrack/pkg/database"
)

type CaseFilter struct {
	Status        string
	ResponsavelID *uuid.UUID
	Search        string
	// IDs restricts the result to these cases when non-nil (search index hits).
	IDs []uuid.UUID
}

type CaseRepository interface {
	Create(ctx context.Context, caso *entity.Case) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Case, error)
	FindAll(ctx context.Context, filter CaseFilter) ([]*entity.Case, error)
	Update(ctx context.Context, caso *entity.Case) error
	AppendHistory(ctx context.Context, id uuid.UUID, entries ...entity.HistoryEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type caseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	if field, ok := database.PgDuplicateKeyField(err); ok {
		return &apperror.DuplicateKeyError{Field: field}
	}
	return err
}

func (r *caseRepository) Create(ctx context.Context, caso *entity.Case) error {
	return translateError(r.db.WithContext(ctx).Create(caso).Error)
}

func (r *caseRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Case, error) {
	var caso entity.Case
	if err := r.db.WithContext(ctx).First(&caso, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &caso, nil
}

func (r *caseRepository) FindAll(ctx context.Context, filter CaseFilter) ([]*entity.Case, error) {
	casos := []*entity.Case{}
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return casos, nil
	}

	query := r.db.WithContext(ctx)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ResponsavelID != nil {
		query = query.Where("responsavel = ?", *filter.ResponsavelID)
	}
	if filter.IDs != nil {
		query = query.Where("id IN ?", filter.IDs)
	} else if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("numero_caso ILIKE ? OR titulo ILIKE ? OR contexto_descricao ILIKE ?", like, like, like)
	}

	if err := query.Order("created_at DESC").Find(&casos).Error; err != nil {
		return nil, err
	}
	return casos, nil
}

// Update writes every field except historico, which only grows via AppendHistory.
func (r *caseRepository) Update(ctx context.Context, caso *entity.Case) error {
	return translateError(r.db.WithContext(ctx).Omit("historico", "created_at").Save(caso).Error)
}

// AppendHistory concatenates in the database so concurrent appends are not lost.
func (r *caseRepository) AppendHistory(ctx context.Context, id uuid.UUID, entries ...entity.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&entity.Case{}).
		Where("id = ?", id).
		Update("historico", gorm.Expr("COALESCE(historico, '[]'::jsonb) || ?::jsonb", string(payload)))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *caseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Case{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/pkg/apperror"
)

type mongoEvidenceRepository struct {
	coll *mongo.Collection
}

func NewMongoEvidenceRepository(db *mongo.Database) EvidenceRepository {
	return &mongoEvidenceRepository{coll: db.Collection("evidencias")}
}

func (r *mongoEvidenceRepository) Create(ctx context.Context, evidence *entity.Evidence) error {
	if evidence.ID == uuid.Nil {
		evidence.ID = uuid.New()
	}
	now := time.Now()
	if evidence.DataColeta.IsZero() {
		evidence.DataColeta = now
	}
	evidence.CreatedAt, evidence.UpdatedAt = now, now

	_, err := r.coll.InsertOne(ctx, evidence)
	return err
}

func (r *mongoEvidenceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Evidence, error) {
	var evidence entity.Evidence
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&evidence); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &evidence, nil
}

func (r *mongoEvidenceRepository) FindByCaseID(ctx context.Context, casoID uuid.UUID) ([]*entity.Evidence, error) {
	opts := options.Find().
		SetProjection(bson.M{"arquivo.data": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cur, err := r.coll.Find(ctx, bson.M{"caso": casoID}, opts)
	if err != nil {
		return nil, err
	}
	evidences := []*entity.Evidence{}
	if err := cur.All(ctx, &evidences); err != nil {
		return nil, err
	}
	return evidences, nil
}

func (r *mongoEvidenceRepository) Update(ctx context.Context, evidence *entity.Evidence) error {
	evidence.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": evidence.ID}, evidence)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *mongoEvidenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

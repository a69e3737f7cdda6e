package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/pkg/apperror"
	"perito.app/casetrack/pkg/database"
)

type mongoCaseRepository struct {
	coll *mongo.Collection
}

func NewMongoCaseRepository(db *mongo.Database) CaseRepository {
	return &mongoCaseRepository{coll: db.Collection("casos")}
}

func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperror.ErrNotFound
	}
	if field, ok := database.DuplicateKeyField(err); ok {
		return &apperror.DuplicateKeyError{Field: field}
	}
	return err
}

func (r *mongoCaseRepository) Create(ctx context.Context, caso *entity.Case) error {
	if caso.ID == uuid.Nil {
		caso.ID = uuid.New()
	}
	if caso.Historico == nil {
		caso.Historico = []entity.HistoryEntry{}
	}
	now := time.Now()
	caso.CreatedAt, caso.UpdatedAt = now, now

	_, err := r.coll.InsertOne(ctx, caso)
	return translateMongoError(err)
}

func (r *mongoCaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Case, error) {
	var caso entity.Case
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&caso); err != nil {
		return nil, translateMongoError(err)
	}
	return &caso, nil
}

func (r *mongoCaseRepository) FindAll(ctx context.Context, filter CaseFilter) ([]*entity.Case, error) {
	casos := []*entity.Case{}
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return casos, nil
	}

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ResponsavelID != nil {
		query["responsavel"] = *filter.ResponsavelID
	}
	if filter.IDs != nil {
		query["_id"] = bson.M{"$in": filter.IDs}
	} else if filter.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"numeroCaso": pattern},
			bson.M{"titulo": pattern},
			bson.M{"contexto.descricao": pattern},
		}
	}

	cur, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &casos); err != nil {
		return nil, err
	}
	return casos, nil
}

func (r *mongoCaseRepository) Update(ctx context.Context, caso *entity.Case) error {
	caso.UpdatedAt = time.Now()
	set, err := updateDocument(caso)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateByID(ctx, caso.ID, bson.M{"$set": set})
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// updateDocument renders the case as a $set payload without the immutable
// and append-only fields.
func updateDocument(caso *entity.Case) (bson.M, error) {
	raw, err := bson.MarshalWithRegistry(database.MongoRegistry(), caso)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	delete(doc, "historico")
	delete(doc, "createdAt")
	return doc, nil
}

func (r *mongoCaseRepository) AppendHistory(ctx context.Context, id uuid.UUID, entries ...entity.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	update := bson.M{
		"$push": bson.M{"historico": bson.M{"$each": entries}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *mongoCaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

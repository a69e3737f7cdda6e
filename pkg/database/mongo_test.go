package database

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type uuidDoc struct {
	ID    uuid.UUID  `bson:"_id"`
	Owner *uuid.UUID `bson:"owner,omitempty"`
	Name  string     `bson:"name"`
}

func TestMongoRegistryRoundTripsUUID(t *testing.T) {
	reg := MongoRegistry()
	owner := uuid.New()
	in := uuidDoc{ID: uuid.New(), Owner: &owner, Name: "caso"}

	raw, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	idVal := bson.Raw(raw).Lookup("_id")
	subtype, data := idVal.Binary()
	assert.Equal(t, uuidSubtype, subtype)
	assert.Equal(t, in.ID[:], data)

	var out uuidDoc
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
	assert.Equal(t, in.ID, out.ID)
	require.NotNil(t, out.Owner)
	assert.Equal(t, owner, *out.Owner)
}

func TestMongoRegistryDecodesStringUUID(t *testing.T) {
	id := uuid.New()
	raw, err := bson.Marshal(bson.M{"_id": id.String(), "name": "x"})
	require.NoError(t, err)

	var out uuidDoc
	require.NoError(t, bson.UnmarshalWithRegistry(MongoRegistry(), raw, &out))
	assert.Equal(t, id, out.ID)
}

func TestDuplicateKeyField(t *testing.T) {
	err := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: casetrack.users index: email_1 dup key: { email: "a@b.c" }`,
	}}}

	field, ok := DuplicateKeyField(err)
	assert.True(t, ok)
	assert.Equal(t, "email", field)

	_, ok = DuplicateKeyField(errors.New("boom"))
	assert.False(t, ok)
}

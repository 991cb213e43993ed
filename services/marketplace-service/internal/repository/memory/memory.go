// Package memory holds mutex-guarded in-process implementations of the
// repository interfaces. They back SKIP_DB mode and the usecase tests, and
// report missing rows and unique-key violations with the same errors the
// Mongo driver returns.
package memory

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const duplicateKeyCode = 11000

func duplicateKeyError(index string) error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{
			Code:    duplicateKeyCode,
			Message: "E11000 duplicate key error index: " + index,
		}},
	}
}

func parseID(id string) (bson.ObjectID, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, mongo.ErrNoDocuments
	}
	return objectID, nil
}

func paginate[T any](items []T, limit, offset int64) []T {
	if offset >= int64(len(items)) {
		return []T{}
	}
	end := offset + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[offset:end]
}

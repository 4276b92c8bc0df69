package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const TemplateCollection = "projectTemplates"

// MongoTemplateStore reads category references out of the project template collection.
type MongoTemplateStore struct {
	collection *mongo.Collection
}

func NewMongoTemplateStore(db *mongo.Database) *MongoTemplateStore {
	return &MongoTemplateStore{collection: db.Collection(TemplateCollection)}
}

func (s *MongoTemplateStore) ProjectBreakdown(ctx context.Context, tenantID string, categoryIDs []primitive.ObjectID) ([]models.CategoryReference, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"tenantId":       tenantID,
			"isReusable":     true,
			"status":         models.TemplateStatusPublished,
			"isDeleted":      false,
			"categories._id": bson.M{"$in": categoryIDs},
		}}},
		{{Key: "$unwind", Value: "$categories"}},
		{{Key: "$match", Value: bson.M{"categories._id": bson.M{"$in": categoryIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$categories._id",
			"categoryName": bson.M{"$first": "$categories.name"},
			"projectCount": bson.M{"$sum": 1},
			"sampleTitles": bson.M{"$push": "$title"},
		}}},
		{{Key: "$project", Value: bson.M{
			"categoryName": 1,
			"projectCount": 1,
			"sampleTitles": bson.M{"$slice": bson.A{"$sampleTitles", MaxSampleTitles}},
		}}},
		{{Key: "$sort", Value: bson.M{"projectCount": -1}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate template references: %w", err)
	}
	defer cursor.Close(ctx)

	var references []models.CategoryReference
	if err = cursor.All(ctx, &references); err != nil {
		return nil, fmt.Errorf("failed to decode template references: %w", err)
	}
	return references, nil
}

func (s *MongoTemplateStore) FindReferencing(ctx context.Context, tenantID string, categoryIDs []primitive.ObjectID) ([]models.TemplateRef, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"tenantId":       tenantID,
			"isDeleted":      false,
			"categories._id": bson.M{"$in": categoryIDs},
		}}},
		{{Key: "$project", Value: bson.M{
			"title": 1,
			"categoryIds": bson.M{"$filter": bson.M{
				"input": "$categories._id",
				"cond":  bson.M{"$in": bson.A{"$$this", categoryIDs}},
			}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find referencing templates: %w", err)
	}
	defer cursor.Close(ctx)

	var refs []models.TemplateRef
	if err = cursor.All(ctx, &refs); err != nil {
		return nil, fmt.Errorf("failed to decode referencing templates: %w", err)
	}
	return refs, nil
}

func (s *MongoTemplateStore) RemoveCategory(ctx context.Context, tenantID string, categoryID primitive.ObjectID) (int64, error) {
	result, err := s.collection.UpdateMany(ctx, bson.M{
		"tenantId":       tenantID,
		"categories._id": categoryID,
	}, bson.M{
		"$pull": bson.M{"categories": bson.M{"_id": categoryID}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove category from templates: %w", err)
	}
	return result.ModifiedCount, nil
}

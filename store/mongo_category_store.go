package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CategoryCollection = "projectCategories"

	siblingNameIndex = "tenant_parent_name_unique"
)

// caseInsensitive matches the sibling-name comparison the services perform.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type MongoCategoryStore struct {
	collection      *mongo.Collection
	useTransactions bool
}

func NewMongoCategoryStore(db *mongo.Database, useTransactions bool) *MongoCategoryStore {
	return &MongoCategoryStore{
		collection:      db.Collection(CategoryCollection),
		useTransactions: useTransactions,
	}
}

// EnsureIndexes creates the lookup indexes the hierarchy engine depends on.
// With uniqueSiblingNames, live siblings may not share a name ignoring case.
func (s *MongoCategoryStore) EnsureIndexes(ctx context.Context, uniqueSiblingNames bool) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "sequenceNumber", Value: 1}},
			Options: options.Index().SetName("tenant_parent_index"),
		},
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "pathArray", Value: 1}},
			Options: options.Index().SetName("tenant_path_array_index"),
		},
		{
			Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().
				SetName("tenant_external_id_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isDeleted": false}),
		},
	}

	if uniqueSiblingNames {
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().
				SetName(siblingNameIndex).
				SetUnique(true).
				SetCollation(caseInsensitive).
				SetPartialFilterExpression(bson.M{"isDeleted": false}),
		})
	} else if err := s.dropIndex(ctx, siblingNameIndex); err != nil {
		return err
	}

	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create category indexes: %w", err)
	}
	return nil
}

func (s *MongoCategoryStore) dropIndex(ctx context.Context, name string) error {
	_, err := s.collection.Indexes().DropOne(ctx, name)
	var cmdErr mongo.CommandError
	// 26 NamespaceNotFound, 27 IndexNotFound
	if err == nil || (errors.As(err, &cmdErr) && (cmdErr.Code == 26 || cmdErr.Code == 27)) {
		return nil
	}
	return fmt.Errorf("failed to drop index %s: %w", name, err)
}

func (s *MongoCategoryStore) Insert(ctx context.Context, category *models.Category) error {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, category); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (s *MongoCategoryStore) FindByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.Category, error) {
	return s.FindOne(ctx, CategoryQuery{TenantID: tenantID, IDs: []primitive.ObjectID{id}})
}

func (s *MongoCategoryStore) FindOne(ctx context.Context, q CategoryQuery) (*models.Category, error) {
	var category models.Category
	err := s.collection.FindOne(ctx, buildCategoryFilter(q)).Decode(&category)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &category, nil
}

// Find sorts by sequenceNumber then name ignoring case. The lowered name is
// computed in the pipeline so the filter itself stays case-sensitive.
func (s *MongoCategoryStore) Find(ctx context.Context, q CategoryQuery, page *Page) ([]models.Category, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildCategoryFilter(q)}},
		{{Key: "$addFields", Value: bson.M{"sortName": bson.M{"$toLower": "$name"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "sequenceNumber", Value: 1}, {Key: "sortName", Value: 1}, {Key: "_id", Value: 1}}}},
	}
	if page != nil {
		if page.Offset > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$skip", Value: page.Offset}})
		}
		if page.Limit > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$limit", Value: page.Limit}})
		}
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{"sortName": 0}}})

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

func (s *MongoCategoryStore) Count(ctx context.Context, q CategoryQuery) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, buildCategoryFilter(q))
	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

func (s *MongoCategoryStore) Tenants(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, "tenantId", bson.M{"isDeleted": bson.M{"$ne": true}})
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	tenants := make([]string, 0, len(values))
	for _, v := range values {
		if tenant, ok := v.(string); ok && tenant != "" {
			tenants = append(tenants, tenant)
		}
	}
	sort.Strings(tenants)
	return tenants, nil
}

func (s *MongoCategoryStore) FindDescendants(ctx context.Context, tenantID string, id primitive.ObjectID) ([]models.Category, error) {
	return s.Find(ctx, CategoryQuery{TenantID: tenantID, AncestorID: &id, ExcludeID: &id}, nil)
}

func (s *MongoCategoryStore) UpdateFields(ctx context.Context, tenantID string, id primitive.ObjectID, patch models.CategoryPatch) error {
	set := bson.M{"updatedAt": time.Now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.ExternalID != nil {
		set["externalId"] = *patch.ExternalID
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Keywords != nil {
		set["keywords"] = *patch.Keywords
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.SequenceNumber != nil {
		set["sequenceNumber"] = *patch.SequenceNumber
	}
	if patch.Metadata != nil {
		set["metadata"] = *patch.Metadata
	}
	if patch.Evidences != nil {
		set["evidences"] = *patch.Evidences
	}
	if patch.UpdatedBy != "" {
		set["updatedBy"] = patch.UpdatedBy
	}

	result, err := s.collection.UpdateOne(ctx, liveByID(tenantID, id), bson.M{"$set": set})
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoCategoryStore) SetHierarchy(ctx context.Context, tenantID string, id primitive.ObjectID, fields models.HierarchyFields) error {
	result, err := s.collection.UpdateOne(ctx, liveByID(tenantID, id), bson.M{"$set": hierarchySet(fields, time.Now())})
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to update category hierarchy: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoCategoryStore) SetHierarchyMany(ctx context.Context, tenantID string, updates []HierarchyUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	now := time.Now()
	bulkOps := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		bulkOps = append(bulkOps, mongo.NewUpdateOneModel().
			SetFilter(liveByID(tenantID, u.ID)).
			SetUpdate(bson.M{"$set": hierarchySet(u.Fields, now)}))
	}

	if _, err := s.collection.BulkWrite(ctx, bulkOps, options.BulkWrite().SetOrdered(false)); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to rewrite descendant hierarchy: %w", err)
	}
	return nil
}

func (s *MongoCategoryStore) AttachChild(ctx context.Context, tenantID string, parentID, childID primitive.ObjectID) error {
	children := bson.M{"$ifNull": bson.A{"$children", bson.A{}}}
	present := bson.M{"$in": bson.A{childID, children}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"childCount": bson.M{"$cond": bson.A{present, "$childCount", bson.M{"$add": bson.A{"$childCount", 1}}}},
			"children":   bson.M{"$cond": bson.A{present, children, bson.M{"$concatArrays": bson.A{children, bson.A{childID}}}}},
			"updatedAt":  time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{"hasChildren": bson.M{"$gt": bson.A{"$childCount", 0}}}}},
	}
	return s.updateCounters(ctx, tenantID, parentID, update)
}

func (s *MongoCategoryStore) DetachChild(ctx context.Context, tenantID string, parentID, childID primitive.ObjectID) error {
	children := bson.M{"$ifNull": bson.A{"$children", bson.A{}}}
	present := bson.M{"$in": bson.A{childID, children}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"childCount": bson.M{"$cond": bson.A{
				present,
				bson.M{"$max": bson.A{bson.M{"$subtract": bson.A{"$childCount", 1}}, 0}},
				"$childCount",
			}},
			"children": bson.M{"$filter": bson.M{
				"input": children,
				"cond":  bson.M{"$ne": bson.A{"$$this", childID}},
			}},
			"updatedAt": time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{"hasChildren": bson.M{"$gt": bson.A{"$childCount", 0}}}}},
	}
	return s.updateCounters(ctx, tenantID, parentID, update)
}

func (s *MongoCategoryStore) updateCounters(ctx context.Context, tenantID string, parentID primitive.ObjectID, update mongo.Pipeline) error {
	result, err := s.collection.UpdateOne(ctx, liveByID(tenantID, parentID), update)
	if err != nil {
		return fmt.Errorf("failed to update child counters: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoCategoryStore) SetChildren(ctx context.Context, tenantID string, id primitive.ObjectID, children []primitive.ObjectID) error {
	if children == nil {
		children = []primitive.ObjectID{}
	}
	update := bson.M{"$set": bson.M{
		"children":    children,
		"childCount":  len(children),
		"hasChildren": len(children) > 0,
		"updatedAt":   time.Now(),
	}}

	result, err := s.collection.UpdateOne(ctx, liveByID(tenantID, id), update)
	if err != nil {
		return fmt.Errorf("failed to set children: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoCategoryStore) SoftDelete(ctx context.Context, tenantID string, id primitive.ObjectID) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"isDeleted": true,
			"deletedAt": now,
			"updatedAt": now,
		},
	}

	result, err := s.collection.UpdateOne(ctx, liveByID(tenantID, id), update)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// WithTransaction runs fn inside a session transaction when enabled. Standalone
// deployments without replica sets run fn directly; every write fn issues is
// derived from stored state, so re-running a failed operation repairs it.
func (s *MongoCategoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.useTransactions {
		return fn(ctx)
	}

	session, err := s.collection.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// duplicateKey maps a unique index violation to ErrDuplicateName or
// ErrDuplicateKey, and returns nil for any other error.
func duplicateKey(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if strings.Contains(err.Error(), siblingNameIndex) {
		return ErrDuplicateName
	}
	return ErrDuplicateKey
}

func liveByID(tenantID string, id primitive.ObjectID) bson.M {
	return bson.M{
		"_id":       id,
		"tenantId":  tenantID,
		"isDeleted": false,
	}
}

func hierarchySet(fields models.HierarchyFields, now time.Time) bson.M {
	return bson.M{
		"parentId":  fields.ParentID,
		"level":     fields.Level,
		"path":      fields.Path,
		"pathArray": fields.PathArray,
		"updatedAt": now,
	}
}

func buildCategoryFilter(q CategoryQuery) bson.M {
	filter := bson.M{"tenantId": q.TenantID}
	if !q.IncludeDeleted {
		filter["isDeleted"] = false
	}
	if q.OrgID != "" {
		filter["orgId"] = q.OrgID
	}

	idFilter := bson.M{}
	if len(q.IDs) == 1 {
		idFilter["$eq"] = q.IDs[0]
	} else if len(q.IDs) > 1 {
		idFilter["$in"] = q.IDs
	}
	if q.ExcludeID != nil {
		idFilter["$ne"] = *q.ExcludeID
	}
	if len(idFilter) > 0 {
		filter["_id"] = idFilter
	}

	if q.ExternalID != "" {
		filter["externalId"] = q.ExternalID
	}
	if q.Name != "" {
		filter["name"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Name) + "$", Options: "i"}
	}
	if q.RootsOnly {
		filter["parentId"] = nil
	} else if q.ParentID != nil {
		filter["parentId"] = *q.ParentID
	}

	levelFilter := bson.M{}
	if q.Level != nil {
		levelFilter["$eq"] = *q.Level
	}
	if q.MaxLevel != nil {
		levelFilter["$lte"] = *q.MaxLevel
	}
	if len(levelFilter) > 0 {
		filter["level"] = levelFilter
	}

	if q.AncestorID != nil {
		filter["pathArray"] = *q.AncestorID
	}
	if q.LeavesOnly {
		filter["hasChildren"] = false
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if len(q.Keywords) > 0 {
		filter["keywords"] = bson.M{"$in": q.Keywords}
	}
	if q.SearchText != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.SearchText), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"externalId": pattern},
		}
	}
	return filter
}

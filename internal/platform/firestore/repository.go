package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
)

// Document is a decoded snapshot with its server timestamps.
type Document[T any] struct {
	ID         string
	Data       T
	CreateTime time.Time
	UpdateTime time.Time
}

// QueryBuilder customises collection queries before execution.
type QueryBuilder func(query firestore.Query) firestore.Query

// Aggregation names a single aggregate computed server side.
type Aggregation struct {
	Alias string
	Kind  AggregationKind
	Field string
}

// AggregationKind selects the aggregate function.
type AggregationKind int

const (
	AggregateCount AggregationKind = iota
	AggregateSum
	AggregateAvg
)

// AggregationResult holds aggregate values by alias. Averages over an empty set are reported as zero.
type AggregationResult map[string]float64

// Int returns the aggregate truncated to an int.
func (r AggregationResult) Int(alias string) int {
	return int(r[alias])
}

// BaseRepository provides typed access to one collection. T must be a struct with firestore tags.
type BaseRepository[T any] struct {
	provider   *Provider
	collection string
}

// NewBaseRepository binds a repository to a collection.
func NewBaseRepository[T any](provider *Provider, collection string) *BaseRepository[T] {
	return &BaseRepository[T]{provider: provider, collection: strings.TrimSpace(collection)}
}

// Set writes value under id, replacing any existing document.
func (r *BaseRepository[T]) Set(ctx context.Context, id string, value T) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Set(ctx, value); err != nil {
		return WrapError(r.op("set"), err)
	}
	return nil
}

// Update applies field updates to an existing document.
func (r *BaseRepository[T]) Update(ctx context.Context, id string, updates []firestore.Update) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Update(ctx, updates); err != nil {
		return WrapError(r.op("update"), err)
	}
	return nil
}

// Get fetches and decodes a document.
func (r *BaseRepository[T]) Get(ctx context.Context, id string) (Document[T], error) {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snapshot, err := doc.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(r.op("get"), err)
	}
	return Decode[T](snapshot)
}

// Delete removes a document. Deleting a missing document is not an error.
func (r *BaseRepository[T]) Delete(ctx context.Context, id string) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Delete(ctx); err != nil {
		return WrapError(r.op("delete"), err)
	}
	return nil
}

// Query runs a collection query and decodes every result.
func (r *BaseRepository[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	query, err := r.query(ctx, build)
	if err != nil {
		return nil, err
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document[T]
	for {
		snapshot, err := iter.Next()
		if isIteratorDone(err) {
			return docs, nil
		}
		if err != nil {
			return nil, WrapError(r.op("query"), err)
		}
		decoded, err := Decode[T](snapshot)
		if err != nil {
			return nil, err
		}
		docs = append(docs, decoded)
	}
}

// Aggregate evaluates the given aggregations over the filtered collection in a single round trip.
func (r *BaseRepository[T]) Aggregate(ctx context.Context, build QueryBuilder, aggs ...Aggregation) (AggregationResult, error) {
	if len(aggs) == 0 {
		return AggregationResult{}, nil
	}
	query, err := r.query(ctx, build)
	if err != nil {
		return nil, err
	}
	aq := query.NewAggregationQuery()
	for _, agg := range aggs {
		switch agg.Kind {
		case AggregateCount:
			aq = aq.WithCount(agg.Alias)
		case AggregateSum:
			aq = aq.WithSum(agg.Field, agg.Alias)
		case AggregateAvg:
			aq = aq.WithAvg(agg.Field, agg.Alias)
		}
	}
	raw, err := aq.Get(ctx)
	if err != nil {
		return nil, WrapError(r.op("aggregate"), err)
	}

	result := make(AggregationResult, len(aggs))
	for _, agg := range aggs {
		value, ok := raw[agg.Alias].(*firestorepb.Value)
		if !ok || value == nil {
			continue
		}
		switch v := value.GetValueType().(type) {
		case *firestorepb.Value_IntegerValue:
			result[agg.Alias] = float64(v.IntegerValue)
		case *firestorepb.Value_DoubleValue:
			result[agg.Alias] = v.DoubleValue
		}
	}
	return result, nil
}

// Count returns the number of documents matching the query.
func (r *BaseRepository[T]) Count(ctx context.Context, build QueryBuilder) (int, error) {
	result, err := r.Aggregate(ctx, build, Aggregation{Alias: "count", Kind: AggregateCount})
	if err != nil {
		return 0, err
	}
	return result.Int("count"), nil
}

// DocumentRef exposes the reference for transactional access.
func (r *BaseRepository[T]) DocumentRef(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, WrapError(r.op("document"), errors.New("firestore: document id is required"))
	}
	coll, err := r.CollectionRef(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

// CollectionRef exposes the collection for queries that must run inside a transaction.
func (r *BaseRepository[T]) CollectionRef(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, WrapError(r.op("collection"), errors.New("firestore: provider is nil"))
	}
	if r.collection == "" {
		return nil, WrapError(r.op("collection"), errors.New("firestore: collection name is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(r.collection), nil
}

func (r *BaseRepository[T]) query(ctx context.Context, build QueryBuilder) (firestore.Query, error) {
	coll, err := r.CollectionRef(ctx)
	if err != nil {
		return firestore.Query{}, err
	}
	query := coll.Query
	if build != nil {
		query = build(query)
	}
	return query, nil
}

func (r *BaseRepository[T]) op(action string) string {
	name := "firestore"
	if r != nil && r.collection != "" {
		name = r.collection
	}
	return name + "." + action
}

// Decode converts a snapshot into a typed document.
func Decode[T any](snapshot *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snapshot.DataTo(&data); err != nil {
		return Document[T]{}, fmt.Errorf("firestore: decode document %s: %w", snapshot.Ref.ID, err)
	}
	return Document[T]{
		ID:         snapshot.Ref.ID,
		Data:       data,
		CreateTime: snapshot.CreateTime,
		UpdateTime: snapshot.UpdateTime,
	}, nil
}

func isIteratorDone(err error) bool {
	return errors.Is(err, iterator.Done)
}

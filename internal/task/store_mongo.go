package task

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore is the production Store. One client is shared by every request.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore configures a client. Connecting is lazy, so an unreachable
// server surfaces on the first operation rather than here.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)
	// Nested documents decode as maps so they serialise back to JSON objects.
	bsonOpts := &options.BSONOptions{DefaultDocumentM: true}
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetBSONOptions(bsonOpts))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (s *MongoStore) Find(ctx context.Context, q Query) ([]Document, error) {
	opts := options.Find()
	if q.SortByDeadline {
		opts.SetSort(bson.D{{Key: FieldDeadline, Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.coll.Find(ctx, queryFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	out := make([]Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, Document(m))
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Document, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := s.coll.FindOne(ctx, bson.M{FieldID: oid}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return Document(m), nil
}

func (s *MongoStore) Insert(ctx context.Context, doc Document) (InsertResult, error) {
	d := doc.Clone()
	if d == nil {
		d = Document{}
	}
	oid := primitive.NewObjectID()
	d[FieldID] = oid
	d = bsonValue(d).(Document)
	if _, err := s.coll.InsertOne(ctx, bson.M(d)); err != nil {
		return InsertResult{}, fmt.Errorf("insert task: %w", err)
	}
	return InsertResult{Acknowledged: true, InsertedID: oid.Hex()}, nil
}

func (s *MongoStore) IncrementBids(ctx context.Context, id string) (UpdateResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{FieldID: oid}, bson.M{"$inc": bson.M{FieldBidsCount: 1}})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("increment bids %s: %w", id, err)
	}
	return updateResult(res), nil
}

func (s *MongoStore) Update(ctx context.Context, f Filter, set Document) (UpdateResult, error) {
	filter, err := mutationFilter(Filter{ID: f.ID, Owner: f.Owner, MatchOwner: true})
	if err != nil {
		return UpdateResult{}, err
	}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M(bsonValue(set).(Document))})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update task %s: %w", f.ID, err)
	}
	return updateResult(res), nil
}

func (s *MongoStore) Delete(ctx context.Context, f Filter) (DeleteResult, error) {
	filter, err := mutationFilter(f)
	if err != nil {
		return DeleteResult{}, err
	}
	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete task %s: %w", f.ID, err)
	}
	return DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func queryFilter(q Query) bson.M {
	if q.Owner == "" {
		return bson.M{}
	}
	return bson.M{FieldOwner: q.Owner}
}

func mutationFilter(f Filter) (bson.M, error) {
	oid, err := ParseID(f.ID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{FieldID: oid}
	if f.MatchOwner {
		filter[FieldOwner] = f.Owner
	}
	return filter, nil
}

func updateResult(res *mongo.UpdateResult) UpdateResult {
	out := UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		hex := oid.Hex()
		out.UpsertedID = &hex
	}
	return out
}

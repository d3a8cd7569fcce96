package task

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Well-known document fields. Everything else in a task is client-defined.
const (
	FieldID        = "_id"
	FieldOwner     = "userEmail"
	FieldDeadline  = "deadline"
	FieldBidsCount = "bidsCount"
)

// FeaturedLimit is how many tasks the featured listing returns.
const FeaturedLimit = 6

var (
	ErrInvalidID = errors.New("invalid task id")
	ErrNotFound  = errors.New("task not found")
)

// Document is a task as stored: an open JSON object.
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Owner returns the owner field when it is a string.
func (d Document) Owner() (string, bool) {
	s, ok := d[FieldOwner].(string)
	return s, ok
}

// Query selects tasks for a listing.
type Query struct {
	Owner          string // empty means any owner
	SortByDeadline bool
	Limit          int64
}

// Filter selects a single task for a mutation.
type Filter struct {
	ID         string
	Owner      string
	MatchOwner bool
}

type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type UpdateResult struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedCount int64   `json:"upsertedCount"`
	UpsertedID    *string `json:"upsertedId"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Store is the document collection holding tasks. Implementations must be
// safe for concurrent use; IncrementBids must be atomic per document.
type Store interface {
	Find(ctx context.Context, q Query) ([]Document, error)
	Get(ctx context.Context, id string) (Document, error)
	Insert(ctx context.Context, doc Document) (InsertResult, error)
	IncrementBids(ctx context.Context, id string) (UpdateResult, error)
	Update(ctx context.Context, f Filter, set Document) (UpdateResult, error)
	Delete(ctx context.Context, f Filter) (DeleteResult, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ParseID validates a client-supplied task identifier.
func ParseID(s string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return oid, nil
}

// NewID returns a fresh identifier in the same format the database assigns.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

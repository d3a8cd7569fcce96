package task

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMutationFilter(t *testing.T) {
	id := NewID()
	oid, _ := primitive.ObjectIDFromHex(id)

	f, err := mutationFilter(Filter{ID: id})
	if err != nil {
		t.Fatalf("mutationFilter: %v", err)
	}
	if f[FieldID] != oid {
		t.Fatalf("_id = %v, want %v", f[FieldID], oid)
	}
	if _, ok := f[FieldOwner]; ok {
		t.Fatalf("owner present without MatchOwner")
	}

	f, _ = mutationFilter(Filter{ID: id, Owner: "a@x.com", MatchOwner: true})
	if f[FieldOwner] != "a@x.com" {
		t.Fatalf("owner = %v, want a@x.com", f[FieldOwner])
	}

	if _, err := mutationFilter(Filter{ID: "zzz"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("err = %v, want ErrInvalidID", err)
	}
}

func TestQueryFilter(t *testing.T) {
	if f := queryFilter(Query{}); len(f) != 0 {
		t.Fatalf("empty query filter = %v", f)
	}
	if f := queryFilter(Query{Owner: "a@x.com"}); f[FieldOwner] != "a@x.com" {
		t.Fatalf("owner filter = %v", f)
	}
}

func TestNewMongoStoreRequiresURI(t *testing.T) {
	if _, err := NewMongoStore(t.Context(), MongoConfig{}); err == nil {
		t.Fatal("expected error for empty uri")
	}
}

package authz

import "context"

// RelationOwner is the relation between a user and a task they created.
const RelationOwner = "owner"

type Decision struct {
	Allowed bool
	Reason  string
}

type Request struct {
	Subject  string         // e.g. "user:a@x.com"
	Relation string         // e.g. "owner"
	Object   string         // e.g. "task:665f1c..."
	Context  map[string]any // optional: facts known to the caller, such as the recorded owner
}

type Authorizer interface {
	Check(ctx context.Context, req Request) (Decision, error)
}

// Relater is implemented by authorizers that keep their own relationship
// store and must be told when a task is created.
type Relater interface {
	Relate(ctx context.Context, req Request) error
}

func User(owner string) string { return "user:" + owner }
func Task(id string) string    { return "task:" + id }

// OwnerRequest asks whether owner owns the task whose stored owner field is
// recorded.
func OwnerRequest(owner, taskID, recorded string) Request {
	return Request{
		Subject:  User(owner),
		Relation: RelationOwner,
		Object:   Task(taskID),
		Context:  map[string]any{"owner": recorded},
	}
}

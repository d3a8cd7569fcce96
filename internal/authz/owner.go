package authz

import "context"

// OwnerMatch decides ownership from the task document itself: the subject
// must be the user named in the recorded owner field.
type OwnerMatch struct{}

func (OwnerMatch) Check(ctx context.Context, req Request) (Decision, error) {
	if req.Relation != RelationOwner {
		return Decision{Allowed: false, Reason: "unsupported_relation"}, nil
	}
	recorded, _ := req.Context["owner"].(string)
	if recorded == "" || req.Subject != User(recorded) {
		return Decision{Allowed: false, Reason: "not_owner"}, nil
	}
	return Decision{Allowed: true}, nil
}

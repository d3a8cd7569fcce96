package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TwigBush/taskmarket/internal/authz"
	"github.com/TwigBush/taskmarket/internal/httpx"
	"github.com/TwigBush/taskmarket/internal/identity"
	"github.com/TwigBush/taskmarket/internal/task"
	"github.com/TwigBush/taskmarket/internal/trace"
)

const (
	msgInvalidID    = "Invalid task id"
	msgInvalidBody  = "Invalid task body"
	msgNotFound     = "Task not found"
	msgNotOwned     = "Task not found or unauthorized"
	msgNoChanges    = "No changes were made"
	msgForbidden    = "Unauthorized access"
	msgFetchFailed  = "Failed to fetch tasks"
	msgServerError  = "Server error"
	msgCreateFailed = "Failed to create task"
	msgDeleteFailed = "Failed to delete task"
	msgNoToken      = "No token provided"
)

const (
	ownerQueryParam = "userEmail"
	maxBodyBytes    = 1 << 20
)

// TaskHandler serves the task routes. Routes that need a caller expect
// mw.Authenticate to have run first.
type TaskHandler struct {
	Store  task.Store
	Authz  authz.Authorizer
	Policy OwnerPolicy
}

func NewTaskHandler(store task.Store, az authz.Authorizer, policy OwnerPolicy) *TaskHandler {
	if az == nil {
		az = authz.OwnerMatch{}
	}
	return &TaskHandler{Store: store, Authz: az, Policy: policy}
}

type updateResponse struct {
	Success       bool  `json:"success"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *TaskHandler) Featured(w http.ResponseWriter, r *http.Request) {
	h.find(w, r, task.Query{SortByDeadline: true, Limit: task.FeaturedLimit})
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	h.find(w, r, task.Query{})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	doc, err := decodeDocument(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if h.Policy.Strict {
		doc[task.FieldOwner] = caller.Owner()
	}
	if _, ok := doc[task.FieldBidsCount]; !ok {
		doc[task.FieldBidsCount] = int64(0)
	}
	delete(doc, task.FieldID)

	res, err := h.Store.Insert(r.Context(), doc)
	if err != nil {
		h.storeError(w, r, http.StatusInternalServerError, msgCreateFailed, err)
		return
	}

	if rel, ok := h.Authz.(authz.Relater); ok {
		if owner, ok := doc.Owner(); ok && owner != "" {
			req := authz.Request{Subject: authz.User(owner), Relation: authz.RelationOwner, Object: authz.Task(res.InsertedID)}
			if err := rel.Relate(r.Context(), req); err != nil {
				slog.Error("relate task owner", "trace", trace.From(r.Context()), "task", res.InsertedID, "err", err)
			}
		}
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	doc, err := h.Store.Get(r.Context(), id)
	switch {
	case errors.Is(err, task.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, msgNotFound)
	case err != nil:
		h.storeError(w, r, http.StatusInternalServerError, msgServerError, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}

// Bid increments the bid counter. An unknown id is reported through the
// counts, not as an error.
func (h *TaskHandler) Bid(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	res, err := h.Store.IncrementBids(r.Context(), id)
	if err != nil {
		h.storeError(w, r, http.StatusInternalServerError, msgServerError, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	owner, scoped, err := h.Policy.Resolve(caller, r.URL.Query().Get(ownerQueryParam))
	if err != nil {
		httpx.WriteError(w, http.StatusForbidden, msgForbidden)
		return
	}
	q := task.Query{}
	if scoped {
		q.Owner = owner
	}
	h.find(w, r, q)
}

func (h *TaskHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	owner, scoped, err := h.Policy.Resolve(caller, r.URL.Query().Get(ownerQueryParam))
	if err != nil {
		httpx.WriteError(w, http.StatusForbidden, msgForbidden)
		return
	}

	doc, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, task.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		h.storeError(w, r, http.StatusInternalServerError, msgServerError, err)
		return
	}

	if scoped {
		recorded, _ := doc.Owner()
		d, err := h.Authz.Check(r.Context(), authz.OwnerRequest(owner, id, recorded))
		if err != nil {
			h.storeError(w, r, http.StatusInternalServerError, msgServerError, err)
			return
		}
		if !d.Allowed {
			slog.Info("task access denied", "trace", trace.From(r.Context()), "task", id, "reason", d.Reason)
			httpx.WriteError(w, http.StatusForbidden, msgForbidden)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, doc)
}

// UpdateMine applies the body as a partial update. Matching on the owner means
// a missing task and someone else's task are indistinguishable to the caller.
func (h *TaskHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	// a foreign owner gets the same answer as a missing task
	owner, _, err := h.Policy.Resolve(caller, r.URL.Query().Get(ownerQueryParam))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, msgNotOwned)
		return
	}
	set, err := decodeDocument(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	// identity and ownership are immutable
	delete(set, task.FieldID)
	delete(set, task.FieldOwner)
	if len(set) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, msgNoChanges)
		return
	}

	res, err := h.Store.Update(r.Context(), task.Filter{ID: id, Owner: owner, MatchOwner: true}, set)
	if err != nil {
		h.storeError(w, r, http.StatusInternalServerError, msgServerError, err)
		return
	}
	switch {
	case res.MatchedCount == 0:
		httpx.WriteError(w, http.StatusNotFound, msgNotOwned)
	case res.ModifiedCount == 0:
		httpx.WriteError(w, http.StatusBadRequest, msgNoChanges)
	default:
		httpx.WriteJSON(w, http.StatusOK, updateResponse{Success: true, ModifiedCount: res.ModifiedCount})
	}
}

func (h *TaskHandler) DeleteMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := task.ParseID(id); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, deleteResponse{Error: msgInvalidID})
		return
	}
	owner, _, err := h.Policy.Resolve(caller, r.URL.Query().Get(ownerQueryParam))
	if err != nil {
		httpx.WriteJSON(w, http.StatusForbidden, deleteResponse{Error: msgForbidden})
		return
	}

	// non-strict deletes by id alone
	res, err := h.Store.Delete(r.Context(), task.Filter{ID: id, Owner: owner, MatchOwner: h.Policy.Strict})
	if err != nil {
		slog.Error("delete task", "trace", trace.From(r.Context()), "task", id, "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, deleteResponse{Error: msgDeleteFailed})
		return
	}
	if res.DeletedCount != 1 {
		httpx.WriteJSON(w, http.StatusNotFound, deleteResponse{Error: msgNotFound})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, deleteResponse{Success: true})
}

func (h *TaskHandler) find(w http.ResponseWriter, r *http.Request, q task.Query) {
	docs, err := h.Store.Find(r.Context(), q)
	if err != nil {
		h.storeError(w, r, http.StatusInternalServerError, msgFetchFailed, err)
		return
	}
	if docs == nil {
		docs = []task.Document{}
	}
	httpx.WriteJSON(w, http.StatusOK, docs)
}

func (h *TaskHandler) caller(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok || id.Subject == "" {
		httpx.WriteMessage(w, http.StatusUnauthorized, msgNoToken)
		return identity.Identity{}, false
	}
	return id, true
}

func (h *TaskHandler) storeError(w http.ResponseWriter, r *http.Request, code int, msg string, err error) {
	slog.Error(msg, "trace", trace.From(r.Context()), "method", r.Method, "path", r.URL.Path, "err", err)
	httpx.WriteError(w, code, msg)
}

func taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := task.ParseID(id); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidID)
		return "", false
	}
	return id, true
}

// decodeDocument reads a single JSON object from the request body.
func decodeDocument(r *http.Request) (task.Document, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("body is not a JSON object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return task.Document(task.DecodeJSON(raw).(map[string]any)), nil
}

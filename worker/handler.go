package worker

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/meikuraledutech/stratigraphie"
	"github.com/meikuraledutech/stratigraphie/validator"
)

// Handler maps requests onto a Validator. It is not safe for concurrent use;
// Worker serializes access to it.
type Handler struct {
	v      *validator.Validator
	logger *log.Logger
	commit CommitFunc
}

// CommitFunc receives the state left by a successful init, diff or reset.
// It runs on the goroutine that owns the validator, before the reply is
// sent, so calls arrive in mutation order and never overlap.
type CommitFunc func(req Request, snap stratigraphie.Snapshot) error

// NewHandler wraps v. A nil logger discards output.
func NewHandler(v *validator.Validator, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{v: v, logger: logger}
}

// OnCommit installs fn as the post-mutation hook. Set it before the worker
// starts. A failing hook is logged; the mutation itself stays applied.
func (h *Handler) OnCommit(fn CommitFunc) {
	h.commit = fn
}

// Handle runs one request to completion. Errors and panics become
// {ok:false} responses; nothing propagates to the caller.
func (h *Handler) Handle(req Request) (resp Response) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("request panicked", "id", string(req.ID), "type", req.Type, "panic", p)
			resp = failure(req.ID, fmt.Errorf("internal error: %v", p))
		}
	}()

	result, err := h.dispatch(req)
	if err != nil {
		h.logger.Error("request failed", "id", string(req.ID), "type", req.Type, "err", err)
		return failure(req.ID, err)
	}
	if h.commit != nil && mutates(req.Type) {
		if err := h.commit(req, h.v.Snapshot()); err != nil {
			h.logger.Error("commit hook failed", "id", string(req.ID), "type", req.Type, "err", err)
		}
	}
	return success(req.ID, result)
}

func mutates(typ string) bool {
	return typ == TypeInit || typ == TypeDiff || typ == TypeReset
}

func (h *Handler) dispatch(req Request) (any, error) {
	switch req.Type {
	case TypeInit:
		return nil, h.v.InitGraph(req.Nodes, req.Relations)
	case TypeDiff:
		var d stratigraphie.Diff
		if req.Diff != nil {
			d = *req.Diff
		}
		return nil, h.v.ApplyDiff(d)
	case TypeValidate:
		return h.v.ValidateRelation(req.Relation), nil
	case TypeStats:
		return h.v.Stats(), nil
	case TypeReset:
		h.v.Reset()
		return nil, nil
	case TypeSnapshot:
		return h.v.Snapshot(), nil
	default:
		return nil, fmt.Errorf("unknown message type %q", req.Type)
	}
}

package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/meikuraledutech/stratigraphie"
	"github.com/meikuraledutech/stratigraphie/validator"
	"github.com/meikuraledutech/stratigraphie/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWorker(t *testing.T) *worker.Worker {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := worker.New(worker.NewHandler(validator.New(), nil))
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return w
}

func rel(id, a, p string) stratigraphie.Relation {
	return stratigraphie.Relation{ID: id, Live: true, AnteriorUS: a, PosteriorUS: p}
}

func do(t *testing.T, w *worker.Worker, req worker.Request) worker.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := w.Do(ctx, req)
	require.NoError(t, err)
	return resp
}

func TestWorker_RequestResponse(t *testing.T) {
	w := startWorker(t)

	resp := do(t, w, worker.Request{
		ID:        json.RawMessage(`1`),
		Type:      worker.TypeInit,
		Nodes:     []string{"US-1", "US-2", "US-3"},
		Relations: []stratigraphie.Relation{rel("r1", "US-1", "US-2"), rel("r2", "US-2", "US-3")},
	})
	require.True(t, resp.OK, resp.Error)
	assert.JSONEq(t, `1`, string(resp.ID))
	assert.Nil(t, resp.Result)

	resp = do(t, w, worker.Request{ID: json.RawMessage(`"abc"`), Type: worker.TypeStats})
	require.True(t, resp.OK)
	assert.JSONEq(t, `"abc"`, string(resp.ID))
	assert.Equal(t, stratigraphie.Stats{Components: 3, Edges: 2, Nodes: 3}, resp.Result)

	back := rel("r3", "US-3", "US-1")
	resp = do(t, w, worker.Request{ID: json.RawMessage(`2`), Type: worker.TypeValidate, Relation: &back})
	require.True(t, resp.OK)
	assert.Equal(t, stratigraphie.Rejected(stratigraphie.ReasonCycleDetected), resp.Result)
}

func TestWorker_FatalErrorsBecomeResponses(t *testing.T) {
	w := startWorker(t)

	resp := do(t, w, worker.Request{
		ID:        json.RawMessage(`7`),
		Type:      worker.TypeInit,
		Relations: []stratigraphie.Relation{rel("r1", "A", "B"), rel("r2", "B", "A")},
	})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, `"r2"`)
	assert.Contains(t, resp.Error, string(stratigraphie.ReasonCycleDetected))

	resp = do(t, w, worker.Request{ID: json.RawMessage(`8`), Type: "explode"})
	assert.False(t, resp.OK)
	assert.Equal(t, `unknown message type "explode"`, resp.Error)
}

func TestWorker_DiffRollback(t *testing.T) {
	w := startWorker(t)

	resp := do(t, w, worker.Request{
		ID:        json.RawMessage(`1`),
		Type:      worker.TypeInit,
		Relations: []stratigraphie.Relation{rel("ab", "A", "B")},
	})
	require.True(t, resp.OK)

	resp = do(t, w, worker.Request{
		ID:   json.RawMessage(`2`),
		Type: worker.TypeDiff,
		Diff: &stratigraphie.Diff{Added: []stratigraphie.Relation{rel("bc", "B", "C"), rel("ca", "C", "A")}},
	})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, `"ca"`)

	resp = do(t, w, worker.Request{ID: json.RawMessage(`3`), Type: worker.TypeStats})
	assert.Equal(t, stratigraphie.Stats{Components: 2, Edges: 1, Nodes: 2}, resp.Result)

	resp = do(t, w, worker.Request{ID: json.RawMessage(`4`), Type: worker.TypeDiff})
	assert.True(t, resp.OK, "an empty diff is a no-op")

	resp = do(t, w, worker.Request{ID: json.RawMessage(`5`), Type: worker.TypeSnapshot})
	require.True(t, resp.OK)
	snap, ok := resp.Result.(stratigraphie.Snapshot)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, snap.Nodes)

	resp = do(t, w, worker.Request{ID: json.RawMessage(`6`), Type: worker.TypeReset})
	assert.True(t, resp.OK)
	resp = do(t, w, worker.Request{ID: json.RawMessage(`7`), Type: worker.TypeStats})
	assert.Equal(t, stratigraphie.Stats{}, resp.Result)
}

func TestWorker_Serve(t *testing.T) {
	w := startWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := make(chan worker.Request, 3)
	out := make(chan worker.Response, 3)
	in <- worker.Request{ID: json.RawMessage(`1`), Type: worker.TypeInit, Nodes: []string{"x"}}
	in <- worker.Request{ID: json.RawMessage(`2`), Type: "nope"}
	in <- worker.Request{ID: json.RawMessage(`3`), Type: worker.TypeStats}
	close(in)

	require.NoError(t, w.Serve(ctx, in, out))
	close(out)

	var ids []string
	for resp := range out {
		ids = append(ids, string(resp.ID))
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestWorker_Closed(t *testing.T) {
	w := worker.New(worker.NewHandler(validator.New(), nil))
	w.Close()

	_, err := w.Do(context.Background(), worker.Request{Type: worker.TypeStats})
	assert.True(t, errors.Is(err, worker.ErrClosed))
}

func TestHandler_OnCommit(t *testing.T) {
	h := worker.NewHandler(validator.New(), nil)
	var types []string
	var last stratigraphie.Snapshot
	h.OnCommit(func(req worker.Request, snap stratigraphie.Snapshot) error {
		types = append(types, req.Type)
		last = snap
		return nil
	})

	h.Handle(worker.Request{ID: json.RawMessage(`1`), Type: worker.TypeInit, Nodes: []string{"A", "B"}})
	h.Handle(worker.Request{ID: json.RawMessage(`2`), Type: worker.TypeDiff, Diff: &stratigraphie.Diff{
		Added: []stratigraphie.Relation{{ID: "r1", Live: true, AnteriorUS: "A", PosteriorUS: "B"}},
	}})
	h.Handle(worker.Request{ID: json.RawMessage(`3`), Type: worker.TypeStats})
	resp := h.Handle(worker.Request{ID: json.RawMessage(`4`), Type: worker.TypeDiff, Diff: &stratigraphie.Diff{
		Added: []stratigraphie.Relation{{ID: "r2", Live: true, AnteriorUS: "B", PosteriorUS: "A"}},
	}})
	require.False(t, resp.OK)

	assert.Equal(t, []string{worker.TypeInit, worker.TypeDiff}, types, "reads and rejected diffs do not commit")
	require.Len(t, last.Relations, 1)
	assert.Equal(t, "r1", last.Relations[0].ID)

	h.OnCommit(func(worker.Request, stratigraphie.Snapshot) error { return errors.New("disk full") })
	resp = h.Handle(worker.Request{ID: json.RawMessage(`5`), Type: worker.TypeReset})
	assert.True(t, resp.OK, "a failing hook does not undo the mutation")
}

func TestResponse_JSON(t *testing.T) {
	ok := worker.Response{ID: json.RawMessage(`3`), OK: true}
	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"ok":true,"result":null}`, string(data))

	fail := worker.Response{ID: json.RawMessage(`"x"`), Error: "boom"}
	data, err = json.Marshal(fail)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","ok":false,"error":"boom"}`, string(data))

	res := worker.Response{ID: json.RawMessage(`4`), OK: true, Result: stratigraphie.Rejected(stratigraphie.ReasonSelfTargeting)}
	data, err = json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"ok":true,"result":{"ok":false,"reason":"SELF_TARGETING"}}`, string(data))

	var back worker.Response
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.OK)
	assert.JSONEq(t, `{"ok":false,"reason":"SELF_TARGETING"}`, string(back.Result.(json.RawMessage)))
}

func TestDecodeRequest(t *testing.T) {
	req, err := worker.DecodeRequest([]byte(`{
		"id": 12,
		"type": "validate",
		"relation": {"relation_id": "r1", "live": true, "is_contemporain": true,
		             "us_anterieure": "US-1", "groupe_posterieur": "F-2"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, worker.TypeValidate, req.Type)
	assert.JSONEq(t, `12`, string(req.ID))
	require.NotNil(t, req.Relation)
	assert.True(t, req.Relation.Contemporain)
	assert.Equal(t, "F-2", req.Relation.PosteriorKey())

	_, err = worker.DecodeRequest([]byte(`{"id": 1}`))
	assert.Error(t, err)
	_, err = worker.DecodeRequest([]byte(`not json`))
	assert.Error(t, err)
}

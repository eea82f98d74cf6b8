package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/starford/storyloom/internal/editor"
	"github.com/starford/storyloom/internal/graph"
	"github.com/starford/storyloom/internal/models"
)

func openSession(t *testing.T, router http.Handler, path string) editor.State {
	t.Helper()
	var body any
	if path != "" {
		body = OpenSessionRequest{Path: path}
	}
	w := do(t, router, http.MethodPost, "/sessions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("open session = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[editor.State](t, w)
}

func TestSessionFromLibrary(t *testing.T) {
	_, router := testEnv(t, "")
	createSample(t, router, "lib.json")

	st := openSession(t, router, "lib.json")
	if st.StartNodeID != "greet" || len(st.Nodes) != 2 || len(st.Edges) != 1 {
		t.Fatalf("state = %+v", st)
	}

	w := do(t, router, http.MethodGet, "/sessions", nil)
	list := decode[SessionListResponse](t, w)
	if len(list.Sessions) != 1 || list.Sessions[0].Source != "lib.json" {
		t.Errorf("sessions = %+v", list.Sessions)
	}

	if w := do(t, router, http.MethodDelete, "/sessions/"+st.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("close = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/sessions/"+st.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("state after close = %d, want 404", w.Code)
	}
}

func TestSessionOpen_MissingStory(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/sessions", OpenSessionRequest{Path: "none.json"}); w.Code != http.StatusNotFound {
		t.Errorf("open missing = %d, want 404", w.Code)
	}
}

func TestSessionBuildAndExport(t *testing.T) {
	_, router := testEnv(t, "")
	st := openSession(t, router, "")
	base := "/sessions/" + st.ID

	// Export before any node exists.
	if w := do(t, router, http.MethodGet, base+"/export", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("export empty = %d, want 422", w.Code)
	}

	w := do(t, router, http.MethodPost, base+"/nodes", AddNodeRequest{
		Fields: &graph.NodeFields{
			Text:    "Pick one",
			Speaker: "bob",
			Choices: []graph.ChoiceFields{{Text: "Left"}, {Text: "Right"}},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add node = %d, body = %s", w.Code, w.Body.String())
	}
	first := decode[NodeResponse](t, w).NodeID

	w = do(t, router, http.MethodPost, base+"/nodes", AddNodeRequest{
		Fields:   &graph.NodeFields{Text: "The end", IsEnding: true},
		Position: models.Position{X: 300},
	})
	second := decode[NodeResponse](t, w).NodeID

	w = do(t, router, http.MethodPost, base+"/edges", ConnectRequest{Source: first, Target: second, Slot: "choice-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("connect = %d, body = %s", w.Code, w.Body.String())
	}
	edge := decode[graph.Edge](t, w)
	if edge.Label != "Right" {
		t.Errorf("edge label = %q, want Right", edge.Label)
	}

	if w := do(t, router, http.MethodPost, base+"/edges", ConnectRequest{Source: first, Target: second, Slot: "choice-x"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad slot = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/edges", ConnectRequest{Source: first, Target: "ghost"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown target = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodGet, base+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "story.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := w.Body.String()
	for _, want := range []string{`"next": ""`, `"next": "` + second + `"`, `"speaker": "bob"`, `"function_name": null`} {
		if !strings.Contains(body, want) {
			t.Errorf("export missing %s:\n%s", want, body)
		}
	}

	if w := do(t, router, http.MethodDelete, base+"/edges/"+edge.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("disconnect = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, base+"/edges/"+edge.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second disconnect = %d, want 404", w.Code)
	}
}

func TestSessionCommands(t *testing.T) {
	_, router := testEnv(t, "")
	st := openSession(t, router, "")
	base := "/sessions/" + st.ID

	w := do(t, router, http.MethodPost, base+"/commands", CommandsRequest{Commands: []editor.Command{
		{Op: editor.OpAddNode, Fields: &graph.NodeFields{Text: "A"}},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("commands = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[CommandsResponse](t, w)
	a := resp.Outcomes[0].NodeID

	w = do(t, router, http.MethodPost, base+"/commands", CommandsRequest{Commands: []editor.Command{
		{Op: editor.OpCopy, NodeID: a},
		{Op: editor.OpPaste, Position: &models.Position{X: 50, Y: 50}},
		{Op: "explode"},
	}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown op = %d, want 400", w.Code)
	}

	st2 := decode[editor.State](t, do(t, router, http.MethodGet, base, nil))
	if len(st2.Nodes) != 2 {
		t.Errorf("nodes after partial batch = %d, want 2", len(st2.Nodes))
	}
}

func TestSessionNodeLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	st := openSession(t, router, "")
	base := "/sessions/" + st.ID

	id := decode[NodeResponse](t, do(t, router, http.MethodPost, base+"/nodes", nil)).NodeID

	if w := do(t, router, http.MethodPut, base+"/nodes/"+id, graph.NodeFields{Text: "Edited"}); w.Code != http.StatusNoContent {
		t.Errorf("update = %d", w.Code)
	}
	if w := do(t, router, http.MethodPut, base+"/nodes/"+id+"/position", PositionRequest{Position: models.Position{X: 10, Y: 20}}); w.Code != http.StatusNoContent {
		t.Errorf("move = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/paste", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("paste empty clipboard = %d, want 422", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/nodes/"+id+"/copy", nil); w.Code != http.StatusOK {
		t.Errorf("copy = %d", w.Code)
	}
	pasted := decode[NodeResponse](t, do(t, router, http.MethodPost, base+"/paste", PositionRequest{}))
	if pasted.NodeID == "" || pasted.NodeID == id {
		t.Errorf("pasted id = %q", pasted.NodeID)
	}
	if w := do(t, router, http.MethodPut, base+"/start", StartRequest{NodeID: pasted.NodeID}); w.Code != http.StatusNoContent {
		t.Errorf("set start = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, base+"/nodes/"+id, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, base+"/nodes/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete again = %d, want 404", w.Code)
	}

	final := decode[editor.State](t, do(t, router, http.MethodGet, base, nil))
	if final.StartNodeID != pasted.NodeID || len(final.Nodes) != 1 || final.Nodes[0].Text != "Edited" {
		t.Errorf("final state = %+v", final)
	}
}

func TestSessionCharacters(t *testing.T) {
	_, router := testEnv(t, "")
	st := openSession(t, router, "")
	base := "/sessions/" + st.ID

	if w := do(t, router, http.MethodPost, base+"/characters", CharacterRequest{ID: " ann ", Name: "Ann"}); w.Code != http.StatusOK {
		t.Fatalf("add = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodPost, base+"/characters", CharacterRequest{ID: "ann", Name: "Other"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/characters", CharacterRequest{ID: "", Name: "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("empty id = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPut, base+"/characters/ann", CharacterRequest{Name: "Annie"}); w.Code != http.StatusNoContent {
		t.Errorf("rename = %d", w.Code)
	}

	w := do(t, router, http.MethodGet, base+"/characters/export", nil)
	if !strings.Contains(w.Body.String(), `"name": "Annie"`) {
		t.Errorf("export = %s", w.Body.String())
	}

	w = do(t, router, http.MethodPut, base+"/characters/import", `{"characters": [{"id": "z", "name": "Zed"}]}`)
	chars := decode[[]models.Character](t, w)
	if len(chars) != 1 || chars[0].ID != "z" {
		t.Errorf("imported = %+v", chars)
	}
	if w := do(t, router, http.MethodPut, base+"/characters/import", `{"nodes": {}}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad import = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodDelete, base+"/characters/ann", nil); w.Code != http.StatusNotFound {
		t.Errorf("remove replaced = %d, want 404", w.Code)
	}
}

func TestSessionImportAndPlayback(t *testing.T) {
	_, router := testEnv(t, "")
	st := openSession(t, router, "")
	base := "/sessions/" + st.ID

	// Import keeps the caller's start designation, which is empty here.
	w := do(t, router, http.MethodPost, base+"/import", `{
		"characters": [{"id": "guide", "name": "The Guide"}],
		"nodes": {
			"a": {"text": "Welcome, {guide}.", "choices": [], "isEnding": false, "function_name": null, "speaker": "guide", "is_me": false, "next": "b"},
			"b": {"text": "Bye", "choices": [], "isEnding": true, "function_name": null, "speaker": null, "is_me": true}
		}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodPost, base+"/import", `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("bad import = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodGet, base+"/playback", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("view before preview = %d, want 422", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/playback", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("preview without start = %d, want 422", w.Code)
	}

	w = do(t, router, http.MethodPost, base+"/playback", PreviewRequest{Start: "a"})
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d, body = %s", w.Code, w.Body.String())
	}
	v := decode[PlaybackView](t, w)
	if v.Text != "Welcome, The Guide." || v.Speaker != "The Guide" || v.Next != "b" {
		t.Errorf("view = %+v", v)
	}

	v = decode[PlaybackView](t, do(t, router, http.MethodPost, base+"/playback/choose", ChooseRequest{Target: "b"}))
	if v.NodeID != "b" || !v.Terminal || !v.CanGoBack {
		t.Errorf("after choose = %+v", v)
	}
	v = decode[PlaybackView](t, do(t, router, http.MethodPost, base+"/playback/back", nil))
	if v.NodeID != "a" || v.CanGoBack {
		t.Errorf("after back = %+v", v)
	}

	if w := do(t, router, http.MethodDelete, base+"/playback", nil); w.Code != http.StatusNoContent {
		t.Errorf("stop = %d", w.Code)
	}
}

func TestSessionSave(t *testing.T) {
	_, router := testEnv(t, "")
	created := createSample(t, router, "save.json")
	st := openSession(t, router, "save.json")
	base := "/sessions/" + st.ID

	_ = do(t, router, http.MethodPut, base+"/characters/alice", CharacterRequest{Name: "Alicia"})

	if w := do(t, router, http.MethodPost, base+"/save", nil, "If-Match", "stale"); w.Code != http.StatusConflict {
		t.Errorf("stale save = %d, want 409", w.Code)
	}
	w := do(t, router, http.MethodPost, base+"/save", nil, "If-Match", created.Checksum)
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}

	story := decode[StoryDetail](t, do(t, router, http.MethodGet, "/stories/save.json", nil))
	if story.Story.Characters[0].Name != "Alicia" {
		t.Errorf("saved characters = %+v", story.Story.Characters)
	}
	if ids := story.Story.NodeIDs(); len(ids) != 2 || ids[0] != "greet" {
		t.Errorf("saved node order = %v", ids)
	}

	if w := do(t, router, http.MethodPost, base+"/save", SaveRequest{Path: "copy.json"}); w.Code != http.StatusOK {
		t.Errorf("save as = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/stories/copy.json", nil); w.Code != http.StatusOK {
		t.Errorf("saved copy = %d", w.Code)
	}
}

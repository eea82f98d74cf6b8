package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/storyloom/internal/models"
)

func TestParse_Canonical(t *testing.T) {
	data := []byte(`{
  "characters": [{"id": "a", "name": "Ann"}],
  "nodes": {
    "n2": {"text": "Second", "choices": [], "isEnding": true, "function_name": null, "speaker": null, "is_me": false},
    "n1": {"text": "First", "choices": [{"text": "Go", "next": "n2", "function_name": "jump", "id": "c"}], "speaker": "a"}
  }
}`)
	doc, shape, err := ParseShape(data)
	if err != nil {
		t.Fatal(err)
	}
	if shape != ShapeCanonical {
		t.Errorf("shape = %v", shape)
	}
	if got := strings.Join(doc.NodeIDs(), ","); got != "n2,n1" {
		t.Errorf("node order = %q, want document order", got)
	}
	n1, _ := doc.Node("n1")
	if models.Value(n1.Speaker) != "a" || models.Value(n1.Choices[0].FunctionName) != "jump" {
		t.Errorf("n1 = %+v", n1)
	}
	n2, _ := doc.Node("n2")
	if n2.Speaker != nil || !n2.IsEnding {
		t.Errorf("n2 = %+v", n2)
	}
	if len(doc.Characters) != 1 || doc.Characters[0].Name != "Ann" {
		t.Errorf("characters = %+v", doc.Characters)
	}
}

func TestParse_CanonicalWithoutCharacters(t *testing.T) {
	doc, err := Parse([]byte(`{"nodes": {"a": {"text": "x", "choices": []}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Characters == nil {
		t.Error("characters should be an empty slice, not nil")
	}
}

func TestParse_Legacy(t *testing.T) {
	data := []byte(`{
  "start": {"text": "Hi", "choices": [{"text": "On", "next": "mid"}]},
  "mid": {"text": "Mid", "choices": [], "next": "start"}
}`)
	doc, shape, err := ParseShape(data)
	if err != nil {
		t.Fatal(err)
	}
	if shape != ShapeLegacy || shape.String() != "legacy" {
		t.Errorf("shape = %v", shape)
	}
	if got := strings.Join(doc.NodeIDs(), ","); got != "start,mid" {
		t.Errorf("node ids = %q", got)
	}
	mid, _ := doc.Node("mid")
	if mid.Next != "start" {
		t.Errorf("mid.next = %q", mid.Next)
	}
	if len(doc.Characters) != 0 {
		t.Errorf("legacy documents have no characters")
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		data string
		msg  string
	}{
		{"malformed", `{"nodes": `, "malformed JSON"},
		{"not object", `[1, 2]`, ""},
		{"characters only", `{"characters": []}`, `missing "nodes"`},
		{"empty legacy", `{}`, `missing "nodes"`},
		{"legacy scalar", `{"a": {"text": "x"}, "b": 5}`, `node "b" is not an object`},
		{"nodes array", `{"nodes": []}`, ""},
		{"null node", `{"nodes": {"a": null}}`, `node "a" is null`},
		{"wrong type", `{"nodes": {"a": {"text": 5}}}`, "invalid field type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, models.ErrImportParse) {
				t.Errorf("err = %v, want ErrImportParse", err)
			}
			var pe *ImportParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err %T is not *ImportParseError", err)
			}
			if tc.msg != "" && !strings.Contains(pe.Error(), tc.msg) {
				t.Errorf("message = %q, want it to contain %q", pe.Error(), tc.msg)
			}
		})
	}
}

func TestParseCharacterFile(t *testing.T) {
	f, err := ParseCharacterFile([]byte(`{"characters": [{"id": "b", "name": "Bob"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Characters) != 1 || f.Characters[0].ID != "b" {
		t.Errorf("characters = %+v", f.Characters)
	}

	for _, bad := range []string{`{}`, `{"characters": 3}`, `nope`} {
		if _, err := ParseCharacterFile([]byte(bad)); !errors.Is(err, models.ErrImportParse) {
			t.Errorf("%s: err = %v, want ErrImportParse", bad, err)
		}
	}
}

package registry

import (
	"os"
	"path/filepath"
	"testing"

	"chatd/pkg/types"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestBuiltinCatalog(t *testing.T) {
	r := Builtin()
	if r.Len() != 3 {
		t.Fatalf("expected 3 builtin models, got %d", r.Len())
	}
	d, ok := r.Describe("Qwen/Qwen2.5-VL-3B-Instruct")
	if !ok || d.Architecture != types.VisionLanguage || d.Size != "3B" {
		t.Fatalf("unexpected qwen descriptor: %+v ok=%v", d, ok)
	}
	d, ok = r.Describe("THUDM/chatglm3-6b")
	if !ok || d.Architecture != types.CausalText || d.Name != "ChatGLM3-6B" {
		t.Fatalf("unexpected chatglm descriptor: %+v ok=%v", d, ok)
	}
	if _, ok := r.Describe("nope/missing"); ok {
		t.Fatalf("unknown id should not be found")
	}
}

func TestListReturnsCopyInOrder(t *testing.T) {
	r := Builtin()
	out := r.List()
	out[0].ID = "z"
	again := r.List()
	if again[0].ID != "Qwen/Qwen2.5-VL-3B-Instruct" {
		t.Fatalf("registry mutated via returned slice")
	}
	if again[2].ID != "deepseek-ai/DeepSeek-R1-Distill-Qwen-1.5B" {
		t.Fatalf("order not preserved: %+v", again)
	}
}

func TestNewValidates(t *testing.T) {
	cases := []struct {
		name   string
		models []types.ModelDescriptor
	}{
		{"empty id", []types.ModelDescriptor{{ID: " ", Architecture: types.CausalText}}},
		{"duplicate", []types.ModelDescriptor{{ID: "a", Architecture: types.CausalText}, {ID: "a", Architecture: types.CausalText}}},
		{"bad type", []types.ModelDescriptor{{ID: "a", Architecture: "qwen2"}}},
	}
	for _, c := range cases {
		if _, err := New(c.models); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
	r, err := New([]types.ModelDescriptor{{ID: "org/m", Architecture: types.CausalText}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if d, _ := r.Describe("org/m"); d.Name != "org/m" {
		t.Fatalf("name should default to id, got %q", d.Name)
	}
}

func TestLoadFileFormats(t *testing.T) {
	d := t.TempDir()
	files := map[string]string{
		"cat.yaml": "models:\n  - id: org/vl\n    name: VL\n    size: 3B\n    type: vision_language\n",
		"cat.json": `{"models":[{"id":"org/vl","name":"VL","size":"3B","type":"vision_language"}]}`,
		"cat.toml": "[[models]]\nid = \"org/vl\"\nname = \"VL\"\nsize = \"3B\"\ntype = \"vision_language\"\n",
	}
	for name, content := range files {
		r, err := LoadFile(writeTempFile(t, d, name, content))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		m, ok := r.Describe("org/vl")
		if !ok || m.Architecture != types.VisionLanguage || m.Name != "VL" {
			t.Fatalf("%s: unexpected descriptor %+v", name, m)
		}
	}
}

func TestShippedGGUFCatalog(t *testing.T) {
	r, err := LoadFile(filepath.Join("..", "..", "configs", "catalog-gguf.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m, ok := r.Describe("ggml-org/Qwen2.5-VL-3B-Instruct-GGUF")
	if !ok || m.Architecture != types.VisionLanguage {
		t.Fatalf("vision entry %+v", m)
	}
	if len(r.List()) != 3 {
		t.Fatalf("models=%d", len(r.List()))
	}
}

func TestLoadErrors(t *testing.T) {
	d := t.TempDir()
	if _, err := LoadFile(writeTempFile(t, d, "cat.txt", "x")); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := LoadFile(writeTempFile(t, d, "empty.yaml", "models: []\n")); err == nil {
		t.Fatalf("expected error for empty catalog")
	}
	if _, err := LoadFile(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	r, err := Load("")
	if err != nil || r.Len() != 3 {
		t.Fatalf("empty path should yield builtin catalog, got %v %v", r, err)
	}
}

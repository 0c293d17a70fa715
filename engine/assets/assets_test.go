package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/spaghettifunk/triangle/engine/resources"
)

func TestBuiltinTriangleShader(t *testing.T) {
	am := NewAssetManager(nil)
	if err := am.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	res, err := am.LoadAsset("triangle", resources.ResourceTypeShader, nil)
	if err != nil {
		t.Fatalf("LoadAsset: %v", err)
	}
	src, ok := res.Text()
	if !ok {
		t.Fatalf("shader data is %T, want string", res.Data)
	}
	for _, entry := range []string{"fn vertex(", "fn fragment("} {
		if !strings.Contains(src, entry) {
			t.Errorf("shader source is missing %q", entry)
		}
	}
	if res.Name != "triangle" {
		t.Errorf("Name = %q, want triangle", res.Name)
	}
	if err := am.UnloadAsset(res); err != nil {
		t.Fatalf("UnloadAsset: %v", err)
	}
	if res.Data != nil || res.DataSize != 0 {
		t.Errorf("unloaded resource still holds data")
	}
}

func TestLoadAsset(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/a.wgsl":   {Data: []byte("@vertex fn vertex() {}")},
		"shaders/bad.wgsl": {Data: []byte{0xff, 0xfe, 0xfd}},
		"shaders/notes.md": {Data: []byte("# notes")},
	}
	am := NewAssetManager(fsys)
	if err := am.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	want := []string{"shaders/a.wgsl", "shaders/bad.wgsl"}
	got := am.Assets()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Assets() = %v, want %v", got, want)
	}

	tests := []struct {
		name    string
		typ     resources.ResourceType
		wantErr bool
	}{
		{name: "a", typ: resources.ResourceTypeShader},
		{name: "missing", typ: resources.ResourceTypeShader, wantErr: true},
		{name: "bad", typ: resources.ResourceTypeShader, wantErr: true},
		{name: "a", typ: resources.ResourceTypeBinary, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.typ.String(), func(t *testing.T) {
			res, err := am.LoadAsset(tt.name, tt.typ, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got resource %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.DataSize != uint64(len(fsys["shaders/a.wgsl"].Data)) {
				t.Errorf("DataSize = %d", res.DataSize)
			}
		})
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "triangle.wgsl")
	if err := os.WriteFile(target, []byte("fn vertex() {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-w.Events:
		if name != target {
			t.Errorf("event for %q, want %q", name, target)
		}
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the shader file")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err == nil {
		t.Error("second Close should fail")
	}
}

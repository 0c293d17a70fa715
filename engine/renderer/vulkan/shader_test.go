package vulkan

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/spaghettifunk/triangle/engine/assets"
	"github.com/spaghettifunk/triangle/engine/core"
	"github.com/spaghettifunk/triangle/engine/resources"
)

func TestBytesToBytecode(t *testing.T) {
	valid := make([]byte, 8)
	binary.LittleEndian.PutUint32(valid, spirvMagic)
	binary.LittleEndian.PutUint32(valid[4:], 0x00010000)

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"valid", valid, false},
		{"empty", nil, true},
		{"unaligned", valid[:6], true},
		{"bad magic", []byte{1, 2, 3, 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := BytesToBytecode(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BytesToBytecode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (len(code) != 2 || code[1] != 0x00010000) {
				t.Errorf("BytesToBytecode() = %#x", code)
			}
		})
	}
}

func TestCompileTriangleShader(t *testing.T) {
	manager := assets.NewAssetManager(nil)
	if err := manager.Initialize(); err != nil {
		t.Fatal(err)
	}
	res, err := manager.LoadAsset("triangle", resources.ResourceTypeShader, nil)
	if err != nil {
		t.Fatal(err)
	}

	src, ok := res.Text()
	if !ok {
		t.Fatalf("resource %q holds no text", res.Name)
	}
	code, err := CompileWGSL(src)
	if err != nil {
		t.Fatalf("CompileWGSL() error = %v", err)
	}
	if code[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", code[0], spirvMagic)
	}
}

func TestCompileInvalidShader(t *testing.T) {
	if _, err := CompileWGSL("@vertex fn broken("); !errors.Is(err, core.ErrShaderCompile) {
		t.Errorf("CompileWGSL() error = %v, want ErrShaderCompile", err)
	}
}

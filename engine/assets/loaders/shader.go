package loaders

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/spaghettifunk/triangle/engine/resources"
)

type ShaderLoader struct{}

// Load reads a WGSL source file. The resource data is the source text.
func (sl *ShaderLoader) Load(fsys fs.FS, p string, params interface{}) (*resources.Resource, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("shader source %s is not valid UTF-8", p)
	}
	return &resources.Resource{
		Name:     strings.TrimSuffix(path.Base(p), path.Ext(p)),
		FullPath: p,
		Type:     resources.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     string(data),
	}, nil
}

func (sl *ShaderLoader) Unload(r *resources.Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}

package assets

import (
	"io/fs"

	"github.com/spaghettifunk/triangle/engine/resources"
)

type Loader interface {
	Load(fsys fs.FS, path string, params interface{}) (*resources.Resource, error)
	Unload(*resources.Resource) error
}

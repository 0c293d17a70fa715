package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/spaghettifunk/triangle/engine/assets/loaders"
	"github.com/spaghettifunk/triangle/engine/core"
	"github.com/spaghettifunk/triangle/engine/resources"
)

//go:embed shaders/*.wgsl
var builtin embed.FS

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the files of a read-only file system and loads them
// through the loader registered for their type.
type AssetManager struct {
	fsys    fs.FS
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader

	mutex sync.RWMutex
}

// NewAssetManager returns a manager over fsys. A nil fsys selects the assets
// compiled into the binary.
func NewAssetManager(fsys fs.FS) *AssetManager {
	if fsys == nil {
		fsys = builtin
	}
	return &AssetManager{
		fsys:    fsys,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[resources.ResourceType]Loader),
	}
}

func (am *AssetManager) Initialize() error {
	// Register loaders
	am.registerLoader(resources.ResourceTypeShader, &loaders.ShaderLoader{})

	err := fs.WalkDir(am.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(p)
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed to index assets: %w", err)
		core.LogError("%s", err)
		return err
	}
	core.LogDebug("Asset manager indexed %d assets.", len(am.assets))
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads an asset by name using the appropriate loader
func (am *AssetManager) LoadAsset(name string, resourceType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	var p string
	switch resourceType {
	case resources.ResourceTypeShader:
		p = fmt.Sprintf("shaders/%s.wgsl", name)
	default:
		err := fmt.Errorf("unknown resource type %s", resourceType)
		return nil, err
	}

	am.mutex.Lock()
	asset, exists := am.assets[p]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[p] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", p)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}

	return loader.Load(am.fsys, p, params)
}

func (am *AssetManager) UnloadAsset(asset *resources.Resource) error {
	loader, ok := am.loaders[asset.Type]
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Unload(asset)
}

// Assets lists the indexed asset paths in lexical order.
func (am *AssetManager) Assets() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	out := make([]string, 0, len(am.assets))
	for p := range am.assets {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(p string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	assetType := determineAssetType(p)
	if assetType == resources.ResourceTypeNone {
		return
	}
	am.assets[p] = AssetInfo{
		Path:       p,
		Type:       assetType,
		LastLoaded: time.Time{},
	}
}

func determineAssetType(p string) resources.ResourceType {
	switch path.Ext(p) {
	case ".wgsl":
		return resources.ResourceTypeShader
	default:
		return resources.ResourceTypeNone
	}
}

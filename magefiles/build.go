//go:build mage

package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/magefile/mage/mg"
)

const (
	shaderDir = "engine/assets/shaders"
	outputDir = "bin"
)

type Build mg.Namespace

// Compiles the WGSL shaders to SPIR-V under bin/shaders for inspection.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the triangle binary into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join(outputDir, "triangle"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	sources, err := filepath.Glob(filepath.Join(shaderDir, "*.wgsl"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(outputDir, "shaders"), 0o755); err != nil {
		return err
	}
	for _, src := range sources {
		if err := compileShader(src); err != nil {
			return err
		}
	}
	return nil
}

func compileShader(src string) error {
	source, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	spirv, err := naga.Compile(string(source))
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if len(spirv) < 4 || binary.LittleEndian.Uint32(spirv) != 0x07230203 {
		return fmt.Errorf("%s: compiler output is not SPIR-V", src)
	}

	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".spv"
	dst := filepath.Join(outputDir, "shaders", name)
	if err := os.WriteFile(dst, spirv, 0o644); err != nil {
		return err
	}
	fmt.Printf("Compiled %s -> %s (%d bytes)\n", src, dst, len(spirv))
	return nil
}

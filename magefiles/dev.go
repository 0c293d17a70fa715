//go:build mage

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/triangle/engine/assets"
)

type Dev mg.Namespace

// Recompiles a shader every time it is saved. Stops on Ctrl+C.
func (Dev) Watch() error {
	if err := buildShaders(); err != nil {
		fmt.Println(err)
	}

	w, err := assets.NewWatcher(shaderDir)
	if err != nil {
		return err
	}
	defer w.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	fmt.Printf("Watching %s...\n", shaderDir)
	for {
		select {
		case path := <-w.Events:
			// Broken shaders are reported and the watch goes on.
			if err := compileShader(path); err != nil {
				fmt.Println(err)
			}
		case err := <-w.Errors:
			fmt.Println("watch error:", err)
		case <-interrupt:
			return nil
		}
	}
}

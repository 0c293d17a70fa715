/*
Opens a window and draws a red frame with a blue triangle on every repaint.
*/
package main

import (
	"github.com/spaghettifunk/triangle/engine"
	"github.com/spaghettifunk/triangle/engine/core"
)

func main() {
	cfg, err := engine.DefaultApplicationConfig()
	if err != nil {
		core.LogFatal("invalid configuration: %s", err)
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("initialization failed: %s", err)
	}

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}

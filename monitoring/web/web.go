// Package web holds the page served by the monitor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

// DevModeEnv names the environment variable that makes the monitor serve the
// page from the source tree, so that it can be edited without rebuilding.
const DevModeEnv = "CACHESIM_MONITOR_DEV"

//go:embed dist/*
var dist embed.FS

// GetAssets returns the file system that holds the monitor page.
func GetAssets() http.FileSystem {
	if inDevMode() {
		dir := sourceDistDir()
		logrus.Infof("serving monitor assets from %s", dir)

		return http.Dir(dir)
	}

	assets, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(assets)
}

func sourceDistDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the monitor assets")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}

func inDevMode() bool {
	switch os.Getenv(DevModeEnv) {
	case "1", "true", "TRUE", "True":
		return true
	default:
		return false
	}
}

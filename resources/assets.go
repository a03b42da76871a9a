package resources

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
)

const (
	logoDir  = "logo/"
	soundDir = "sounds/"
)

//go:embed logo/*.png
var logoFS embed.FS

//go:embed sounds/*.wav
var soundFS embed.FS

var logoCache sync.Map
var soundFiles sync.Map

// Logo returns a Fyne resource for the given logo file.
func Logo(fileName string) (fyne.Resource, error) {
	if cached, ok := logoCache.Load(fileName); ok {
		return cached.(fyne.Resource), nil
	}

	data, err := logoFS.ReadFile(logoDir + fileName)
	if err != nil {
		return nil, fmt.Errorf("load resource %s: %w", logoDir+fileName, err)
	}

	resource := fyne.NewStaticResource(fileName, data)
	logoCache.Store(fileName, resource)
	return resource, nil
}

// MustLogo returns a Fyne resource or panics on error.
func MustLogo(fileName string) fyne.Resource {
	resource, err := Logo(fileName)
	if err != nil {
		panic(err)
	}
	return resource
}

// SoundFile resolves a sound source to a path a system player can open.
// Existing files are used as they are; "sounds/<name>" falls back to the
// embedded copy, written once into cacheDir.
func SoundFile(cacheDir, source string) (string, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return source, nil
	}
	if cached, ok := soundFiles.Load(source); ok {
		return cached.(string), nil
	}

	name := filepath.Base(source)
	data, err := soundFS.ReadFile(soundDir + name)
	if err != nil {
		return "", fmt.Errorf("load sound %s: %w", source, err)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create sound cache: %w", err)
	}
	path := filepath.Join(cacheDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write sound %s: %w", path, err)
	}
	soundFiles.Store(source, path)
	return path, nil
}

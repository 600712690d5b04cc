// Package ffmpeg locates the ffmpeg and ffprobe binaries used for
// subtitle stream extraction.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths
)

// Ensure resolves both binaries once per process. Explicit paths from
// SUBLATE_FFMPEG_PATH and SUBLATE_FFPROBE_PATH win over $PATH lookup.
func Ensure() (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = ensure()
	})
	return ensurePath, ensureErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

func ensure() (BinaryPaths, error) {
	ffmpegPath, err := resolve("ffmpeg", "SUBLATE_FFMPEG_PATH")
	if err != nil {
		return BinaryPaths{}, err
	}
	ffprobePath, err := resolve("ffprobe", "SUBLATE_FFPROBE_PATH")
	if err != nil {
		return BinaryPaths{}, err
	}
	return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

func resolve(name, envVar string) (string, error) {
	if path := os.Getenv(envVar); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("%s points to %s: %w", envVar, path, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s points to a directory: %s", envVar, path)
		}
		return path, nil
	}
	if found, err := exec.LookPath(name); err == nil {
		return found, nil
	}
	return "", fmt.Errorf(
		"%s not found: install it or set %s to the binary location",
		name,
		envVar,
	)
}

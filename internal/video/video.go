// Package video probes media containers and extracts embedded subtitle
// streams so they can be fed through the translation pipeline.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// SubtitleStream describes one subtitle stream inside a media container.
// Position counts subtitle streams only and matches ffmpeg's 0:s:N stream
// specifier; StreamIndex is the absolute index within the container.
type SubtitleStream struct {
	Position    int
	StreamIndex int
	Codec       string
	Language    string
	Title       string
}

// TextBased reports whether the stream holds text cues that ffmpeg can
// convert to SRT. Bitmap formats (PGS, DVD) would need OCR.
func (s SubtitleStream) TextBased() bool {
	return textSubtitleCodecs[s.Codec]
}

var textSubtitleCodecs = map[string]bool{
	"subrip":   true,
	"srt":      true,
	"webvtt":   true,
	"mov_text": true,
	"text":     true,
	"ass":      true,
	"ssa":      true,
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Tags      map[string]string `json:"tags"`
}

// ProbeSubtitleStreams runs ffprobe against a media file and returns its
// subtitle streams in container order.
func ProbeSubtitleStreams(
	ctx context.Context,
	ffprobeBin, videoPath string,
) ([]SubtitleStream, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file not found: %s", videoPath)
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "s",
		videoPath,
	)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf(
				"ffprobe failed: %w: %s",
				err,
				strings.TrimSpace(string(exitErr.Stderr)),
			)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseSubtitleStreams(output)
}

func parseSubtitleStreams(data []byte) ([]SubtitleStream, error) {
	var result probeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var streams []SubtitleStream
	for _, s := range result.Streams {
		if s.CodecType != "subtitle" {
			continue
		}
		streams = append(streams, SubtitleStream{
			Position:    len(streams),
			StreamIndex: s.Index,
			Codec:       s.CodecName,
			Language:    s.Tags["language"],
			Title:       s.Tags["title"],
		})
	}
	return streams, nil
}

// FirstTextStream returns the first stream that can be converted to SRT.
func FirstTextStream(streams []SubtitleStream) (SubtitleStream, bool) {
	for _, s := range streams {
		if s.TextBased() {
			return s, true
		}
	}
	return SubtitleStream{}, false
}

// ExtractSubtitle demuxes one subtitle stream to an SRT file. The stream is
// addressed by its position among subtitle streams, not its absolute index.
func ExtractSubtitle(
	ctx context.Context,
	ffmpegBin, videoPath, outputPath string,
	position int,
) error {
	if position < 0 {
		return fmt.Errorf(
			"subtitle stream position must be non-negative, got %d",
			position,
		)
	}
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("video file not found: %s", videoPath)
	}

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	kwargs := ffmpeg.KwArgs{
		"map": fmt.Sprintf("0:s:%d", position),
		"c:s": "srt",
	}

	stream := ffmpeg.Input(videoPath).
		Output(outputPath, kwargs).
		OverWriteOutput()
	if ffmpegBin != "" {
		stream = stream.SetFfmpegPath(ffmpegBin)
	}

	if err := stream.Run(); err != nil {
		return fmt.Errorf("subtitle extraction failed: %w", err)
	}

	return nil
}

// IsVideoFile checks whether the path looks like a video container based
// on its extension.
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	videoExts := map[string]bool{
		".mp4":  true,
		".mkv":  true,
		".avi":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".webm": true,
		".m4v":  true,
		".mpeg": true,
		".mpg":  true,
		".ts":   true,
		".3gp":  true,
	}
	return videoExts[ext]
}

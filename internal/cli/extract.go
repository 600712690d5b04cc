package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sublate/internal/ffmpeg"
	"sublate/internal/video"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video_file]",
	Short: "Extract a subtitle stream from a video file",
	Long: `Extract an embedded subtitle stream from a video container and save
it as an SRT file ready for translation.

Only text-based streams (SubRip, WebVTT, mov_text, ASS/SSA) can be
converted; bitmap formats such as PGS or DVD subtitles are listed but
cannot be extracted. Requires ffmpeg and ffprobe on $PATH, or set
SUBLATE_FFMPEG_PATH and SUBLATE_FFPROBE_PATH.

Examples:
  sublate extract movie.mkv --list
  sublate extract movie.mkv
  sublate extract movie.mkv --stream 2 -o movie.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().
		Bool("list", false, "List subtitle streams without extracting")
	extractCmd.Flags().
		Int("stream", -1, "Subtitle stream position to extract (default: first text stream)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := context.Background()

	list, _ := cmd.Flags().GetBool("list")
	streamPos, _ := cmd.Flags().GetInt("stream")
	outputPath, _ := cmd.Flags().GetString("output")

	if !video.IsVideoFile(videoPath) {
		return fmt.Errorf(
			"unsupported file type %q: expected a video container",
			filepath.Ext(videoPath),
		)
	}

	paths, err := ffmpeg.Ensure()
	if err != nil {
		return err
	}

	streams, err := video.ProbeSubtitleStreams(ctx, paths.FFprobe, videoPath)
	if err != nil {
		return fmt.Errorf("failed to probe subtitle streams: %w", err)
	}
	if len(streams) == 0 {
		return fmt.Errorf("no subtitle streams in %s", videoPath)
	}

	if list {
		printStreamTable(cmd.OutOrStdout(), streams)
		return nil
	}

	var chosen video.SubtitleStream
	if streamPos >= 0 {
		found := false
		for _, s := range streams {
			if s.Position == streamPos {
				chosen = s
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf(
				"no subtitle stream at position %d (file has %d)",
				streamPos,
				len(streams),
			)
		}
		if !chosen.TextBased() {
			return fmt.Errorf(
				"stream %d is %s, a bitmap format that cannot be converted to SRT",
				streamPos,
				chosen.Codec,
			)
		}
	} else {
		var ok bool
		chosen, ok = video.FirstTextStream(streams)
		if !ok {
			return fmt.Errorf(
				"no text-based subtitle streams in %s (bitmap formats need OCR)",
				videoPath,
			)
		}
	}

	if outputPath == "" {
		outputPath = defaultExtractPath(videoPath, chosen)
	}

	logger.Infow("Extracting subtitle stream",
		"video", videoPath,
		"stream", chosen.Position,
		"codec", chosen.Codec,
		"language", chosen.Language,
		"output", outputPath,
	)

	if err := video.ExtractSubtitle(
		ctx,
		paths.FFmpeg,
		videoPath,
		outputPath,
		chosen.Position,
	); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitle stream extracted successfully: %s\n", absOutput)

	return nil
}

func printStreamTable(out io.Writer, streams []video.SubtitleStream) {
	headers := []string{"Stream", "Codec", "Language", "Title", "Convertible"}
	rows := make([][]string, 0, len(streams))
	for _, s := range streams {
		rows = append(rows, []string{
			strconv.Itoa(s.Position),
			s.Codec,
			s.Language,
			s.Title,
			yesNo(s.TextBased()),
		})
	}
	aligns := []columnAlignment{alignRight}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}

// defaultExtractPath derives the output path from the video name, keeping
// the stream's language tag when present.
func defaultExtractPath(videoPath string, stream video.SubtitleStream) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	if stream.Language != "" {
		return fmt.Sprintf("%s.%s.srt", base, stream.Language)
	}
	return base + ".srt"
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hellenic-development/design-audit/pkg/formatter"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	framesURL    string
	framesOutput string
	framesJSON   bool
)

func newFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Export the top-level frames of a Figma file",
		Long: `Export rendered PNG images of the top-level frames of a Figma file.

Examples:
  # List the frames of a file
  design-audit frames -u https://www.figma.com/design/ABC123/Shop

  # Only the frames inside one node, written as markdown
  design-audit frames -u "https://www.figma.com/design/ABC123/Shop?node-id=1-2" -o FRAMES.md`,
		RunE: runFrames,
	}

	cmd.Flags().StringVarP(&framesURL, "url", "u", "", "Figma file URL (required)")
	cmd.Flags().StringVarP(&framesOutput, "output", "o", "", "Write a markdown listing to this file")
	cmd.Flags().BoolVar(&framesJSON, "json", false, "Print the result as JSON")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "Maximum frames to export (default $FIGMA_MAX_FRAMES or 10)")
	cmd.MarkFlagRequired("url")

	return cmd
}

func runFrames(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, _, exportCache, err := newService(ctx, progressLogger())
	if err != nil {
		return err
	}
	defer closeCache(exportCache)

	if !framesJSON {
		printHeader("🎨 Figma Frame Export")
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = " Exporting frames from Figma..."
	if !verbose && !framesJSON {
		s.Start()
	}
	res, err := svc.ExtractFigmaFrames(ctx, framesURL)
	s.Stop()
	if err != nil {
		return err
	}

	if framesJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printSuccess(fmt.Sprintf("Exported %d of %d frames from %q", res.ExportedFrames, res.TotalFrames, res.FileName))
	for _, w := range res.Warnings {
		printWarning(w)
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("\n📊 Frames:")
	for _, f := range res.Frames {
		url := "-"
		if f.ImageURL != nil {
			url = *f.ImageURL
		}
		fmt.Printf("  • %s (%s)\n    %s\n", f.Name, f.NodeID, url)
	}

	if framesOutput != "" {
		return writeOutput(framesOutput, formatter.FramesToMarkdown(res))
	}
	return nil
}

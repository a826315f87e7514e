package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	designaudit "github.com/hellenic-development/design-audit"
	"github.com/hellenic-development/design-audit/pkg/audit"
	"github.com/hellenic-development/design-audit/pkg/dispatcher"
	"github.com/hellenic-development/design-audit/pkg/formatter"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	auditImage    string
	auditPersona  string
	auditFidelity string
	auditPurpose  string
	auditName     string
	auditOutput   string
	auditURL      string
)

func addAuditFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&auditPersona, "persona", "p", "", "Persona id (run design-audit personas to list them)")
	cmd.Flags().StringVar(&auditFidelity, "fidelity", "", "Design fidelity: wireframe, mockup, high")
	cmd.Flags().StringVar(&auditPurpose, "purpose", "", "What the screens are for")
	cmd.Flags().StringVarP(&auditOutput, "output", "o", "", "Write the markdown report to this file")
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit a single screen image",
		Long: `Audit one screen against the heuristics corpus.

Examples:
  # Audit a local screenshot as a developer
  design-audit audit -i checkout.png -p developer

  # Audit a hosted image and save the report
  design-audit audit -i https://cdn.example/home.png -o AUDIT.md`,
		RunE: runAudit,
	}

	cmd.Flags().StringVarP(&auditImage, "image", "i", "", "Image file path or http(s) URL (required)")
	cmd.Flags().StringVarP(&auditName, "name", "n", "", "Screen name (default: file name)")
	addAuditFlags(cmd)
	cmd.MarkFlagRequired("image")

	return cmd
}

func newAuditFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit-frames",
		Short: "Export the frames of a Figma file and audit every screen",
		Long: `Export the top-level frames of a Figma file and audit them concurrently.
Screens are reported as they finish; a failed screen does not stop the run.

Example:
  design-audit audit-frames -u https://www.figma.com/design/ABC123/Shop -p end-user -o AUDIT.md`,
		RunE: runAuditFrames,
	}

	cmd.Flags().StringVarP(&auditURL, "url", "u", "", "Figma file URL (required)")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "Maximum frames to export and audit (default $FIGMA_MAX_FRAMES or 10)")
	addAuditFlags(cmd)
	cmd.MarkFlagRequired("url")

	return cmd
}

// loadImage accepts an http(s) URL, a data URL, or a local file path.
func loadImage(ref string) (audit.Image, string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return audit.Image{URL: ref}, "", nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return audit.Image{}, "", err
	}
	img, err := audit.ImageFromBytes(data)
	name := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	return img, name, err
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	img, fileName, err := loadImage(auditImage)
	if err != nil {
		return err
	}
	if auditName == "" {
		auditName = fileName
	}

	svc, _, exportCache, err := newService(ctx, progressLogger())
	if err != nil {
		return err
	}
	defer closeCache(exportCache)

	printHeader("🔍 Design Audit")

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = " Analyzing with AI..."
	if !verbose {
		s.Start()
	}
	res, err := svc.AuditDesign(ctx, img, auditPersona, audit.Options{
		Fidelity:   auditFidelity,
		Purpose:    auditPurpose,
		ScreenName: auditName,
	})
	s.Stop()
	if err != nil {
		return err
	}

	printSuccess("Analysis complete")
	printAuditSummary(res)

	if auditOutput != "" {
		return writeOutput(auditOutput, formatter.AuditToMarkdown(res, auditName))
	}
	fmt.Println()
	fmt.Print(formatter.AuditToMarkdown(res, auditName))
	return nil
}

func runAuditFrames(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, _, exportCache, err := newService(ctx, progressLogger())
	if err != nil {
		return err
	}
	defer closeCache(exportCache)

	printHeader("🔍 Multi-Screen Design Audit")

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = " Exporting frames from Figma..."
	if !verbose {
		s.Start()
	}
	exported, err := svc.ExtractFigmaFrames(ctx, auditURL)
	s.Stop()
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Exported %d of %d frames", exported.ExportedFrames, exported.TotalFrames))
	for _, w := range exported.Warnings {
		printWarning(w)
	}

	frames := make([]dispatcher.Frame, 0, len(exported.Frames))
	for _, f := range exported.Frames {
		if f.ImageURL != nil {
			frames = append(frames, dispatcher.Frame{Name: f.Name, ImageURL: *f.ImageURL})
		}
	}

	slots := auditFrames(ctx, svc, frames)

	report := formatter.MultiScreenToMarkdown("Design Audit - "+exported.FileName, slots)
	if auditOutput != "" {
		return writeOutput(auditOutput, report)
	}
	fmt.Println()
	fmt.Print(report)
	return nil
}

// auditFrames runs the multi-screen audit and prints each screen as it
// settles.
func auditFrames(ctx context.Context, svc *designaudit.Service, frames []dispatcher.Frame) []dispatcher.ScreenAuditResult {
	tracker := dispatcher.NewTracker(frames)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	var mu sync.Mutex
	fmt.Printf("\nAuditing %d screen(s), %d at a time...\n", len(frames), min(svc.Concurrency(), len(frames)))
	svc.AuditMultiScreen(ctx, frames, auditPersona, audit.Options{Fidelity: auditFidelity, Purpose: auditPurpose},
		func(i int, r dispatcher.ScreenAuditResult) {
			tracker.Complete(i, r)
			settled, total := tracker.Progress()

			mu.Lock()
			defer mu.Unlock()
			if r.Result != nil {
				green.Printf("  [%d/%d] ✓ %s: %d/100 (%s risk)\n", settled, total, r.ScreenName, r.Result.OverallScore, r.Result.RiskLevel)
			} else {
				red.Printf("  [%d/%d] ✗ %s: %s\n", settled, total, r.ScreenName, r.Error)
			}
		})

	return tracker.Snapshot()
}

func printAuditSummary(res *audit.AuditResult) {
	cyan := color.New(color.FgCyan)
	cyan.Println("\n📊 Audit Summary:")
	fmt.Printf("  • Overall Score: %d/100\n", res.OverallScore)
	fmt.Printf("  • Risk Level: %s\n", res.RiskLevel)
	fmt.Printf("  • Issues: %d\n", res.IssueCount())
	for _, c := range res.Categories {
		fmt.Printf("  • %s %s: %d/100 (%d issues)\n", c.Icon, c.Name, c.Score, len(c.Issues))
	}
}

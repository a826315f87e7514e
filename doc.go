// Package designaudit reviews UI screens against a library of UX and
// accessibility heuristics using a vision-language model. Screens come from
// uploaded images or from the top-level frames of a Figma file.
//
// The HTTP API lives in internal/server and the CLI in cmd/design-audit;
// this root package is the orchestration layer both of them call, so that
// callers can embed audits in their own tools.
//
// # Import
//
// The module path contains a hyphen but Go package names cannot, so the
// package is named designaudit:
//
//	import "github.com/hellenic-development/design-audit" // package designaudit
//
// # Quick start
//
//	svc, err := designaudit.New(designaudit.Options{
//	    FigmaToken:   os.Getenv("FIGMA_ACCESS_TOKEN"),
//	    VisionAPIKey: os.Getenv("VISION_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	frames, err := svc.ExtractFigmaFrames(ctx, "https://www.figma.com/design/ABC123/Shop")
//	if err != nil {
//	    log.Fatal(apperr.Message(err))
//	}
//
//	var items []dispatcher.Frame
//	for _, f := range frames.Frames {
//	    items = append(items, dispatcher.Frame{Name: f.Name, ImageURL: *f.ImageURL})
//	}
//	svc.AuditMultiScreen(ctx, items, "ux-designer", audit.Options{}, func(i int, r dispatcher.ScreenAuditResult) {
//	    fmt.Println(i, r.ScreenName, r.Error)
//	})
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive progress
// messages. A nil Logger silences all output. To route one call's messages
// elsewhere, attach a logger to its context with logctx.With; the HTTP server
// does this so every line carries the request id.
//
// # Errors
//
// Service methods classify their errors with pkg/apperr. Use errors.Is with
// the apperr sentinels to branch on the kind, and apperr.Message for text
// that is safe to show to users. Unclassified errors report KindUpstream.
//
// # Rate limits
//
// Figma requests are retried on 429 with exponential backoff (1s, 2s, 4s by
// default). Frame images are rendered in batches of five, at most one batch
// every 1.5 seconds, and at most ten frames are exported per file.
package designaudit

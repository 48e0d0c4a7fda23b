// Package report projects a finalized analysis into an exportable
// document. It is a pure projection: nothing here flows back into the
// durable collections.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farmwise/internal/artifact"
	"farmwise/internal/types"
)

const appName = "FarmWise"

// Render produces the plain-text intelligence report for one analysis.
// Sections mirror the exported document: overview, expert summary,
// nutrient distribution and the action plan.
func Render(kind types.AnalysisKind, result types.AnalysisResult, generatedAt time.Time) []byte {
	label := "Soil"
	if kind == types.KindCrop {
		label = "Crop"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Intelligence Report\n", appName)
	fmt.Fprintf(&b, "%s Analysis Report - Generated on %s\n\n", label, generatedAt.Format("1/2/2006, 3:04:05 PM"))

	b.WriteString("Analysis Overview\n")
	fmt.Fprintf(&b, "  Quality Grade: %s\n", result.Quality)
	fmt.Fprintf(&b, "  Overall Health Index: %d%%\n\n", result.HealthScore)

	b.WriteString("Expert Summary\n")
	fmt.Fprintf(&b, "  %s\n\n", result.Description)

	b.WriteString("Nutrient Distribution\n")
	for _, n := range result.Nutrients {
		fmt.Fprintf(&b, "  %s: %d%%\n", n.Label, n.Value)
	}
	b.WriteString("\n")

	b.WriteString("Action Plan & Recommendations\n")
	for i, rec := range result.Recommendations {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, rec)
	}
	return []byte(b.String())
}

// Exporter renders analyses and persists them through an artifact store.
type Exporter struct {
	artifacts artifact.Store
	now       func() time.Time
}

func NewExporter(st artifact.Store) *Exporter {
	return &Exporter{artifacts: st, now: time.Now}
}

// Export writes the rendered report and returns its artifact key.
func (e *Exporter) Export(ctx context.Context, kind types.AnalysisKind, result types.AnalysisResult) (string, error) {
	now := e.now()
	label := "Soil"
	if kind == types.KindCrop {
		label = "Crop"
	}
	key := fmt.Sprintf("reports/%s_%s_Report_%d.txt", appName, label, now.UnixMilli())
	if err := e.artifacts.Put(ctx, key, Render(kind, result, now), "text/plain; charset=utf-8"); err != nil {
		return "", fmt.Errorf("report: store artifact: %w", err)
	}
	return key, nil
}

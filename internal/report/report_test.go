package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"farmwise/internal/artifact"
	"farmwise/internal/types"
)

func sampleResult() types.AnalysisResult {
	return types.AnalysisResult{
		HealthScore: 82,
		Quality:     "Excellent",
		Nutrients: []types.Nutrient{
			{Label: "Nitrogen", Value: 71},
			{Label: "Phosphorus", Value: 55},
		},
		Recommendations: []string{"Keep mulching", "Test pH monthly"},
		Description:     "Rich loam with strong macronutrient levels.",
	}
}

func TestRender_Sections(t *testing.T) {
	at := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	out := string(Render(types.KindSoil, sampleResult(), at))

	for _, want := range []string{
		"FarmWise Intelligence Report",
		"Soil Analysis Report - Generated on 1/15/2026, 9:30:00 AM",
		"Quality Grade: Excellent",
		"Overall Health Index: 82%",
		"Rich loam with strong macronutrient levels.",
		"Nitrogen: 71%",
		"Phosphorus: 55%",
		"1. Keep mulching",
		"2. Test pH monthly",
	} {
		require.Contains(t, out, want)
	}
}

func TestRender_CropLabel(t *testing.T) {
	out := string(Render(types.KindCrop, sampleResult(), time.Now()))
	require.Contains(t, out, "Crop Analysis Report")
}

func TestExporter_KeyAndContent(t *testing.T) {
	files, err := artifact.NewFileStore(t.TempDir())
	require.NoError(t, err)
	e := NewExporter(files)
	e.now = func() time.Time { return time.UnixMilli(1768471800000) }

	key, err := e.Export(context.Background(), types.KindSoil, sampleResult())
	require.NoError(t, err)
	require.Equal(t, "reports/FarmWise_Soil_Report_1768471800000.txt", key)

	content, err := files.Get(context.Background(), key)
	require.NoError(t, err)
	require.Contains(t, string(content), "Quality Grade: Excellent")
}

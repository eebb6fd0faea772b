package portfolio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/mapletrade/internal/interfaces"
	"github.com/bobmcallan/mapletrade/internal/models"
)

// RenderGrowthChart renders the portfolio growth series as a PNG line chart
func (s *Service) RenderGrowthChart(ctx context.Context, userID, portfolioID string, days int) ([]byte, error) {
	points, err := s.Growth(ctx, userID, portfolioID, days)
	if err != nil {
		return nil, err
	}
	return renderGrowthChart(points)
}

// RenderAllocationChart renders the sector allocation as a PNG donut chart
func (s *Service) RenderAllocationChart(ctx context.Context, userID, portfolioID string) ([]byte, error) {
	analysis, err := s.Analyze(ctx, userID, portfolioID, interfaces.PortfolioAnalyzeOptions{})
	if err != nil {
		return nil, err
	}
	return renderAllocationChart(analysis.SectorAllocation)
}

// renderGrowthChart draws two series: Portfolio Value (blue solid) and Total
// Cost (gray dashed). Returns raw PNG bytes.
func renderGrowthChart(points []models.GrowthPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	valueY := make([]float64, len(points))
	costY := make([]float64, len(points))

	for i, p := range points {
		xValues[i] = p.Date
		valueY[i] = p.Value
		costY[i] = p.Cost
	}

	valueSeries := chart.TimeSeries{
		Name: "Portfolio Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: valueY,
	}

	costSeries := chart.TimeSeries{
		Name: "Total Cost",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: costY,
	}

	graph := chart.Chart{
		Title:  "Portfolio Growth",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{
			valueSeries,
			costSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// renderAllocationChart draws one donut slice per sector, labeled with the
// sector name and its weight
func renderAllocationChart(allocation []models.SectorAllocation) ([]byte, error) {
	if len(allocation) == 0 {
		return nil, fmt.Errorf("no sector allocation to chart")
	}

	values := make([]chart.Value, 0, len(allocation))
	for _, a := range allocation {
		if a.Weight <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: a.Weight,
			Label: fmt.Sprintf("%s %.1f%%", a.Sector, a.Weight),
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no sector allocation to chart")
	}

	graph := chart.DonutChart{
		Title:  "Sector Allocation",
		Width:  600,
		Height: 600,
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

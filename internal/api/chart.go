package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fairway-data/putt.report/internal/httputil"
)

// showSessionChart renders an HTML chart of launch speed and distance per
// putt using go-echarts. This is a debugging-only endpoint (no auth) to eyeball
// a practice session without a frontend.
func (s *Server) showSessionChart(w http.ResponseWriter, r *http.Request) {
	targetUnits, ok := s.requestUnits(w, r)
	if !ok {
		return
	}

	history := s.stats.History()
	if len(history) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no completed putts in this session")
		return
	}

	axis := make([]string, len(history))
	launches := make([]opts.LineData, len(history))
	distances := make([]opts.LineData, len(history))
	for i, p := range history {
		converted := s.convertData(p, targetUnits)
		axis[i] = fmt.Sprintf("#%d", converted.PuttNumber)
		launches[i] = opts.LineData{Value: converted.LaunchSpeed}
		distances[i] = opts.LineData{Value: converted.TotalDistance}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Putting Session", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Putting Session",
			Subtitle: fmt.Sprintf("session=%s putts=%d units=%s", s.sessionID, len(history), targetUnits),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Putt"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Speed / Distance"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(axis)
	line.AddSeries("launch speed", launches)
	line.AddSeries("distance", distances)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

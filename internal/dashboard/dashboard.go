// Package dashboard renders a live terminal UI while scenarios run.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/carbonlab/perfbench/internal/metrics"
)

// RunConfig holds the benchmark parameters shown in the header.
type RunConfig struct {
	BaseURL   string
	Scenarios []string
	Users     int
	Rate      float64
	Timeout   time.Duration
}

// Dashboard drives a termui grid fed by a metrics collector.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex
	stopOnce     sync.Once

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyPara    *widgets.Paragraph
	latencySparkle *widgets.SparklineGroup
	rpsGauge       *widgets.Gauge
	errorList      *widgets.List
	latencyHistory []float64
	startTime      time.Time
	cfg            RunConfig
	scenarioLabel  string
}

// New initializes the terminal UI. shutdownFunc is invoked when the user
// presses q or Ctrl-C so the run can be cancelled cleanly.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		cfg:            cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Requests Per Second"
	d.rpsGauge.Percent = 0
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.errorList = widgets.NewList()
	d.errorList.Title = "Failures"
	d.errorList.Rows = []string{"No failures"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Benchmark"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.20,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.34,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(1.0, d.errorList),
		),
	)
}

// SetScenario updates the label shown for the scenario currently running.
func (d *Dashboard) SetScenario(name string) {
	d.mu.Lock()
	d.scenarioLabel = name
	d.mu.Unlock()
}

// Start begins the update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop halts updates and restores the terminal. Safe to call more
// than once.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		d.wg.Wait()
		ui.Close()
		// Give the terminal time to restore
		time.Sleep(100 * time.Millisecond)
	})
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop() cancels the context; keep looping until then
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.collector.Snapshot()
	elapsed := time.Since(d.startTime)

	if snap.MeanLatency > 0 {
		latencyMs := float64(snap.MeanLatency) / float64(time.Millisecond)
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			float64(snap.MinLatency)/float64(time.Millisecond),
			float64(snap.MaxLatency)/float64(time.Millisecond),
		)
	}

	d.rpsGauge.Percent = gaugePercent(snap.RequestsPerSec, 100)
	d.rpsGauge.Label = fmt.Sprintf("%.1f RPS", snap.RequestsPerSec)

	successRate := 0.0
	if snap.Total > 0 {
		successRate = (float64(snap.Successes) / float64(snap.Total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Total: %d | Success Rate: %.1f%%",
		d.cfg.BaseURL,
		d.formatParams(),
		elapsed.Round(time.Second),
		snap.Total,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Requests:    %d\nSuccessful:        %d\nFailed:            %d\nCurrent RPS:       %.2f\nSuccess Rate:      %.1f%%",
		snap.Total,
		snap.Successes,
		snap.Failures,
		snap.RequestsPerSec,
		successRate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		float64(snap.MinLatency)/float64(time.Millisecond),
		float64(snap.MeanLatency)/float64(time.Millisecond),
		float64(snap.P50Latency)/float64(time.Millisecond),
		float64(snap.P90Latency)/float64(time.Millisecond),
		float64(snap.P99Latency)/float64(time.Millisecond),
	)

	d.errorList.Rows = formatErrorRows(snap.Errors)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func (d *Dashboard) formatParams() string {
	var parts []string

	if d.scenarioLabel != "" {
		parts = append(parts, fmt.Sprintf("Scenario: %s", d.scenarioLabel))
	} else if len(d.cfg.Scenarios) > 0 {
		parts = append(parts, fmt.Sprintf("Scenarios: %s", strings.Join(d.cfg.Scenarios, ",")))
	}
	if d.cfg.Users > 0 {
		parts = append(parts, fmt.Sprintf("Users: %d", d.cfg.Users))
	}
	if d.cfg.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %.0f/s", d.cfg.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if d.cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.cfg.Timeout))
	}

	return strings.Join(parts, " | ")
}

// gaugePercent scales rps against a floor of floorMax so small runs still
// move the gauge, while bursts above it peg at 100.
func gaugePercent(rps, floorMax float64) int {
	max := floorMax
	if rps > max {
		max = rps
	}
	percent := int((rps / max) * 100)
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return percent
}

func formatErrorRows(errors map[string]int) []string {
	if len(errors) == 0 {
		return []string{"[No failures](fg:green)"}
	}

	type row struct {
		label string
		count int
	}
	rows := make([]row, 0, len(errors))
	for label, count := range errors {
		rows = append(rows, row{label: label, count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count == rows[j].count {
			return rows[i].label < rows[j].label
		}
		return rows[i].count > rows[j].count
	})

	if len(rows) > 10 {
		rows = rows[:10]
	}
	formatted := make([]string, 0, len(rows))
	for _, r := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", r.label, r.count))
	}
	return formatted
}

// Package main provides CMA-ES tuning of wind_gain, l_target and dist_min
// so tracers live and move on screen the way the targets ask.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/windglobe/config"
)

// evalRecord is one row of optimize_log.csv.
type evalRecord struct {
	Eval       int     `csv:"eval"`
	Fitness    float64 `csv:"fitness"`
	LifeFrames float64 `csv:"life_frames"`
	StepPixels float64 `csv:"step_px"`
	WindGain   float64 `csv:"wind_gain"`
	LTarget    float64 `csv:"l_target"`
	DistMin    float64 `csv:"dist_min"`
}

// formatDuration formats a duration as 1h02m03s or 2m03s.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// tracker records every evaluation to the CSV log and remembers the best one.
type tracker struct {
	out      io.Writer
	maxEvals int
	start    time.Time

	evals       int
	bestFitness float64
	best        []float64
}

func newTracker(out io.Writer, maxEvals int) *tracker {
	return &tracker{
		out:         out,
		maxEvals:    maxEvals,
		start:       time.Now(),
		bestFitness: math.Inf(1),
	}
}

// record logs one evaluation of raw (clamped) parameters.
func (t *tracker) record(raw []float64, fitness float64, look Look) {
	t.evals++
	if fitness < t.bestFitness {
		t.bestFitness = fitness
		t.best = raw
	}

	rec := []evalRecord{{
		Eval:       t.evals,
		Fitness:    fitness,
		LifeFrames: look.LifeFrames,
		StepPixels: look.StepPixels,
		WindGain:   raw[0],
		LTarget:    raw[1],
		DistMin:    raw[2],
	}}
	var err error
	if t.evals == 1 {
		err = gocsv.Marshal(rec, t.out)
	} else {
		err = gocsv.MarshalWithoutHeaders(rec, t.out)
	}
	if err != nil {
		log.Printf("failed to log evaluation: %v", err)
	}

	elapsed := time.Since(t.start)
	eta := time.Duration(t.maxEvals-t.evals) * (elapsed / time.Duration(t.evals))
	fmt.Printf("Eval %d/%d: life=%.0f frames step=%.2fpx fitness=%.4f (best=%.4f) | elapsed: %s, ETA: %s\n",
		t.evals, t.maxEvals, look.LifeFrames, look.StepPixels, fitness, t.bestFitness,
		formatDuration(elapsed), formatDuration(max(eta, 0)))
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	frames := flag.Int("frames", 600, "Frames per evaluation run")
	lifeFrames := flag.Float64("life-frames", 90, "Target mean tracer life in frames")
	stepPixels := flag.Float64("step-px", 1.5, "Target mean tracer movement in screen pixels per frame")
	maxEvals := flag.Int("max-evals", 120, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}

	// Create output directory
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Simulation logs would drown the progress output
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()
	targets := Targets{LifeFrames: *lifeFrames, StepPixels: *stepPixels}
	evaluator := NewFitnessEvaluator(params, *frames, targets, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	track := newTracker(logFile, *maxEvals)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			track.record(raw, fitness, evaluator.LastLook())
			return fitness
		},
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + 3*dim/2
	}
	settings := &optimize.Settings{FuncEvaluations: *maxEvals}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Targets: life %.0f frames, step %.2f px; %d frames per run\n",
		targets.LifeFrames, targets.StepPixels, *frames)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	bestParams := track.best
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", track.evals, formatDuration(time.Since(track.start)))
	fmt.Printf("Best fitness: %.4f\n", track.bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, bestParams[i])
	}

	// Save best config
	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("reloading config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}

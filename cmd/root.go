package cmd

import (
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dynsoa-run/dynsoa/dynsoa"
)

// CLI flags for the `run` subcommand.
var (
	logLevel     string
	entities     int
	frames       int
	aosoaTile    int
	matrixBlock  int
	kernelMix    string
	policyPath   string
	metricsCSV   string
	learnLogPath string
	persistPath  string
	verbose      bool
	seed         int64
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "dynsoa",
	Short: "Adaptive data-layout runtime: SoA/AoSoA/matrix-block retiling driven by a learned scheduler",
}

// runCmd drives a demo simulation: spawn entities, run a kernel mix every
// frame, and let the scheduler retile views in response to observed
// metrics.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demo simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := dynsoa.DefaultConfig()
		cfg.AosoaTile = aosoaTile
		cfg.MatrixBlock = matrixBlock
		cfg.Verbose = verbose || os.Getenv("DYNSOA_VERBOSE") != ""
		if learnLogPath == "" {
			learnLogPath = os.Getenv("DYNSOA_LEARN_LOG")
		}
		cfg.LearnLogPath = learnLogPath
		if persistPath == "" {
			persistPath = os.Getenv("DYNSOA_LEARN_PATH")
		}
		if persistPath != "" {
			cfg.PersistPath = persistPath
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid configuration: %v", err)
		}

		rt := dynsoa.New(cfg)
		rt.Init()
		defer rt.Close()
		defer rt.Shutdown()

		if policyPath != "" {
			p, err := LoadPolicyFile(policyPath)
			if err != nil {
				logrus.Fatalf("loading policy file: %v", err)
			}
			rt.SetPolicyValue(p)
		}

		if metricsCSV != "" {
			rt.MetricsEnableCSV(metricsCSV)
		}

		rt.DefineComponent(dynsoa.Component{Name: "Position", Fields: []dynsoa.Field{
			{Name: "x", Type: dynsoa.ScalarF32},
			{Name: "y", Type: dynsoa.ScalarF32},
			{Name: "z", Type: dynsoa.ScalarF32},
		}})
		rt.DefineComponent(dynsoa.Component{Name: "Velocity", Fields: []dynsoa.Field{
			{Name: "vx", Type: dynsoa.ScalarF32},
			{Name: "vy", Type: dynsoa.ScalarF32},
			{Name: "vz", Type: dynsoa.ScalarF32},
		}})
		arch := rt.DefineArchetype("Particle", []string{"Position", "Velocity"})

		rng := rand.New(rand.NewSource(seed))
		view := rt.Spawn(arch, entities, func(row int) { _ = row })
		px := rt.Column(view, "Position.x")
		vx := rt.Column(view, "Velocity.vx")
		for i := range px {
			px[i] = rng.Float32()*2000 - 1000
			vx[i] = rng.Float32()*20 - 10
		}

		mix := parseMix(kernelMix)
		ctx := dynsoa.KernelCtx{DT: 0.016, Tile: cfg.AosoaTile}

		logrus.Infof("dynsoa: running %d frames over %d entities (mix=%s)", frames, entities, kernelMix)

		for f := 0; f < frames; f++ {
			rt.OnBeginFrame()
			runMixForFrame(rt, view, ctx, mix, int64(f))
			rt.OnEndFrame()
		}

		agg := rt.Aggregate(view, 3)
		learn := rt.LearnState()
		logrus.Infof("final layout=%s mean_us=%.1f p95_us=%.1f tail_ratio=%.2f",
			rt.CurrentLayout(view), agg.MeanUs, agg.P95Us, agg.TailRatio)
		logrus.Infof("learned coefficients: a_div=%.4f a_mem=%.4f a_tail=%.4f", learn.ADiv, learn.AMem, learn.ATail)
	},
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&entities, "entities", 4096, "Number of entities to spawn")
	runCmd.Flags().IntVar(&frames, "frames", 200, "Number of frames to simulate")
	runCmd.Flags().IntVar(&aosoaTile, "aosoa-tile", 128, "Default AoSoA tile size")
	runCmd.Flags().IntVar(&matrixBlock, "matrix-block", 1024, "Default matrix block row count")
	runCmd.Flags().StringVar(&kernelMix, "mix", "physics,branchy,scatter,block/8", "Comma-separated kernel mix")
	runCmd.Flags().StringVar(&policyPath, "policy", "", "YAML policy file (defaults to the built-in demo policy)")
	runCmd.Flags().StringVar(&metricsCSV, "metrics-csv", "", "Path to write per-kernel metrics CSV")
	runCmd.Flags().StringVar(&learnLogPath, "learn-log", "", "Path to write scheduler decision/learning trace rows (defaults to $DYNSOA_LEARN_LOG)")
	runCmd.Flags().StringVar(&persistPath, "persist-path", "", "LearnState persistence file (defaults to $DYNSOA_LEARN_PATH or dynsoa_learn.json)")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose scheduler tracing (defaults to $DYNSOA_VERBOSE)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for initial entity randomization")

	rootCmd.AddCommand(runCmd)
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/clonewatch/clonewatch/internal/artifact"
	"github.com/clonewatch/clonewatch/internal/bloomfilter"
	"github.com/clonewatch/clonewatch/internal/carve"
	"github.com/clonewatch/clonewatch/internal/config"
	"github.com/clonewatch/clonewatch/internal/dataset"
	"github.com/clonewatch/clonewatch/internal/exec"
	"github.com/clonewatch/clonewatch/internal/feature"
	"github.com/clonewatch/clonewatch/internal/logger"
	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/pipeline"
	"github.com/clonewatch/clonewatch/internal/report"
	"github.com/clonewatch/clonewatch/internal/sidestore"
	"github.com/clonewatch/clonewatch/internal/syntaxfilter"
	"github.com/clonewatch/clonewatch/internal/telemetry"
	"github.com/clonewatch/clonewatch/internal/tokenfilter"
	"github.com/clonewatch/clonewatch/internal/trace"
	"github.com/clonewatch/clonewatch/internal/tui"
)

// requiredRecall is r* from §4.2's threshold-search contract.
const requiredRecall = 0.96

var rebuildChoices = map[string]bool{
	"bloomFilter":   true,
	"old-new-funcs": true,
	"normal-sample": true,
	"target":        true,
}

// NewDetectCommand creates the "detect" subcommand.
func NewDetectCommand() *cobra.Command {
	var (
		configPath string
		rebuild    []string
		noTUI      bool
	)

	cmd := &cobra.Command{
		Use:   "detect <project-path>",
		Short: "Scan a project for clones of known-vulnerable functions.",
		Long: `detect carves every function out of <project-path>, cascades each through
the Bloom-filter, token-Jaccard, and AST/line-hash filters, optionally
confirms surviving low-confidence candidates with an external Stage 4
backend, and writes a JSON vulnerability report plus a CSV trace of every
attempt.

Exit code 0 on a successful run (even with zero detections); non-zero on
initialisation failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range rebuild {
				if !rebuildChoices[r] {
					return fmt.Errorf("detect: unrecognised --rebuild value %q (want one of bloomFilter, old-new-funcs, normal-sample, target)", r)
				}
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("detect: loading config: %w", err)
			}
			return runDetect(cfg, args[0], toSet(rebuild), !noTUI)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config.yaml (default: search configs/, ../configs/, ../../configs/)")
	cmd.Flags().StringSliceVar(&rebuild, "rebuild", nil, "Force rebuild of one or more cache layers: bloomFilter, old-new-funcs, normal-sample, target")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable the live progress view and log to stdout instead")

	return cmd
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func runDetect(cfg *config.Config, projectPath string, rebuild map[string]bool, useTUI bool) error {
	if cfg.LogDir != "" {
		if err := logger.InitWithFile(cfg.LogLevel, cfg.LogDir); err != nil {
			return fmt.Errorf("detect: initialising file logger: %w", err)
		}
	} else {
		logger.Init(cfg.LogLevel)
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("interrupt received, cancelling in-flight work")
		cancel()
	}()

	logger.Info("loading vulnerability corpus from %s", cfg.Dataset.OldNewFuncDatasetPath)
	vulnSamples, err := dataset.LoadVulnCorpus(cfg.Dataset.OldNewFuncDatasetPath)
	if err != nil {
		return fmt.Errorf("detect: loading vulnerability corpus: %w", err)
	}
	vulnerabilities := dataset.Vulnerabilities(vulnSamples)
	logger.Info("loaded %d vulnerability samples (%d CVEs sampled)", len(vulnerabilities), len(dataset.ConstructSet(vulnSamples)))

	logger.Info("loading normal corpus from %s", cfg.Dataset.NormalSampleDatasetPath)
	normalCorpus, err := dataset.LoadNormalCorpus(cfg.Dataset.NormalSampleDatasetPath)
	if err != nil {
		return fmt.Errorf("detect: loading normal corpus: %w", err)
	}
	normalSample := dataset.Subsample(normalCorpus, dataset.NormalSampleSize)
	logger.Info("subsampled %d/%d normal functions", len(normalSample), len(normalCorpus))

	var store sidestore.Store
	if cfg.Trace.RedisHost != "" {
		store = sidestore.NewRedisStore(fmt.Sprintf("%s:%d", cfg.Trace.RedisHost, cfg.Trace.RedisPort))
		logger.Info("side-store backed by redis at %s:%d", cfg.Trace.RedisHost, cfg.Trace.RedisPort)
	} else {
		store = sidestore.NewMemStore()
		logger.Info("side-store backed by in-process memory (no trace.redis_host configured)")
	}

	built := artifact.NewBuilder(store).BuildAll(ctx, vulnerabilities)
	logger.Info("computed artefacts for %d/%d vulnerabilities", len(built), len(vulnerabilities))

	vulnArtifacts := make(map[string]syntaxfilter.VulnArtifacts, len(built))
	vulnTokens := make(map[string][]string, len(built))
	for id, b := range built {
		vulnArtifacts[id] = b.Artifacts
		vulnTokens[id] = b.Tokens
	}

	extractor := feature.NewExtractor()

	sfbl, err := openOrBuildSFBL(extractor, vulnSamples, normalSample, cfg.CacheDir, rebuild)
	if err != nil {
		return fmt.Errorf("detect: preparing SFBL: %w", err)
	}
	defer sfbl.Close()
	logger.Info("SFBL ready, threshold=%d", sfbl.Threshold())

	tokenFilter := tokenfilter.NewFilter(vulnTokens, cfg.TokenFilter.JaccardSimThreshold)
	syntaxFilter := syntaxfilter.NewFilter(vulnArtifacts, syntaxfilter.Options{
		ASTMin: cfg.Trace.ASTSimThresholdMin,
		ASTMax: cfg.Trace.ASTSimThresholdMax,
	})

	// Stage 4 remains interface-only (§4.5): codebert_model_path and
	// joern_path are accepted configuration per the external-interfaces
	// contract, but no real graph-extraction/embedding backend is wired in
	// here, so every low-confidence candidate reaches Stage 4 unconfirmed.
	var confirmer trace.Confirmer = trace.NoopConfirmer{}
	if cfg.Trace.JoernPath != "" || cfg.Trace.CodeBERTModelPath != "" {
		logger.Warn("trace.joern_path/codebert_model_path configured but no Stage 4 backend is wired; falling back to the no-op confirmer")
	}

	workers := pipeline.DefaultWorkers{
		Bloom:  nonZero(cfg.Workers.BloomFilter, pipeline.DefaultWorkerWidths().Bloom),
		Token:  nonZero(cfg.Workers.Token, pipeline.DefaultWorkerWidths().Token),
		Syntax: nonZero(cfg.Workers.Syntax, pipeline.DefaultWorkerWidths().Syntax),
		Trace:  nonZero(cfg.Workers.Trace, pipeline.DefaultWorkerWidths().Trace),
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("detect: creating output directory: %w", err)
	}
	jsonReporter := report.NewJSONReporter(cfg.OutputDir)
	traceLog, err := report.NewCSVTraceWriter(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("detect: opening trace log: %w", err)
	}
	defer traceLog.Close()

	agg := telemetry.New(prometheus.NewRegistry())

	orch := pipeline.New(extractor, sfbl, tokenFilter, syntaxFilter, confirmer, workers, agg, traceLog)

	executor := exec.NewCommandExecutor()
	carver := carve.NewCtagsCarver(executor, carve.DefaultThresholds())
	logger.Info("carving functions from %s", projectPath)
	extracted, err := carver.Carve(projectPath)
	if err != nil {
		return fmt.Errorf("detect: carving target project: %w", err)
	}
	logger.Info("carved %d candidate functions", len(extracted))

	var program *tea.Program
	if useTUI {
		program = tea.NewProgram(tui.New(agg))
		go func() {
			if _, err := program.Run(); err != nil {
				logger.Warn("tui exited with error: %v", err)
			}
		}()
	}

	produce := make(chan model.Function, pipeline.QueueCapacityDataset)
	go func() {
		defer close(produce)
		for _, e := range extracted {
			select {
			case <-ctx.Done():
				return
			case produce <- model.Function{Code: dataset.NoopPurify(e.Source), Path: e.Path}:
			}
		}
		produce <- model.Sentinel()
	}()

	detections := orch.Run(ctx, produce)
	count := 0
	for d := range detections {
		if d.Path == model.SentinelPath {
			continue
		}
		if err := jsonReporter.Save(d); err != nil {
			logger.Error("writing detection for %s: %v", d.Path, err)
			continue
		}
		count++
	}

	if program != nil {
		program.Quit()
	}

	if err := jsonReporter.Close(); err != nil {
		logger.Warn("finalising JSON report: %v", err)
	}
	if err := agg.Persist(cfg.OutputDir); err != nil {
		logger.Warn("persisting telemetry snapshot: %v", err)
	}

	logger.Info("detect run complete: %d detections over %d candidate functions", count, len(extracted))
	fmt.Printf("clonewatch: %d detection(s) written to %s\n", count, filepath.Join(cfg.OutputDir, "vuls.json"))
	return nil
}

func nonZero(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// openOrBuildSFBL opens the cached SFBL, or rebuilds and persists one if the
// cache is missing/invalid or a rebuild was requested (§4.2, §7 kind 2). The
// rebuilt filter is inserted with every known vulnerable function, sample
// and non-sample alike; only the threshold search that picks τ for it is
// restricted to the construct set and held-out non-sample functions.
func openOrBuildSFBL(extractor *feature.Extractor, vulnSamples []dataset.VulnSample, normalSample []dataset.NormalFunction, cacheDir string, rebuild map[string]bool) (*bloomfilter.SFBL, error) {
	opts := bloomfilter.DefaultOptions(feature.VectorLength, 1)

	if !rebuild["bloomFilter"] && !rebuild["target"] {
		result, err := bloomfilter.Open(cacheDir, opts)
		if err != nil {
			return nil, err
		}
		if result.Status == bloomfilter.Initialised {
			return result.Handle, nil
		}
		logger.Warn("SFBL cache needs rebuild: %s", result.Reason)
	}

	// Threshold search runs against a throwaway filter built only from the
	// construct set (one representative per CVE): inserting a vector and
	// then scoring it would trivially satisfy insert(v) ⇒ query(v) == 0
	// (§8), so the held-out target set below must exclude every construct
	// set member, not just be "the construct set plus some negatives".
	constructSet := dataset.ConstructSet(vulnSamples)
	constructVectors := make([]feature.Vector, len(constructSet))
	for i, s := range constructSet {
		constructVectors[i] = extractor.Extract(s.VulnCode)
	}
	thresholdFilter, err := bloomfilter.Build(cacheDir, opts, constructVectors)
	if err != nil {
		return nil, fmt.Errorf("building threshold-search filter: %w", err)
	}
	scored := scoreTargetSet(thresholdFilter, extractor, vulnSamples, normalSample)
	tau, _ := bloomfilter.FindThreshold(scored, opts.Tries, requiredRecall)

	// The production filter is a separate build holding every known
	// vulnerable function, sample and non-sample alike — a target that
	// clones a non-sample duplicate must still be found by Stage 1.
	allVectors := make([]feature.Vector, len(vulnSamples))
	for i, s := range vulnSamples {
		allVectors[i] = extractor.Extract(s.VulnCode)
	}
	sfbl, err := bloomfilter.Build(cacheDir, opts, allVectors)
	if err != nil {
		return nil, fmt.Errorf("building SFBL: %w", err)
	}
	sfbl.SetThreshold(tau)

	if err := sfbl.Persist(); err != nil {
		return nil, fmt.Errorf("persisting SFBL: %w", err)
	}
	return sfbl, nil
}

// scoreTargetSet queries every held-out (non-sample) vulnerable function
// (label 1) and every benign normal function (label 0) against the
// threshold-search filter, the target set the threshold search needs
// (§4.2). Construct set members are excluded: they were just inserted into
// this same filter, so they would trivially score best and contaminate the
// recall computation FindThreshold performs.
func scoreTargetSet(sfbl *bloomfilter.SFBL, extractor *feature.Extractor, vulnSamples []dataset.VulnSample, normalSample []dataset.NormalFunction) []bloomfilter.LabeledScore {
	scored := make([]bloomfilter.LabeledScore, 0, len(vulnSamples)+len(normalSample))
	for _, s := range vulnSamples {
		if s.IsSample {
			continue
		}
		v := extractor.Extract(s.VulnCode)
		scored = append(scored, bloomfilter.LabeledScore{Score: sfbl.Query(v), Label: 1})
	}
	for _, n := range normalSample {
		v := extractor.Extract(n.Code)
		scored = append(scored, bloomfilter.LabeledScore{Score: sfbl.Query(v), Label: 0})
	}
	return scored
}

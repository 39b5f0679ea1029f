package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/banshee-data/demoset/internal/calib"
	"github.com/banshee-data/demoset/internal/dataset"
	"github.com/banshee-data/demoset/internal/episode"
	"github.com/banshee-data/demoset/internal/kinematics"
	"github.com/banshee-data/demoset/internal/monitoring"
	"github.com/banshee-data/demoset/internal/trajectory"
)

// Config describes one conversion run.
type Config struct {
	SourceDir   string
	OutPath     string
	Arm         episode.Arm
	Calibration string
	Source      trajectory.SourceType
	ValRatio    float64
	Seed        int64
	Workers     int // 0 means one per CPU

	Registry calib.Registry
	Model    *kinematics.Model
	EnvArgs  string // opaque pass-through; defaults to "{}"
}

// Result summarizes a completed run.
type Result struct {
	Demos int
	Train int
	Val   int
}

// outcome is one worker's product: a loaded episode plus its features.
type outcome struct {
	ep  *episode.Episode
	rec *dataset.DemoRecord
	err error
}

// Convert runs the full pipeline: validate every candidate, then compute
// per-episode features on a worker pool and funnel them through a single
// container writer, then partition the demos into train/val filter keys.
// Episodes are independent given the shared read-only model and
// calibration, so only the container writes are serialized. Any failure
// aborts the run and removes the partial container.
func Convert(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.EnvArgs == "" {
		cfg.EnvArgs = "{}"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Model == nil {
		cfg.Model = kinematics.ViperX()
	}

	// Resolve the calibration before touching any file: an unknown rig
	// name must not produce an empty container.
	ext, err := cfg.Registry.Lookup(cfg.Calibration)
	if err != nil {
		return nil, err
	}

	refs, err := episode.Scan(cfg.SourceDir)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no episode files in %s", dataset.ErrEmptyDataset, cfg.SourceDir)
	}

	// Barrier one: every candidate opens and parses before any write.
	monitoring.Progressf("validating %d episodes in %s", len(refs), cfg.SourceDir)
	if err := episode.ValidateAll(refs); err != nil {
		return nil, err
	}

	store, err := dataset.Create(cfg.OutPath)
	if err != nil {
		return nil, err
	}

	res, err := convertInto(ctx, cfg, ext, refs, store)
	if err != nil {
		if derr := store.Destroy(); derr != nil {
			monitoring.Progressf("cleanup after failure: %v", derr)
		}
		return nil, err
	}
	if err := store.Close(); err != nil {
		return nil, err
	}
	return res, nil
}

func convertInto(ctx context.Context, cfg Config, ext calib.Extrinsic, refs []episode.Ref, store *dataset.Store) (*Result, error) {
	asm := &dataset.Assembler{
		Model:     cfg.Model,
		Extrinsic: ext,
		Source:    cfg.Source,
		Arm:       cfg.Arm,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan episode.Ref)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				out := featurizeOne(asm, ref)
				select {
				case results <- out:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ref := range refs {
			select {
			case jobs <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Drop the results channel once every worker has exited so the writer
	// loop below can never block on a dead pool.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Single-writer funnel: workers compute, this loop is the only code
	// path inserting into the container.
	written := 0
	for out := range results {
		if out.err != nil {
			return nil, out.err
		}
		if err := store.WriteDemo(out.rec, out.ep); err != nil {
			return nil, err
		}
		written++
		monitoring.Progressf("wrote demo_%d (%d/%d)", out.rec.Index, written, len(refs))
		if written == len(refs) {
			cancel()
		}
	}
	if err := ctx.Err(); err != nil && written != len(refs) {
		return nil, fmt.Errorf("pipeline: conversion interrupted after %d/%d demos: %w", written, len(refs), context.Cause(ctx))
	}

	// Barrier two: the split needs the final demo-index set.
	train, val, err := store.WriteSplit(cfg.ValRatio, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if err := store.SetEnvArgs(cfg.EnvArgs); err != nil {
		return nil, err
	}

	monitoring.Progressf("split %d demos into %d train / %d val", written, len(train), len(val))
	return &Result{Demos: written, Train: len(train), Val: len(val)}, nil
}

func featurizeOne(asm *dataset.Assembler, ref episode.Ref) outcome {
	ep, err := episode.Load(ref)
	if err != nil {
		return outcome{err: err}
	}
	rec, err := asm.Featurize(ep)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{ep: ep, rec: rec}
}

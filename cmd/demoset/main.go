// Command demoset converts a directory of raw teleoperation episode
// captures into a single indexed training dataset with train/val filter
// keys. It exits non-zero on any validation or conversion failure without
// leaving a partial output container behind.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/demoset/internal/calib"
	"github.com/banshee-data/demoset/internal/episode"
	"github.com/banshee-data/demoset/internal/pipeline"
	"github.com/banshee-data/demoset/internal/trajectory"
)

var (
	datasetDir = flag.String("dataset", "", "path to the raw episode directory")
	outPath    = flag.String("out", "", "path of the output dataset container")
	arm        = flag.String("arm", "", "which arm to convert data for (left or right)")
	extrinsics = flag.String("extrinsics", "", "calibration key for the camera frame")
	dataType   = flag.String("data-type", "", "capture source: hand or robot")
	valRatio   = flag.Float64("val-ratio", 0.2, "fraction of demos held out for validation")
	seed       = flag.Int64("seed", 0, "seed for the train/val split")
	workers    = flag.Int("workers", 0, "episode workers (0 = one per CPU)")
	calibFile  = flag.String("calib-file", "", "optional JSON file with extra calibrations")
)

func main() {
	flag.Parse()

	if *datasetDir == "" || *outPath == "" {
		log.Fatal("-dataset and -out are required")
	}
	if *arm == "" {
		log.Fatal("-arm is required")
	}

	armSel, err := episode.ParseArm(*arm)
	if err != nil {
		log.Fatalf("invalid -arm: %v", err)
	}
	source, err := trajectory.ParseSourceType(*dataType)
	if err != nil {
		log.Fatalf("invalid -data-type: %v", err)
	}

	registry := calib.DefaultRegistry()
	if *calibFile != "" {
		if err := calib.LoadFile(registry, *calibFile); err != nil {
			log.Fatalf("load calibration file: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Convert(ctx, pipeline.Config{
		SourceDir:   *datasetDir,
		OutPath:     *outPath,
		Arm:         armSel,
		Calibration: *extrinsics,
		Source:      source,
		ValRatio:    *valRatio,
		Seed:        *seed,
		Workers:     *workers,
		Registry:    registry,
	})
	if err != nil {
		log.Printf("conversion failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Successful conversion: %d demos (%d train / %d val) -> %s\n",
		res.Demos, res.Train, res.Val, *outPath)
}

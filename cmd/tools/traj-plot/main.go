// Command traj-plot renders one demo's camera-frame end-effector path and
// a selected trajectory window from a converted dataset container. Useful
// for eyeballing calibration and window parameters after a conversion.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/demoset/internal/dataset"
)

var (
	dbPath   = flag.String("db", "", "path to the dataset container")
	demo     = flag.Int("demo", -1, "demo index to plot (-1 = first)")
	queryIdx = flag.Int("index", 0, "timestep whose trajectory window to overlay")
	outDir   = flag.String("out", "plots", "output directory for the PNG")
)

func main() {
	flag.Parse()
	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	store, err := dataset.Open(*dbPath)
	if err != nil {
		log.Fatalf("open container: %v", err)
	}
	defer store.Close()

	index := *demo
	if index < 0 {
		indices, err := store.DemoIndices()
		if err != nil {
			log.Fatalf("list demos: %v", err)
		}
		if len(indices) == 0 {
			log.Fatal("container has no demos")
		}
		index = indices[0]
	}

	d, err := store.ReadDemo(index)
	if err != nil {
		log.Fatalf("read demo %d: %v", index, err)
	}
	if *queryIdx < 0 || *queryIdx >= d.NumSamples {
		log.Fatalf("index %d out of range: demo %d has %d samples", *queryIdx, index, d.NumSamples)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("demo_%d end-effector path (%s)", index, d.Label)
	p.X.Label.Text = "x (camera frame, m)"
	p.Y.Label.Text = "y (camera frame, m)"

	path := make(plotter.XYs, d.NumSamples)
	for i := 0; i < d.NumSamples; i++ {
		path[i].X = d.EEPose.At(i, 0)
		path[i].Y = d.EEPose.At(i, 1)
	}
	line, err := plotter.NewLine(path)
	if err != nil {
		log.Fatalf("build path line: %v", err)
	}
	p.Add(line)
	p.Legend.Add("ee_pose", line)

	// The window row is a flattened (x, y, z) sequence.
	_, width := d.Actions.Dims()
	window := make(plotter.XYs, width/3)
	for k := range window {
		window[k].X = d.Actions.At(*queryIdx, 3*k)
		window[k].Y = d.Actions.At(*queryIdx, 3*k+1)
	}
	scatter, err := plotter.NewScatter(window)
	if err != nil {
		log.Fatalf("build window scatter: %v", err)
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
	p.Add(scatter)
	p.Legend.Add(fmt.Sprintf("window @ t=%d", *queryIdx), scatter)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	out := filepath.Join(*outDir, fmt.Sprintf("demo_%d_t%d.png", index, *queryIdx))
	if err := p.Save(8*vg.Inch, 6*vg.Inch, out); err != nil {
		log.Fatalf("save plot: %v", err)
	}
	fmt.Println("wrote", out)
}

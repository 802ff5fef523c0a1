// Command cloud2bim converts a point cloud scan of a building interior
// into an IFC model plus a point-to-element mapping file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/cloud2bim/internal/bim"
	"github.com/banshee-data/cloud2bim/internal/bim/debug"
	"github.com/banshee-data/cloud2bim/internal/bim/storage/sqlite"
	"github.com/banshee-data/cloud2bim/internal/version"
)

func main() {
	var (
		inputPath   = flag.String("input", "", "point cloud file: one point per line, x y z [r g b]")
		configPath  = flag.String("config", "", "JSON configuration overlay (optional)")
		outDir      = flag.String("out", ".", "output directory")
		jobID       = flag.String("job", "", "job id (default: input file base name)")
		runsDB      = flag.String("runs-db", "", "SQLite run-history database (optional)")
		plotDir     = flag.String("plots", "", "directory for diagnostic plots (optional)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("cloud2bim %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: cloud2bim -input scan.xyz [-config conversion.json] [-out dir]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := bim.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = bim.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	job := *jobID
	if job == "" {
		base := filepath.Base(*inputPath)
		job = strings.TrimSuffix(base, filepath.Ext(base))
	}

	cloud, err := readXYZ(*inputPath)
	if err != nil {
		log.Fatalf("read point cloud: %v", err)
	}
	log.Printf("loaded %d points from %s", cloud.Len(), *inputPath)

	proc := &bim.Processor{OutputDir: *outDir}
	if *runsDB != "" {
		store, err := sqlite.Open(*runsDB)
		if err != nil {
			log.Fatalf("run history: %v", err)
		}
		defer store.Close()
		proc.Store = store
	}

	result, err := proc.Run(job, cfg, cloud)
	if err != nil {
		log.Fatalf("conversion failed: %v", err)
	}
	log.Printf("done in %s: %d slabs, %d walls, %d openings, %d zones",
		result.Elapsed.Round(time.Millisecond), len(result.Slabs), len(result.Walls),
		len(result.Openings), len(result.Zones))
	log.Printf("outputs: %s, %s", result.IFCPath, result.MappingPath)

	if *plotDir != "" {
		if err := savePlots(*plotDir, job, cloud, result, cfg); err != nil {
			log.Printf("plots: %v", err)
		}
	}
}

// savePlots renders the elevation histogram and one plan per storey.
func savePlots(dir, job string, cloud *bim.PointCloud, result *bim.Result, cfg bim.Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	zs := make([]float64, cloud.Len())
	for i, pt := range cloud.Points {
		zs[i] = pt.Z
	}
	histPath := filepath.Join(dir, job+"_elevation.png")
	if err := debug.SaveElevationHistogram(histPath, zs, cfg.SlabZStep); err != nil {
		return err
	}

	for s := 1; s < len(result.Slabs); s++ {
		low := result.Slabs[s-1].TopZ()
		high := result.Slabs[s].BottomZ
		var plan []bim.Point2
		for _, pt := range cloud.Points {
			if pt.Z > low && pt.Z < high {
				plan = append(plan, bim.Point2{X: pt.X, Y: pt.Y})
			}
		}
		var walls []bim.Wall
		for _, w := range result.Walls {
			if w.Storey == s {
				walls = append(walls, w)
			}
		}
		var zones []bim.Zone
		for _, z := range result.Zones {
			if z.Storey == s {
				zones = append(zones, z)
			}
		}
		planPath := filepath.Join(dir, fmt.Sprintf("%s_storey%d.png", job, s))
		if err := debug.SaveStoreyPlan(planPath, plan, walls, zones); err != nil {
			return err
		}
	}
	return nil
}

// readXYZ parses a whitespace-separated text cloud: three coordinate
// columns, optionally followed by three colour columns in [0,1]. Lines
// starting with # are comments.
func readXYZ(path string) (*bim.PointCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cloud := &bim.PointCloud{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: need at least 3 columns, got %d", lineNo, len(fields))
		}
		var coords [3]float64
		for i := 0; i < 3; i++ {
			coords[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %d: %w", lineNo, i+1, err)
			}
		}
		cloud.Points = append(cloud.Points, bim.Point3{X: coords[0], Y: coords[1], Z: coords[2]})

		if len(fields) >= 6 {
			var rgb [3]float64
			for i := 0; i < 3; i++ {
				rgb[i], err = strconv.ParseFloat(fields[3+i], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: colour column %d: %w", lineNo, i+1, err)
				}
			}
			cloud.Colors = append(cloud.Colors, bim.RGB{R: rgb[0], G: rgb[1], B: rgb[2]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cloud, nil
}

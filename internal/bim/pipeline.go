package bim

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/cloud2bim/internal/ifc"
)

// RunRecord summarizes one finished job for the optional run-history
// store.
type RunRecord struct {
	JobID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stage      Stage
	Percent    int
	Points     int
	Slabs      int
	Walls      int
	Openings   int
	Zones      int
	Error      string
}

// RunRecorder persists run records. Implementations live outside the
// core; a nil recorder disables history.
type RunRecorder interface {
	RecordRun(RunRecord) error
}

// Result is the outcome of a successful run.
type Result struct {
	JobID       string
	IFCPath     string
	MappingPath string

	Slabs    []Slab
	Walls    []Wall
	Openings []Opening
	Zones    []Zone

	Elapsed time.Duration
}

// Processor converts point clouds into IFC models. The zero value works
// with the current directory, a no-op sink and no run history. A single
// Processor may run any number of distinct jobs concurrently; it holds
// no per-job state.
type Processor struct {
	// OutputDir receives {job}_model.ifc and {job}_point_mapping.json.
	OutputDir string
	// Sink receives stage transitions. Nil means no reporting.
	Sink ProgressSink
	// Store, when set, gets one record per finished or failed run.
	Store RunRecorder
	// Logger defaults to the standard logger.
	Logger *log.Logger
}

func (p *Processor) logf(jobID, format string, args ...any) {
	l := p.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("[job %s] %s", jobID, fmt.Sprintf(format, args...))
}

func (p *Processor) sink() ProgressSink {
	if p.Sink == nil {
		return NopSink{}
	}
	return p.Sink
}

// Run executes the full conversion for one job: prepare the cloud,
// detect slabs, storeys, walls, openings and zones, build the IFC model
// and save the point mapping. Any stage error terminates the job; the
// failing stage and last percentage are reported to the sink and to the
// run store.
func (p *Processor) Run(jobID string, cfg Config, cloud *PointCloud) (*Result, error) {
	start := time.Now()
	stage := StageInitializing
	detail := ProgressDetail{}

	report := func(s Stage, msg string) {
		stage = s
		detail.Elapsed = time.Since(start)
		detail.Message = msg
		p.sink().Report(s, s.Percent(), detail)
		p.logf(jobID, "%s (%d%%) %s", s, s.Percent(), msg)
	}
	fail := func(err error) (*Result, error) {
		detail.Elapsed = time.Since(start)
		detail.Message = err.Error()
		p.sink().Report(StageFailed, stage.Percent(), detail)
		p.logf(jobID, "failed during %s: %v", stage, err)
		p.record(jobID, start, StageFailed, stage.Percent(), detail, err)
		return nil, fmt.Errorf("job %s: %s: %w", jobID, stage, err)
	}

	report(StageInitializing, "validating configuration")
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	report(StageLoadingPointCloud, "preparing point cloud")
	prepared, err := PreparePointCloud(cloud, cfg)
	if err != nil {
		return fail(err)
	}
	detail.Points = prepared.Len()

	if cfg.PreprocessVoxel && cfg.VoxelSize > 0 {
		report(StagePreprocessing, fmt.Sprintf("voxel downsample at %g m", cfg.VoxelSize))
		prepared = VoxelDownsample(prepared, cfg.VoxelSize)
		detail.Points = prepared.Len()
		p.logf(jobID, "downsampled to %d points", prepared.Len())
	} else {
		report(StagePreprocessing, "preprocessing skipped")
	}

	report(StageDetectingSlabs, "detecting slabs")
	slabs, err := DetectSlabs(prepared, SlabParamsFromConfig(cfg))
	if err != nil {
		return fail(err)
	}
	detail.Slabs = len(slabs)
	p.logf(jobID, "detected %d slabs", len(slabs))

	storeys, err := SplitStoreys(prepared, slabs)
	if err != nil {
		return fail(err)
	}

	report(StageDetectingWalls, "detecting walls and openings")
	wallParams := WallParamsFromConfig(cfg)
	openingParams := OpeningParamsFromConfig(cfg)

	var walls []DetectedWall
	var openings []Opening
	wallID := 1
	for i, sc := range storeys {
		band := BandForStorey(slabs, i, cfg.ExteriorScan, cfg.DefaultTopStoreyHeight)
		detected := DetectWalls(prepared, sc, band, slabs[i+1].Footprint, wallParams)
		if len(detected) == 0 {
			p.logf(jobID, "storey %d: no walls found, skipping dependent stages for it", sc.Storey)
			continue
		}
		for _, dw := range detected {
			dw.ID = wallID
			dw.Storey = sc.Storey
			wallID++

			found := DetectOpenings(dw, openingParams)
			for k := range found {
				found[k].WallID = dw.ID
			}
			openings = append(openings, found...)
			walls = append(walls, dw)
		}
		p.logf(jobID, "storey %d: %d walls", sc.Storey, len(detected))
	}
	if len(walls) == 0 {
		return fail(ErrNoWalls)
	}
	detail.Walls = len(walls)
	detail.Openings = len(openings)

	report(StageDetectingZones, "detecting zones")
	var zones []Zone
	for i, sc := range storeys {
		band := BandForStorey(slabs, i, cfg.ExteriorScan, cfg.DefaultTopStoreyHeight)
		var storeyWalls []Wall
		for _, w := range walls {
			if w.Storey == sc.Storey {
				storeyWalls = append(storeyWalls, w.Wall)
			}
		}
		found := DetectZones(storeyWalls, cfg.ZoneSnappingDistance, band.Height, sc.Storey)
		if len(found) == 0 {
			p.logf(jobID, "storey %d: no closed zones", sc.Storey)
			continue
		}
		zones = append(zones, found...)
	}
	detail.Zones = len(zones)

	report(StageGeneratingIFC, "building IFC model")
	mapping := NewPointMapping()
	model, err := p.buildModel(jobID, cfg, slabs, walls, openings, zones, mapping)
	if err != nil {
		return fail(err)
	}

	if p.OutputDir != "" {
		if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
			return fail(fmt.Errorf("create output directory: %w", err))
		}
	}
	ifcPath := filepath.Join(p.OutputDir, jobID+"_model.ifc")
	ifcFile, err := os.Create(ifcPath)
	if err != nil {
		return fail(fmt.Errorf("create IFC file: %w", err))
	}
	if err := model.Write(ifcFile); err != nil {
		ifcFile.Close()
		return fail(fmt.Errorf("write IFC file: %w", err))
	}
	if err := ifcFile.Close(); err != nil {
		return fail(fmt.Errorf("close IFC file: %w", err))
	}
	p.logf(jobID, "IFC model written to %s", ifcPath)

	report(StageSavingMapping, "saving point mapping")
	mappingPath := filepath.Join(p.OutputDir, jobID+"_point_mapping.json")
	if err := mapping.WriteFile(mappingPath); err != nil {
		return fail(err)
	}
	p.logf(jobID, "point mapping saved to %s", mappingPath)

	report(StageFinished, "done")
	p.record(jobID, start, StageFinished, 100, detail, nil)

	flatWalls := make([]Wall, len(walls))
	for i, w := range walls {
		flatWalls[i] = w.Wall
	}
	return &Result{
		JobID:       jobID,
		IFCPath:     ifcPath,
		MappingPath: mappingPath,
		Slabs:       slabs,
		Walls:       flatWalls,
		Openings:    openings,
		Zones:       zones,
		Elapsed:     time.Since(start),
	}, nil
}

// buildModel assembles the IFC entity graph and fills the point mapping
// with the GlobalIds of the created elements.
func (p *Processor) buildModel(jobID string, cfg Config, slabs []Slab, walls []DetectedWall, openings []Opening, zones []Zone, mapping *PointMapping) (*ifc.Model, error) {
	model := ifc.NewModel(ifc.ProjectInfo{
		Name:          cfg.IFC.ProjectName,
		LongName:      cfg.IFC.ProjectLongName,
		Phase:         cfg.IFC.BuildingPhase,
		Version:       cfg.IFC.Version,
		Organization:  cfg.IFC.AuthorOrganization,
		AuthorGiven:   cfg.IFC.AuthorName,
		AuthorFamily:  cfg.IFC.AuthorSurname,
		SiteLatitude:  cfg.IFC.SiteLatitude,
		SiteLongitude: cfg.IFC.SiteLongitude,
		SiteElevation: cfg.IFC.SiteElevation,
		WindowColour:  cfg.IFC.WindowColourRGB,
		DoorColour:    cfg.IFC.DoorColourRGB,
		FileName:      jobID + "_model.ifc",
	})

	storeyRefs := make([]ifc.Storey, len(slabs))
	for i, slab := range slabs {
		top := slab.TopZ()
		storeyRefs[i] = model.AddStorey(fmt.Sprintf("Floor %.2fm", top), top)

		ring := footprintRing(slab.Footprint)
		if len(ring) < 3 {
			p.logf(jobID, "slab %d: degenerate footprint, skipping solid", slab.Storey)
			continue
		}
		el := model.AddSlab(storeyRefs[i], fmt.Sprintf("Slab %d", slab.Storey),
			ring, slab.BottomZ, slab.Thickness, cfg.IFC.MaterialForObjects)
		mapping.AddSlab(el.GlobalID, slab.PointIndices, slab.BottomZ, slab.Thickness)
	}

	// Spaces go on every storey except the topmost slab, which is the
	// roof and has no storey above it.
	zoneNo := make(map[int]int)
	for _, z := range zones {
		if z.Storey >= len(slabs) {
			continue
		}
		st := storeyRefs[z.Storey-1]
		ring := footprintRing(z.Polygon)
		if len(ring) < 3 {
			continue
		}
		zoneNo[z.Storey]++
		model.AddSpace(st, z.Storey, zoneNo[z.Storey], ring, slabs[z.Storey-1].TopZ(), z.Height)
	}

	wallIDs := make(map[int]string, len(walls))
	for _, w := range walls {
		if w.Start == w.End {
			p.logf(jobID, "wall %d: zero length, skipped", w.ID)
			continue
		}
		st := storeyRefs[w.Storey-1]
		el := model.AddWall(st, fmt.Sprintf("Wall %d", w.ID),
			[2]float64{w.Start.X, w.Start.Y}, [2]float64{w.End.X, w.End.Y},
			w.BaseZ, w.Height, w.Thickness, w.Material, w.Label == WallExterior)
		mapping.AddWall(el.GlobalID, w.PointIndices, w.Storey, w.Thickness, w.Label)
		wallIDs[w.ID] = el.GlobalID

		windowNo, doorNo := 1, 1
		for _, o := range openings {
			if o.WallID != w.ID {
				continue
			}
			var spec ifc.OpeningSpec
			switch o.Type {
			case OpeningWindow:
				spec.Kind = ifc.KindWindow
				spec.ID = fmt.Sprintf("W%02d", windowNo)
				windowNo++
			case OpeningDoor:
				spec.Kind = ifc.KindDoor
				spec.ID = fmt.Sprintf("D%02d", doorNo)
				doorNo++
			}
			spec.Width = o.Width()
			spec.Height = o.Height()
			// Opening z ranges are measured above the storey floor;
			// the wall solid starts at the wall base.
			spec.Sill = o.ZMin + (w.FloorZ - w.BaseZ)
			spec.Offset = o.XStart
			res := model.AddOpening(el, spec)
			mapping.AddOpening(res.Opening.GlobalID, o.PointIndices, wallIDs[w.ID], o.Type)
		}
	}

	return model, nil
}

// footprintRing converts a polygon to the plain coordinate pairs the
// IFC builder takes.
func footprintRing(poly []Point2) [][2]float64 {
	ring := make([][2]float64, len(poly))
	for i, p := range poly {
		ring[i] = [2]float64{p.X, p.Y}
	}
	return ring
}

func (p *Processor) record(jobID string, start time.Time, stage Stage, percent int, detail ProgressDetail, runErr error) {
	if p.Store == nil {
		return
	}
	rec := RunRecord{
		JobID:      jobID,
		StartedAt:  start,
		FinishedAt: time.Now(),
		Stage:      stage,
		Percent:    percent,
		Points:     detail.Points,
		Slabs:      detail.Slabs,
		Walls:      detail.Walls,
		Openings:   detail.Openings,
		Zones:      detail.Zones,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := p.Store.RecordRun(rec); err != nil {
		p.logf(jobID, "run history write failed: %v", err)
	}
}

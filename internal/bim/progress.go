package bim

import "time"

// Stage identifies one step of the conversion pipeline.
type Stage string

const (
	StageInitializing      Stage = "initializing"
	StageLoadingPointCloud Stage = "loading_point_cloud"
	StagePreprocessing     Stage = "preprocessing"
	StageDetectingSlabs    Stage = "detecting_slabs"
	StageDetectingWalls    Stage = "detecting_walls"
	StageDetectingZones    Stage = "detecting_zones"
	StageGeneratingIFC     Stage = "generating_ifc"
	StageSavingMapping     Stage = "saving_mapping"
	StageFinished          Stage = "finished"
	StageFailed            Stage = "failed"
)

// stagePercent is the overall completion reported on entering a stage.
var stagePercent = map[Stage]int{
	StageInitializing:      0,
	StageLoadingPointCloud: 10,
	StagePreprocessing:     25,
	StageDetectingSlabs:    40,
	StageDetectingWalls:    55,
	StageDetectingZones:    70,
	StageGeneratingIFC:     80,
	StageSavingMapping:     90,
	StageFinished:          100,
}

// Percent returns the completion percentage associated with entering s.
// Failed stages keep the last reported percentage, so Failed maps to 0
// here and the orchestrator reports the retained value instead.
func (s Stage) Percent() int { return stagePercent[s] }

// ProgressDetail is the optional payload of a progress report.
type ProgressDetail struct {
	Elapsed  time.Duration
	Points   int
	Slabs    int
	Walls    int
	Openings int
	Zones    int
	Message  string
}

// ProgressSink receives stage transitions. Implementations must be fast
// and must not block the pipeline; transport to any consumer is the
// implementation's concern.
type ProgressSink interface {
	Report(stage Stage, percent int, detail ProgressDetail)
}

// NopSink discards all reports.
type NopSink struct{}

func (NopSink) Report(Stage, int, ProgressDetail) {}

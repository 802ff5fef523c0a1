package bim

import "errors"

// Sentinel errors for the fatal detection conditions. Non-fatal empty
// results (zero zones for a storey, zero openings for a wall) are not
// errors; they surface as empty collections and a log line.
var (
	// ErrEmptyPointCloud indicates the prepared cloud has no points.
	ErrEmptyPointCloud = errors.New("point cloud is empty")

	// ErrNoSlabs indicates fewer than two vertical density maxima were
	// found, so no storey structure exists. Fatal for the job.
	ErrNoSlabs = errors.New("no slabs detected in point cloud")

	// ErrNoWalls indicates no wall was detected on any storey. IFC
	// generation is skipped and the job fails.
	ErrNoWalls = errors.New("no walls detected on any storey")
)

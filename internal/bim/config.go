package bim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default detection thresholds. Distances are metres.
const (
	DefaultVoxelSize             = 0.05
	DefaultGridCoefficient       = 3
	DefaultSlabThickness         = 0.2
	DefaultSlabZStep             = 0.15
	DefaultMinWallLength         = 0.5
	DefaultMinWallThickness      = 0.08
	DefaultMaxWallThickness      = 0.5
	DefaultExteriorWallThickness = 0.3
	DefaultZoneSnappingDistance  = 0.8
	DefaultMinOpeningWidth       = 0.4
	DefaultMinOpeningHeight      = 0.6
	DefaultMaxOpeningAspectRatio = 4.0
	DefaultDoorZMax              = 0.1
	DefaultDoorMinHeight         = 1.6
	DefaultOpeningMinZTop        = 1.6
	DefaultTopStoreyHeight       = 3.0
)

// IFCSettings carries the project, author and material metadata written
// into the generated IFC file.
type IFCSettings struct {
	ProjectName     string `json:"project_name"`
	ProjectLongName string `json:"project_long_name"`
	Version         string `json:"version"`
	BuildingName    string `json:"building_name"`
	BuildingType    string `json:"building_type"`
	BuildingPhase   string `json:"building_phase"`

	SiteLatitude  float64 `json:"site_latitude"`
	SiteLongitude float64 `json:"site_longitude"`
	SiteElevation float64 `json:"site_elevation"`

	MaterialForObjects string `json:"material_for_objects"`
	MaterialForWalls   string `json:"material_for_walls"`
	MaterialForWindows string `json:"material_for_windows"`
	MaterialForDoors   string `json:"material_for_doors"`

	WindowColourRGB [3]float64 `json:"window_colour_rgb"`
	DoorColourRGB   [3]float64 `json:"door_colour_rgb"`

	AuthorName         string `json:"author_name"`
	AuthorSurname      string `json:"author_surname"`
	AuthorOrganization string `json:"organization"`
}

// Config is the immutable per-job configuration value passed into each
// detection stage. Build one with DefaultConfig and adjust fields, or load
// a partial overlay from JSON with LoadConfig; once a job starts the value
// is never modified.
type Config struct {
	// Preprocessing.
	ExteriorScan     bool
	DilutePointCloud bool
	DilutionFactor   int
	// PreprocessVoxel enables voxel downsampling of the cloud at
	// VoxelSize before detection.
	PreprocessVoxel bool
	VoxelSize       float64

	// Detection grid.
	GridCoefficient float64

	// Slab detection.
	SlabThickness float64
	SlabZStep     float64

	// Wall detection.
	MinWallLength         float64
	MinWallThickness      float64
	MaxWallThickness      float64
	ExteriorWallThickness float64

	// Zone detection.
	ZoneSnappingDistance float64

	// Opening detection.
	MinOpeningWidth       float64
	MinOpeningHeight      float64
	MaxOpeningAspectRatio float64
	DoorZMax              float64
	DoorMinHeight         float64
	OpeningMinZTop        float64

	// DefaultTopStoreyHeight is used for the topmost storey of an
	// exterior scan where no slab above constrains the wall height.
	DefaultTopStoreyHeight float64

	IFC IFCSettings
}

// DefaultConfig returns a Config with every threshold at its default.
func DefaultConfig() Config {
	return Config{
		DilutionFactor:         1,
		VoxelSize:              DefaultVoxelSize,
		GridCoefficient:        DefaultGridCoefficient,
		SlabThickness:          DefaultSlabThickness,
		SlabZStep:              DefaultSlabZStep,
		MinWallLength:          DefaultMinWallLength,
		MinWallThickness:       DefaultMinWallThickness,
		MaxWallThickness:       DefaultMaxWallThickness,
		ExteriorWallThickness:  DefaultExteriorWallThickness,
		ZoneSnappingDistance:   DefaultZoneSnappingDistance,
		MinOpeningWidth:        DefaultMinOpeningWidth,
		MinOpeningHeight:       DefaultMinOpeningHeight,
		MaxOpeningAspectRatio:  DefaultMaxOpeningAspectRatio,
		DoorZMax:               DefaultDoorZMax,
		DoorMinHeight:          DefaultDoorMinHeight,
		OpeningMinZTop:         DefaultOpeningMinZTop,
		DefaultTopStoreyHeight: DefaultTopStoreyHeight,
		IFC: IFCSettings{
			ProjectName:        "Cloud2BIM Project",
			ProjectLongName:    "Generated by Cloud2BIM",
			Version:            "1.0",
			BuildingName:       "Building",
			BuildingType:       "Building",
			BuildingPhase:      "Construction",
			MaterialForObjects: "Concrete",
			MaterialForWalls:   "Concrete",
			MaterialForWindows: "Glass",
			MaterialForDoors:   "Wood",
			WindowColourRGB:    [3]float64{0.0, 0.0, 1.0},
			DoorColourRGB:      [3]float64{1.0, 0.0, 0.0},
			AuthorName:         "Cloud2BIM",
			AuthorSurname:      "System",
			AuthorOrganization: "Cloud2BIM",
		},
	}
}

// Validate checks the configuration for values that would make detection
// meaningless. A failed validation is an input error: the job must not
// start.
func (c Config) Validate() error {
	if c.VoxelSize < 0 {
		return fmt.Errorf("voxel_size must be non-negative, got %g", c.VoxelSize)
	}
	if c.GridCoefficient <= 0 {
		return fmt.Errorf("grid_coefficient must be positive, got %g", c.GridCoefficient)
	}
	if c.SlabThickness <= 0 {
		return fmt.Errorf("slab thickness must be positive, got %g", c.SlabThickness)
	}
	if c.SlabZStep <= 0 {
		return fmt.Errorf("slab z step must be positive, got %g", c.SlabZStep)
	}
	if c.MinWallThickness <= 0 || c.MaxWallThickness <= c.MinWallThickness {
		return fmt.Errorf("wall thickness bounds invalid: [%g, %g]", c.MinWallThickness, c.MaxWallThickness)
	}
	if c.MinWallLength <= 0 {
		return fmt.Errorf("min wall length must be positive, got %g", c.MinWallLength)
	}
	if c.ZoneSnappingDistance <= 0 {
		return fmt.Errorf("zone snapping distance must be positive, got %g", c.ZoneSnappingDistance)
	}
	if c.MinOpeningWidth <= 0 || c.MinOpeningHeight <= 0 {
		return fmt.Errorf("opening minimums must be positive: width %g, height %g", c.MinOpeningWidth, c.MinOpeningHeight)
	}
	if c.MaxOpeningAspectRatio < 1 {
		return fmt.Errorf("max opening aspect ratio must be >= 1, got %g", c.MaxOpeningAspectRatio)
	}
	if c.DilutionFactor < 1 {
		return fmt.Errorf("dilution factor must be >= 1, got %d", c.DilutionFactor)
	}
	return nil
}

// configFile is the JSON overlay schema. Fields omitted from the file
// retain their defaults, so partial configs are safe.
type configFile struct {
	ExteriorScan     *bool    `json:"exterior_scan,omitempty"`
	DilutePointCloud *bool    `json:"dilute_pointcloud,omitempty"`
	DilutionFactor   *int     `json:"dilution_factor,omitempty"`
	PreprocessVoxel  *bool    `json:"preprocess_voxel,omitempty"`
	VoxelSize        *float64 `json:"voxel_size,omitempty"`
	GridCoefficient  *float64 `json:"grid_coefficient,omitempty"`

	SlabThickness *float64 `json:"slab_thickness,omitempty"`

	MinWallLength         *float64 `json:"wall_min_width,omitempty"`
	MinWallThickness      *float64 `json:"wall_min_thickness,omitempty"`
	MaxWallThickness      *float64 `json:"wall_max_thickness,omitempty"`
	ExteriorWallThickness *float64 `json:"wall_exterior_thickness,omitempty"`

	ZoneSnappingDistance *float64 `json:"zone_snapping_distance,omitempty"`

	MinOpeningWidth       *float64 `json:"min_opening_width,omitempty"`
	MinOpeningHeight      *float64 `json:"min_opening_height,omitempty"`
	MaxOpeningAspectRatio *float64 `json:"max_opening_aspect_ratio,omitempty"`
	DoorZMax              *float64 `json:"door_z_max,omitempty"`
	DoorMinHeight         *float64 `json:"door_min_height,omitempty"`
	OpeningMinZTop        *float64 `json:"opening_min_z_top,omitempty"`

	DefaultTopStoreyHeight *float64 `json:"default_top_storey_height,omitempty"`

	IFC *ifcOverlay `json:"ifc,omitempty"`
}

// ifcOverlay mirrors IFCSettings with pointer fields so the overlay can
// distinguish "absent" from legitimate zero values such as a site
// latitude of 0 or a black colour.
type ifcOverlay struct {
	ProjectName     *string `json:"project_name,omitempty"`
	ProjectLongName *string `json:"project_long_name,omitempty"`
	Version         *string `json:"version,omitempty"`
	BuildingName    *string `json:"building_name,omitempty"`
	BuildingType    *string `json:"building_type,omitempty"`
	BuildingPhase   *string `json:"building_phase,omitempty"`

	SiteLatitude  *float64 `json:"site_latitude,omitempty"`
	SiteLongitude *float64 `json:"site_longitude,omitempty"`
	SiteElevation *float64 `json:"site_elevation,omitempty"`

	MaterialForObjects *string `json:"material_for_objects,omitempty"`
	MaterialForWalls   *string `json:"material_for_walls,omitempty"`
	MaterialForWindows *string `json:"material_for_windows,omitempty"`
	MaterialForDoors   *string `json:"material_for_doors,omitempty"`

	WindowColourRGB *[3]float64 `json:"window_colour_rgb,omitempty"`
	DoorColourRGB   *[3]float64 `json:"door_colour_rgb,omitempty"`

	AuthorName         *string `json:"author_name,omitempty"`
	AuthorSurname      *string `json:"author_surname,omitempty"`
	AuthorOrganization *string `json:"organization,omitempty"`
}

// LoadConfig reads a JSON config overlay and applies it over the defaults.
// The result is validated before it is returned.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var overlay configFile
	if err := json.Unmarshal(data, &overlay); err != nil {
		return Config{}, fmt.Errorf("parse config JSON: %w", err)
	}

	cfg := DefaultConfig()
	overlay.apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *configFile) apply(cfg *Config) {
	if f.ExteriorScan != nil {
		cfg.ExteriorScan = *f.ExteriorScan
	}
	if f.DilutePointCloud != nil {
		cfg.DilutePointCloud = *f.DilutePointCloud
	}
	if f.DilutionFactor != nil {
		cfg.DilutionFactor = *f.DilutionFactor
	}
	if f.PreprocessVoxel != nil {
		cfg.PreprocessVoxel = *f.PreprocessVoxel
	}
	if f.VoxelSize != nil {
		cfg.VoxelSize = *f.VoxelSize
	}
	if f.GridCoefficient != nil {
		cfg.GridCoefficient = *f.GridCoefficient
	}
	if f.SlabThickness != nil {
		cfg.SlabThickness = *f.SlabThickness
	}
	if f.MinWallLength != nil {
		cfg.MinWallLength = *f.MinWallLength
	}
	if f.MinWallThickness != nil {
		cfg.MinWallThickness = *f.MinWallThickness
	}
	if f.MaxWallThickness != nil {
		cfg.MaxWallThickness = *f.MaxWallThickness
	}
	if f.ExteriorWallThickness != nil {
		cfg.ExteriorWallThickness = *f.ExteriorWallThickness
	}
	if f.ZoneSnappingDistance != nil {
		cfg.ZoneSnappingDistance = *f.ZoneSnappingDistance
	}
	if f.MinOpeningWidth != nil {
		cfg.MinOpeningWidth = *f.MinOpeningWidth
	}
	if f.MinOpeningHeight != nil {
		cfg.MinOpeningHeight = *f.MinOpeningHeight
	}
	if f.MaxOpeningAspectRatio != nil {
		cfg.MaxOpeningAspectRatio = *f.MaxOpeningAspectRatio
	}
	if f.DoorZMax != nil {
		cfg.DoorZMax = *f.DoorZMax
	}
	if f.DoorMinHeight != nil {
		cfg.DoorMinHeight = *f.DoorMinHeight
	}
	if f.OpeningMinZTop != nil {
		cfg.OpeningMinZTop = *f.OpeningMinZTop
	}
	if f.DefaultTopStoreyHeight != nil {
		cfg.DefaultTopStoreyHeight = *f.DefaultTopStoreyHeight
	}
	if f.IFC != nil {
		f.IFC.apply(&cfg.IFC)
	}
}

func (o *ifcOverlay) apply(dst *IFCSettings) {
	if o.ProjectName != nil {
		dst.ProjectName = *o.ProjectName
	}
	if o.ProjectLongName != nil {
		dst.ProjectLongName = *o.ProjectLongName
	}
	if o.Version != nil {
		dst.Version = *o.Version
	}
	if o.BuildingName != nil {
		dst.BuildingName = *o.BuildingName
	}
	if o.BuildingType != nil {
		dst.BuildingType = *o.BuildingType
	}
	if o.BuildingPhase != nil {
		dst.BuildingPhase = *o.BuildingPhase
	}
	if o.SiteLatitude != nil {
		dst.SiteLatitude = *o.SiteLatitude
	}
	if o.SiteLongitude != nil {
		dst.SiteLongitude = *o.SiteLongitude
	}
	if o.SiteElevation != nil {
		dst.SiteElevation = *o.SiteElevation
	}
	if o.MaterialForObjects != nil {
		dst.MaterialForObjects = *o.MaterialForObjects
	}
	if o.MaterialForWalls != nil {
		dst.MaterialForWalls = *o.MaterialForWalls
	}
	if o.MaterialForWindows != nil {
		dst.MaterialForWindows = *o.MaterialForWindows
	}
	if o.MaterialForDoors != nil {
		dst.MaterialForDoors = *o.MaterialForDoors
	}
	if o.WindowColourRGB != nil {
		dst.WindowColourRGB = *o.WindowColourRGB
	}
	if o.DoorColourRGB != nil {
		dst.DoorColourRGB = *o.DoorColourRGB
	}
	if o.AuthorName != nil {
		dst.AuthorName = *o.AuthorName
	}
	if o.AuthorSurname != nil {
		dst.AuthorSurname = *o.AuthorSurname
	}
	if o.AuthorOrganization != nil {
		dst.AuthorOrganization = *o.AuthorOrganization
	}
}

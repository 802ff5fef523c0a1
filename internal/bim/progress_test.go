package bim

import "testing"

func TestStage_Percent(t *testing.T) {
	cases := map[Stage]int{
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
	for stage, want := range cases {
		if got := stage.Percent(); got != want {
			t.Errorf("%s: expected %d%%, got %d%%", stage, want, got)
		}
	}
	// Failed has no percentage of its own; the last stage's value is
	// reported instead.
	if got := StageFailed.Percent(); got != 0 {
		t.Errorf("failed stage: expected 0, got %d", got)
	}
}

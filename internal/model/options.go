package model

import (
	"fmt"
	"strings"
)

// DrivingSide selects which side of the road traffic drives on.
type DrivingSide string

const (
	DrivingSideRight DrivingSide = "Right"
	DrivingSideLeft  DrivingSide = "Left"
)

// ParseDrivingSide parses a driving side argument, case-insensitively.
func ParseDrivingSide(s string) (DrivingSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "right":
		return DrivingSideRight, nil
	case "left":
		return DrivingSideLeft, nil
	default:
		return "", fmt.Errorf("invalid driving side %q (must be Right or Left)", s)
	}
}

// RenderOptions is the fixed per-run configuration handed to the street
// geometry backend. Applied identically to every tile of a run.
type RenderOptions struct {
	DebugEachStep             bool        `json:"debug_each_step"`
	DualCarriagewayExperiment bool        `json:"dual_carriageway_experiment"`
	SidepathZippingExperiment bool        `json:"sidepath_zipping_experiment"`
	InferredSidewalks         bool        `json:"inferred_sidewalks"`
	InferredKerbs             bool        `json:"inferred_kerbs"`
	DateTime                  *string     `json:"date_time"`
	OverrideDrivingSide       DrivingSide `json:"override_driving_side"`
}

// DefaultRenderOptions returns the standard backend configuration with
// sidewalk and kerb inference enabled.
func DefaultRenderOptions(side DrivingSide) RenderOptions {
	return RenderOptions{
		InferredSidewalks:   true,
		InferredKerbs:       true,
		OverrideDrivingSide: side,
	}
}

// LayerSet selects which of the three combined output layers to produce.
type LayerSet struct {
	Network       bool
	Lanes         bool
	Intersections bool
}

// AllLayers enables every output layer.
func AllLayers() LayerSet {
	return LayerSet{Network: true, Lanes: true, Intersections: true}
}

// ParseLayerSet parses a comma-separated layer list such as "network,lanes".
// An empty string selects all layers.
func ParseLayerSet(s string) (LayerSet, error) {
	if strings.TrimSpace(s) == "" {
		return AllLayers(), nil
	}
	var ls LayerSet
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "network":
			ls.Network = true
		case "lanes":
			ls.Lanes = true
		case "intersections":
			ls.Intersections = true
		default:
			return LayerSet{}, fmt.Errorf("unknown output layer %q", part)
		}
	}
	return ls, nil
}

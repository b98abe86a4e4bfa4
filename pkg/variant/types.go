// Package variant holds the embedded creature and battleland data and
// turns it into engine catalogs and grids.
package variant

import "titan-battle/internal/battle"

// RawCreature is one creature entry in creatures.yaml.
type RawCreature struct {
	Name         string   `yaml:"name"`
	Power        int      `yaml:"power"`
	Skill        int      `yaml:"skill"`
	Count        int      `yaml:"count"`
	Rangestrikes bool     `yaml:"rangestrikes"`
	Flies        bool     `yaml:"flies"`
	Lord         bool     `yaml:"lord"`
	Demilord     bool     `yaml:"demilord"`
	Titan        bool     `yaml:"titan"`
	Summonable   bool     `yaml:"summonable"`
	MagicMissile bool     `yaml:"magic_missile"`
	Natives      []string `yaml:"natives"`
}

// RawHex is the terrain of one hex in battlelands.yaml.
type RawHex struct {
	Terrain   string            `yaml:"terrain"`
	Elevation int               `yaml:"elevation"`
	Hexsides  map[string]string `yaml:"hexsides"` // direction -> hexside
}

// RawLand is one battleland entry in battlelands.yaml.
type RawLand struct {
	Code  string            `yaml:"code"`
	Name  string            `yaml:"name"`
	Tower bool              `yaml:"tower"`
	Hexes map[string]RawHex `yaml:"hexes"`
}

// Land is a processed battleland, ready to build grids from.
type Land struct {
	Code   string
	Name   string
	Tower  bool
	Layout battle.Layout
}

// Grid builds a fresh battle map for the land.
func (l *Land) Grid() (*battle.Grid, error) {
	return battle.NewGrid(l.Layout)
}

// LandInfo contains basic battleland information for listing.
type LandInfo struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Tower    bool   `json:"tower"`
	Features int    `json:"features"`
}

package variant

import (
	"embed"
	"fmt"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"titan-battle/internal/battle"
)

//go:embed data/*.yaml
var dataFiles embed.FS

const (
	creaturesFile = "creatures.yaml"
	landsFile     = "battlelands.yaml"
)

// Registry holds all loaded battlelands keyed by terrain code.
var Registry = make(map[string]*Land)

var catalog *battle.Catalog

// LoadAll loads the embedded creature catalog and battlelands.
func LoadAll() error {
	data, err := dataFiles.ReadFile(path.Join("data", creaturesFile))
	if err != nil {
		return fmt.Errorf("failed to read creature file: %w", err)
	}
	cat, err := LoadCatalog(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", creaturesFile, err)
	}

	data, err = dataFiles.ReadFile(path.Join("data", landsFile))
	if err != nil {
		return fmt.Errorf("failed to read battleland file: %w", err)
	}
	lands, err := LoadLands(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", landsFile, err)
	}

	catalog = cat
	for _, l := range lands {
		Register(l)
	}
	return nil
}

// LoadCatalog parses a creature list into a catalog.
func LoadCatalog(data []byte) (*battle.Catalog, error) {
	var raw []RawCreature
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse creature YAML: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no creatures defined")
	}

	types := make([]*battle.CreatureType, 0, len(raw))
	for _, rc := range raw {
		t, err := processCreature(rc)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return battle.NewCatalog(types)
}

func processCreature(rc RawCreature) (*battle.CreatureType, error) {
	if rc.Count < 0 {
		return nil, fmt.Errorf("creature %s: negative count", rc.Name)
	}
	t := &battle.CreatureType{
		Name:         rc.Name,
		Power:        rc.Power,
		Skill:        rc.Skill,
		MaxCount:     rc.Count,
		Rangestriker: rc.Rangestrikes,
		Flier:        rc.Flies,
		Lord:         rc.Lord,
		Demilord:     rc.Demilord,
		Titan:        rc.Titan,
		Summonable:   rc.Summonable,
		MagicMissile: rc.MagicMissile,
	}
	for _, name := range rc.Natives {
		n, err := battle.ParseNative(name)
		if err != nil {
			return nil, fmt.Errorf("creature %s: %w", rc.Name, err)
		}
		t.Natives |= n
	}
	return t, nil
}

// LoadLands parses a battleland list.
func LoadLands(data []byte) ([]*Land, error) {
	var raw []RawLand
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse battleland YAML: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	lands := make([]*Land, 0, len(raw))
	for i := range raw {
		if err := validate(&raw[i]); err != nil {
			return nil, fmt.Errorf("invalid battleland: %w", err)
		}
		if seen[raw[i].Code] {
			return nil, fmt.Errorf("duplicate battleland code %q", raw[i].Code)
		}
		seen[raw[i].Code] = true

		l, err := Process(&raw[i])
		if err != nil {
			return nil, err
		}
		lands = append(lands, l)
	}
	return lands, nil
}

// LoadLandFromYAML loads a single battleland (for custom lands).
func LoadLandFromYAML(data []byte) (*Land, error) {
	var raw RawLand
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse battleland YAML: %w", err)
	}
	if err := validate(&raw); err != nil {
		return nil, fmt.Errorf("invalid battleland: %w", err)
	}
	return Process(&raw)
}

// validate checks a raw battleland for errors.
func validate(raw *RawLand) error {
	if raw.Code == "" {
		return fmt.Errorf("battleland code is required")
	}
	if raw.Name == "" {
		return fmt.Errorf("battleland %s: name is required", raw.Code)
	}
	for label, h := range raw.Hexes {
		if h.Elevation < 0 || h.Elevation > 2 {
			return fmt.Errorf("%s %s: elevation %d out of range", raw.Code, label, h.Elevation)
		}
		if h.Terrain != "" {
			if _, err := battle.ParseTerrain(h.Terrain); err != nil {
				return fmt.Errorf("%s %s: %w", raw.Code, label, err)
			}
		}
		for dir, side := range h.Hexsides {
			if _, err := battle.ParseDirection(dir); err != nil {
				return fmt.Errorf("%s %s: %w", raw.Code, label, err)
			}
			if _, err := battle.ParseHexside(side); err != nil {
				return fmt.Errorf("%s %s: %w", raw.Code, label, err)
			}
		}
	}
	return nil
}

// Process converts a validated raw battleland into a Land and checks that
// it builds a grid.
func Process(raw *RawLand) (*Land, error) {
	layout := battle.Layout{
		Name:  raw.Name,
		Code:  raw.Code,
		Tower: raw.Tower,
		Hexes: make(map[string]battle.HexLayout, len(raw.Hexes)),
	}
	for label, h := range raw.Hexes {
		hl := battle.HexLayout{Elevation: h.Elevation}
		if h.Terrain != "" {
			hl.Terrain, _ = battle.ParseTerrain(h.Terrain)
		}
		for dir, side := range h.Hexsides {
			d, _ := battle.ParseDirection(dir)
			hl.Hexsides[d], _ = battle.ParseHexside(side)
		}
		layout.Hexes[label] = hl
	}

	if _, err := battle.NewGrid(layout); err != nil {
		return nil, fmt.Errorf("battleland %s: %w", raw.Code, err)
	}
	return &Land{Code: raw.Code, Name: raw.Name, Tower: raw.Tower, Layout: layout}, nil
}

// Catalog returns the loaded creature catalog, or nil before LoadAll.
func Catalog() *battle.Catalog {
	return catalog
}

// Get retrieves a battleland from the registry by code.
func Get(code string) *Land {
	return Registry[code]
}

// Grid builds a battle map for the battleland with the given code.
func Grid(code string) (*battle.Grid, error) {
	l := Get(code)
	if l == nil {
		return nil, fmt.Errorf("unknown battleland %q", code)
	}
	return l.Grid()
}

// List returns all battlelands sorted by name.
func List() []LandInfo {
	infos := make([]LandInfo, 0, len(Registry))
	for _, l := range Registry {
		infos = append(infos, LandInfo{
			Code:     l.Code,
			Name:     l.Name,
			Tower:    l.Tower,
			Features: len(l.Layout.Hexes),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Register adds a battleland to the registry.
func Register(l *Land) {
	if l != nil && l.Code != "" {
		Registry[l.Code] = l
	}
}

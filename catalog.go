package main

import "strings"

// MachineProfile describes a supported laser machine. The catalog is static
// and loaded at process start; nothing mutates it afterwards.
type MachineProfile struct {
	Name         string    `json:"name"`
	Brand        string    `json:"brand"`
	DefaultPower float64   `json:"default_power"`
	PowerRange   []float64 `json:"power_range"` // available module options in watts
	Icon         string    `json:"icon"`
	MaxThickness float64   `json:"max_thickness"` // mm
}

// MaterialProfile describes a supported material
type MaterialProfile struct {
	Name         string  `json:"name"` // display name shown in the app
	Key          string  `json:"key"`  // stable lookup key used in documents
	Icon         string  `json:"icon"`
	MaxThickness float64 `json:"max_thickness"` // mm
	Difficulty   string  `json:"difficulty"`    // easy, medium, hard
	Warning      string  `json:"warning,omitempty"`
}

// MaterialCategory groups materials under a display label
type MaterialCategory struct {
	Label     string            `json:"label"`
	Materials []MaterialProfile `json:"materials"`
}

// DataSourceInfo describes how a prediction provenance tag is displayed
type DataSourceInfo struct {
	Source      string `json:"source"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// supportedMachines is the canonical machine table. Order matters for
// nearest-value tie breaks elsewhere, so keep it stable.
var supportedMachines = []MachineProfile{
	{Name: "xTool D1 Pro", Brand: "xTool", DefaultPower: 20.0, PowerRange: []float64{5.0, 10.0, 20.0, 40.0}, Icon: "xtool_d1_pro", MaxThickness: 10.0},
	{Name: "xTool D1", Brand: "xTool", DefaultPower: 10.0, PowerRange: []float64{5.0, 10.0}, Icon: "xtool_d1", MaxThickness: 8.0},
	{Name: "xTool S1", Brand: "xTool", DefaultPower: 20.0, PowerRange: []float64{10.0, 20.0, 40.0}, Icon: "xtool_s1", MaxThickness: 10.0},
	{Name: "Atomstack A5 Pro", Brand: "Atomstack", DefaultPower: 5.5, PowerRange: []float64{5.5}, Icon: "atomstack_a5", MaxThickness: 5.0},
	{Name: "Atomstack X20 Pro", Brand: "Atomstack", DefaultPower: 20.0, PowerRange: []float64{20.0}, Icon: "atomstack_x20", MaxThickness: 10.0},
	{Name: "Ortur Laser Master 2", Brand: "Ortur", DefaultPower: 5.5, PowerRange: []float64{5.5, 10.0}, Icon: "ortur_lm2", MaxThickness: 5.0},
	{Name: "Ortur Laser Master 3", Brand: "Ortur", DefaultPower: 10.0, PowerRange: []float64{10.0}, Icon: "ortur_lm3", MaxThickness: 8.0},
	{Name: "Sculpfun S9", Brand: "Sculpfun", DefaultPower: 5.5, PowerRange: []float64{5.5}, Icon: "sculpfun_s9", MaxThickness: 5.0},
	{Name: "Sculpfun S30 Pro", Brand: "Sculpfun", DefaultPower: 10.0, PowerRange: []float64{5.0, 10.0, 20.0}, Icon: "sculpfun_s30", MaxThickness: 8.0},
	{Name: "NEJE 3 Max", Brand: "NEJE", DefaultPower: 11.0, PowerRange: []float64{5.5, 11.0}, Icon: "neje_3_max", MaxThickness: 8.0},
	{Name: "TwoTrees TTS-55", Brand: "TwoTrees", DefaultPower: 5.5, PowerRange: []float64{5.5}, Icon: "twotrees_tts55", MaxThickness: 5.0},
	{Name: "Longer Ray5", Brand: "Longer", DefaultPower: 10.0, PowerRange: []float64{5.0, 10.0, 20.0}, Icon: "longer_ray5", MaxThickness: 8.0},
}

// materialCategories is the canonical material catalog, grouped the way the
// app presents them. Display names keep the original Turkish labels because
// documents in the remote store were written with them.
var materialCategories = []MaterialCategory{
	{
		Label: "Ahşap",
		Materials: []MaterialProfile{
			{Name: "Ahşap", Key: "ahsap", Icon: "wood", MaxThickness: 10.0, Difficulty: "easy"},
			{Name: "MDF", Key: "mdf", Icon: "mdf", MaxThickness: 8.0, Difficulty: "easy"},
			{Name: "Kontrplak", Key: "kontrplak", Icon: "plywood", MaxThickness: 6.0, Difficulty: "medium"},
			{Name: "Balsa", Key: "balsa", Icon: "balsa", MaxThickness: 10.0, Difficulty: "easy"},
		},
	},
	{
		Label: "Plastik",
		Materials: []MaterialProfile{
			{Name: "Akrilik", Key: "akrilik", Icon: "acrylic", MaxThickness: 8.0, Difficulty: "medium", Warning: "Sadece dökme akrilik; ekstrüde akrilik kenarları eritir."},
			{Name: "Plexiglass", Key: "plexiglass", Icon: "plexiglass", MaxThickness: 6.0, Difficulty: "medium"},
			{Name: "PVC", Key: "pvc", Icon: "pvc", MaxThickness: 0, Difficulty: "hard", Warning: "PVC kesilmez: klor gazı açığa çıkarır."},
		},
	},
	{
		Label: "Kağıt",
		Materials: []MaterialProfile{
			{Name: "Karton", Key: "karton", Icon: "cardboard", MaxThickness: 5.0, Difficulty: "easy"},
			{Name: "Kağıt", Key: "kagit", Icon: "paper", MaxThickness: 1.0, Difficulty: "easy", Warning: "Düşük güç ve yüksek hız kullanın, alev alabilir."},
			{Name: "Mukavva", Key: "mukavva", Icon: "chipboard", MaxThickness: 4.0, Difficulty: "easy"},
		},
	},
	{
		Label: "Deri ve Kumaş",
		Materials: []MaterialProfile{
			{Name: "Deri", Key: "deri", Icon: "leather", MaxThickness: 4.0, Difficulty: "medium", Warning: "Sadece doğal deri; suni deri PVC içerebilir."},
			{Name: "Keçe", Key: "kece", Icon: "felt", MaxThickness: 5.0, Difficulty: "easy"},
			{Name: "Kumaş", Key: "kumas", Icon: "fabric", MaxThickness: 2.0, Difficulty: "medium"},
		},
	},
}

// thicknessTable lists the discrete thickness options offered by the app, in mm
var thicknessTable = []float64{0.5, 1.0, 1.5, 2.0, 3.0, 4.0, 5.0, 6.0, 8.0, 10.0}

// powerTable lists the known diode module power options, in watts
var powerTable = []float64{2.0, 5.0, 5.5, 10.0, 11.0, 15.0, 20.0, 30.0, 40.0}

// dataSourceTable maps provenance tags to their display triples
var dataSourceTable = []DataSourceInfo{
	{Source: DataSourceStatic, Icon: "calculate", Color: "#9E9E9E", Description: "Temel algoritma ile hesaplandı"},
	{Source: DataSourceUserData, Icon: "people", Color: "#4CAF50", Description: "Topluluk deneylerinden türetildi"},
	{Source: DataSourceHybrid, Icon: "auto_awesome", Color: "#2196F3", Description: "Algoritma ve topluluk verisi birleştirildi"},
}

// AllMachines returns the machine catalog
func AllMachines() []MachineProfile {
	return supportedMachines
}

// MaterialCategories returns the material catalog grouped by category
func MaterialCategories() []MaterialCategory {
	return materialCategories
}

// AllMaterials returns every material in catalog order
func AllMaterials() []MaterialProfile {
	var materials []MaterialProfile
	for _, category := range materialCategories {
		materials = append(materials, category.Materials...)
	}
	return materials
}

// GetMachineProfile finds a machine by name
func GetMachineProfile(name string) (MachineProfile, bool) {
	for _, machine := range supportedMachines {
		if machine.Name == name {
			return machine, true
		}
	}
	return MachineProfile{}, false
}

// GetPowerRangeForMachine returns the module power options for a machine,
// or nil if the machine is not in the catalog
func GetPowerRangeForMachine(name string) []float64 {
	if machine, ok := GetMachineProfile(name); ok {
		return machine.PowerRange
	}
	return nil
}

// GetDefaultPowerForMachine returns the default module power for a machine,
// or 0 if the machine is not in the catalog
func GetDefaultPowerForMachine(name string) float64 {
	if machine, ok := GetMachineProfile(name); ok {
		return machine.DefaultPower
	}
	return 0
}

// GetMaxThicknessForMachine returns the maximum material thickness for a
// machine, or 0 if the machine is not in the catalog
func GetMaxThicknessForMachine(name string) float64 {
	if machine, ok := GetMachineProfile(name); ok {
		return machine.MaxThickness
	}
	return 0
}

// nearestValue scans a table for the entry with the smallest absolute
// distance to x. Ties resolve to the lower-indexed entry.
func nearestValue(table []float64, x float64) float64 {
	best := table[0]
	bestDist := abs(x - best)
	for _, v := range table[1:] {
		if d := abs(x - v); d < bestDist {
			best = v
			bestDist = d
		}
	}
	return best
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// GetNearestThickness snaps a thickness to the closest catalog entry
func GetNearestThickness(x float64) float64 {
	return nearestValue(thicknessTable, x)
}

// GetNearestPower snaps a laser power to the closest known module power
func GetNearestPower(x float64) float64 {
	return nearestValue(powerTable, x)
}

// GetMaterialProfile finds a material by its catalog key
func GetMaterialProfile(key string) (MaterialProfile, bool) {
	for _, category := range materialCategories {
		for _, material := range category.Materials {
			if material.Key == key {
				return material, true
			}
		}
	}
	return MaterialProfile{}, false
}

// GetMaterialDisplayName returns the display name for a catalog key. Unknown
// keys are returned unchanged so remote documents with custom materials still
// render something.
func GetMaterialDisplayName(key string) string {
	if material, ok := GetMaterialProfile(key); ok {
		return material.Name
	}
	return key
}

// GetMaterialKeyFromDisplayName maps a display name back to its catalog key.
// Unknown names are normalized to an ASCII-folded, lowercase, underscore
// joined fallback key so custom materials get stable document keys.
func GetMaterialKeyFromDisplayName(name string) string {
	for _, category := range materialCategories {
		for _, material := range category.Materials {
			if material.Name == name {
				return material.Key
			}
		}
	}
	return normalizeMaterialKey(name)
}

// asciiFold maps the Turkish characters used in material names to their
// ASCII equivalents
var asciiFold = map[rune]rune{
	'ç': 'c', 'Ç': 'c',
	'ğ': 'g', 'Ğ': 'g',
	'ı': 'i', 'I': 'i', 'İ': 'i',
	'ö': 'o', 'Ö': 'o',
	'ş': 's', 'Ş': 's',
	'ü': 'u', 'Ü': 'u',
	'â': 'a', 'Â': 'a',
	'î': 'i', 'Î': 'i',
	'û': 'u', 'Û': 'u',
}

// normalizeMaterialKey converts a free-form display name into a document key:
// ASCII-folded, lowercased, word-joined with underscores.
// "Özel Malzeme" becomes "ozel_malzeme".
func normalizeMaterialKey(name string) string {
	var b strings.Builder
	lastUnderscore := true // trim leading separators
	for _, r := range name {
		if folded, ok := asciiFold[r]; ok {
			r = folded
		}
		switch {
		case r >= 'A' && r <= 'Z':
			r = r + ('a' - 'A')
			fallthrough
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// GetDataSourceInfo returns the display triple for a provenance tag. Unknown
// tags fall back to the static algorithm entry.
func GetDataSourceInfo(source string) DataSourceInfo {
	for _, info := range dataSourceTable {
		if info.Source == source {
			return info
		}
	}
	return dataSourceTable[0]
}

package crop

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidCatalog is returned when the catalog document is malformed.
	ErrInvalidCatalog = errors.New("invalid crop catalog")
	// ErrUnknownCrop is returned by Lookup for names that are not in the catalog.
	ErrUnknownCrop = errors.New("unknown crop")
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the immutable, validated set of crop profiles known to the system.
// It is safe for concurrent use.
type Catalog struct {
	profiles []Profile
	index    map[string]int
}

type catalogDocument struct {
	Crops []Profile `yaml:"crops"`
}

// Default parses the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads and validates a catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document and validates every entry. All problems
// are reported together, wrapped in ErrInvalidCatalog.
func Parse(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(doc.Crops)
}

// New builds a Catalog from profiles. Soil types are normalized to lower case,
// planting months are sorted and missing nutrient thresholds get DefaultMinNutrients.
func New(profiles []Profile) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: no crops defined", ErrInvalidCatalog)
	}

	c := &Catalog{
		profiles: make([]Profile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}

	var errs []error
	for i, p := range profiles {
		p = normalizeProfile(p)
		if err := validateProfile(p); err != nil {
			errs = append(errs, fmt.Errorf("crop #%d (%q): %w", i, p.Name, err))
			continue
		}
		if _, dup := c.index[p.Name]; dup {
			errs = append(errs, fmt.Errorf("crop #%d: duplicate name %q", i, p.Name))
			continue
		}
		c.index[p.Name] = len(c.profiles)
		c.profiles = append(c.profiles, p)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}

	sort.Slice(c.profiles, func(i, j int) bool { return c.profiles[i].Name < c.profiles[j].Name })
	for i, p := range c.profiles {
		c.index[p.Name] = i
	}
	return c, nil
}

// Len returns the number of crops in the catalog.
func (c *Catalog) Len() int {
	return len(c.profiles)
}

// Profiles returns the crops ordered by name. The returned slice is a copy.
func (c *Catalog) Profiles() []Profile {
	return slices.Clone(c.profiles)
}

// Lookup returns the profile for name.
func (c *Catalog) Lookup(name string) (Profile, error) {
	i, ok := c.index[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownCrop, name)
	}
	return c.profiles[i], nil
}

// Names returns the crop names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		names[i] = p.Name
	}
	return names
}

func normalizeProfile(p Profile) Profile {
	p.Name = normalizeSoilType(p.Name)

	soils := make([]string, 0, len(p.SoilTypes))
	for _, s := range p.SoilTypes {
		soils = append(soils, normalizeSoilType(s))
	}
	slices.Sort(soils)
	p.SoilTypes = slices.Compact(soils)

	months := slices.Clone(p.PlantingMonths)
	slices.Sort(months)
	p.PlantingMonths = slices.Compact(months)

	if p.MinNutrients == (Nutrients{}) {
		p.MinNutrients = DefaultMinNutrients
	}
	return p
}

func validateProfile(p Profile) error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if err := validateRange("optimal_temp_range", p.TemperatureRange, math.Inf(-1)); err != nil {
		errs = append(errs, err)
	}
	// The rainfall falloff divides by the bounds, so they must be positive.
	if err := validateRange("rainfall_requirement", p.RainfallRange, 0); err != nil {
		errs = append(errs, err)
	} else if p.RainfallRange.Min <= 0 {
		errs = append(errs, errors.New("rainfall_requirement must be positive"))
	}
	if err := validateRange("soil_ph_range", p.PHRange, 0); err != nil {
		errs = append(errs, err)
	} else if p.PHRange.Max > 14 {
		errs = append(errs, errors.New("soil_ph_range must lie within 0-14"))
	}
	if p.GrowingSeasonDays <= 0 {
		errs = append(errs, errors.New("growing_season_days must be positive"))
	}
	if len(p.SoilTypes) == 0 || slices.Contains(p.SoilTypes, "") {
		errs = append(errs, errors.New("soil_types must list at least one non-empty soil type"))
	}
	if len(p.PlantingMonths) == 0 {
		errs = append(errs, errors.New("planting_months must not be empty"))
	}
	for _, m := range p.PlantingMonths {
		if m < 1 || m > 12 {
			errs = append(errs, fmt.Errorf("planting month %d out of range 1-12", m))
		}
	}
	n := p.MinNutrients
	if n.Nitrogen <= 0 || n.Phosphorus <= 0 || n.Potassium <= 0 {
		errs = append(errs, errors.New("min_nutrients must all be positive"))
	}
	return errors.Join(errs...)
}

func validateRange(field string, r Range, floor float64) error {
	for _, v := range []float64{r.Min, r.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", field)
		}
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s min %.2f exceeds max %.2f", field, r.Min, r.Max)
	}
	if r.Min < floor {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}

// Package catalog loads the scan floor catalogs from YAML.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/box-tracking-service/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type file struct {
	ConformingStatus string              `yaml:"conformingStatus"`
	DefectStatus     string              `yaml:"defectStatus"`
	Series           map[string]string   `yaml:"series"`
	Models           map[string]string   `yaml:"models"`
	Containers       map[string]int      `yaml:"containers"`
	Statuses         map[string]string   `yaml:"statuses"`
	Stations         map[string]string   `yaml:"stations"`
	Routes           map[string][]string `yaml:"routes"`
}

// Default returns the built-in catalog
func Default() (*domain.Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path loads the built-in catalog.
func Load(path string) (*domain.Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*domain.Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &domain.Catalog{
		Series:           upperKeys(f.Series),
		Models:           f.Models,
		Containers:       make(map[string]int, len(f.Containers)),
		Statuses:         upperKeys(f.Statuses),
		Stations:         upperKeys(f.Stations),
		Routes:           make(map[string]domain.Route, len(f.Routes)),
		ConformingStatus: strings.ToUpper(f.ConformingStatus),
		DefectStatus:     strings.ToUpper(f.DefectStatus),
	}
	for code, capacity := range f.Containers {
		c.Containers[strings.ToUpper(code)] = capacity
	}
	for series, stations := range f.Routes {
		c.Routes[strings.ToUpper(series)] = domain.NewRoute(stations...)
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func validate(c *domain.Catalog) error {
	if c.ConformingStatus == "" || !c.HasStatus(c.ConformingStatus) {
		return fmt.Errorf("catalog: conforming status %q is not a configured status", c.ConformingStatus)
	}
	if c.DefectStatus == "" || !c.HasStatus(c.DefectStatus) {
		return fmt.Errorf("catalog: defect status %q is not a configured status", c.DefectStatus)
	}
	if _, ok := c.Routes[domain.DefaultRouteKey]; !ok {
		return fmt.Errorf("catalog: a %s route is required", domain.DefaultRouteKey)
	}
	for code, capacity := range c.Containers {
		if capacity < 0 {
			return fmt.Errorf("catalog: container %s has negative capacity %d", code, capacity)
		}
	}
	for series, route := range c.Routes {
		if len(route) == 0 {
			return fmt.Errorf("catalog: route %s has no stations", series)
		}
		for _, station := range route {
			if _, ok := c.Stations[station]; !ok {
				return fmt.Errorf("catalog: route %s references unknown station %s", series, station)
			}
		}
	}
	return nil
}

func upperKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}

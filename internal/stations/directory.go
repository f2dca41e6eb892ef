// Package stations is the stop id -> display name reference data used to
// label normalized station records.
package stations

import (
	"archive/zip"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"
	"gopkg.in/yaml.v3"
)

//go:embed stations.yml
var defaultStations []byte

// UnknownStation names a stop that carries no stop id at all.
const UnknownStation = "Unknown Station"

// Directory is an immutable stop id -> station name mapping.
type Directory struct {
	names map[string]string
}

type directoryFile struct {
	Stations map[string]string `yaml:"stations" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// stopCSV is the subset of GTFS stops.txt needed for names.
type stopCSV struct {
	ID           string `csv:"stop_id"`
	Name         string `csv:"stop_name"`
	LocationType string `csv:"location_type"`
}

// New copies names into a Directory.
func New(names map[string]string) *Directory {
	d := &Directory{names: make(map[string]string, len(names))}
	for id, name := range names {
		d.names[id] = name
	}
	return d
}

// Default returns the embedded NYC Subway directory.
func Default() (*Directory, error) {
	return ParseYAML(bytes.NewReader(defaultStations))
}

// Load reads a directory from path. YAML files (.yml, .yaml), GTFS
// stops.txt (.txt, .csv) and GTFS zip archives (.zip) are accepted. An empty
// path yields the default directory.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return loadZip(path)
	case ".txt", ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open stops file")
		}
		defer f.Close()
		return ParseStopsCSV(f)
	case ".yml", ".yaml":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open station directory")
		}
		defer f.Close()
		return ParseYAML(f)
	default:
		return nil, fmt.Errorf("unsupported station directory format: %s", path)
	}
}

// ParseYAML decodes a `stations:` mapping document.
func ParseYAML(in io.Reader) (*Directory, error) {
	var file directoryFile
	if err := yaml.NewDecoder(in).Decode(&file); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode station directory")
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, errors.Wrap(err, "invalid station directory")
	}
	return &Directory{names: file.Stations}, nil
}

// ParseStopsCSV builds a directory from a GTFS stops.txt. Parent stations
// (location_type 1) are always taken; other rows only when their id carries
// no N/S platform suffix, so platform names never shadow station names.
func ParseStopsCSV(in io.Reader) (*Directory, error) {
	var rows []*stopCSV
	if err := gocsv.UnmarshalCSV(gocsv.LazyCSVReader(bom.NewReader(in)), &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling stops csv")
	}

	names := make(map[string]string, len(rows))
	for i, row := range rows {
		if row.ID == "" {
			return nil, fmt.Errorf("empty stop_id (row %d)", i+1)
		}
		if row.Name == "" {
			continue
		}
		if row.LocationType == "1" || BaseID(row.ID) == row.ID {
			names[row.ID] = row.Name
		}
	}
	if len(names) == 0 {
		return nil, errors.New("stops csv contains no named stations")
	}
	return &Directory{names: names}, nil
}

func loadZip(path string) (*Directory, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open zip")
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "stops.txt" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, "open stops.txt")
		}
		defer rc.Close()
		return ParseStopsCSV(rc)
	}
	return nil, fmt.Errorf("%s: no stops.txt in archive", path)
}

// BaseID strips one trailing N or S direction suffix from a stop id.
func BaseID(stopID string) string {
	if n := len(stopID); n > 0 && (stopID[n-1] == 'N' || stopID[n-1] == 'S') {
		return stopID[:n-1]
	}
	return stopID
}

// Lookup returns the name registered for an exact id.
func (d *Directory) Lookup(id string) (string, bool) {
	name, ok := d.names[id]
	return name, ok
}

// Name resolves the display name for a platform stop id such as "127N".
func (d *Directory) Name(stopID string) string {
	if stopID == "" {
		return UnknownStation
	}
	if name, ok := d.names[BaseID(stopID)]; ok {
		return name
	}
	return "Station " + stopID
}

// Len returns the number of named stations.
func (d *Directory) Len() int {
	return len(d.names)
}

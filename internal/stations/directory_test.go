package stations

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	d := New(map[string]string{
		"127": "Times Sq-42 St",
		"L08": "Bedford Av",
	})

	tests := []struct {
		stopID string
		want   string
	}{
		{"127N", "Times Sq-42 St"},
		{"127S", "Times Sq-42 St"},
		{"127", "Times Sq-42 St"},
		{"L08N", "Bedford Av"},
		{"999N", "Station 999N"},
		{"127E", "Station 127E"},
		{"", UnknownStation},
	}

	for _, tt := range tests {
		t.Run(tt.stopID, func(t *testing.T) {
			if got := d.Name(tt.stopID); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.stopID, got, tt.want)
			}
		})
	}
}

func TestBaseID(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"127N", "127"},
		{"R20S", "R20"},
		{"S31S", "S31"},
		{"A02", "A02"},
		{"N", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := BaseID(tt.input); got != tt.want {
				t.Errorf("BaseID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_Copies(t *testing.T) {
	names := map[string]string{"127": "Times Sq-42 St"}
	d := New(names)
	names["127"] = "changed"

	name, ok := d.Lookup("127")
	assert.True(t, ok)
	assert.Equal(t, "Times Sq-42 St", name)
}

func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Times Sq-42 St", d.Name("127N"))
	assert.Equal(t, "Bedford Av", d.Name("L08S"))
	assert.Greater(t, d.Len(), 100)
}

func TestParseYAML_Invalid(t *testing.T) {
	for _, doc := range []string{
		"",
		"stations: {}\n",
		"stations:\n  \"127\": \"\"\n",
		"stations: [\n",
	} {
		_, err := ParseYAML(strings.NewReader(doc))
		assert.Error(t, err, "ParseYAML(%q)", doc)
	}
}

const stopsTxt = "\xef\xbb\xbfstop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
	"127,Times Sq-42 St,40.75529,-73.987495,1,\n" +
	"127N,Times Sq-42 St (uptown),40.75529,-73.987495,,127\n" +
	"127S,Times Sq-42 St (downtown),40.75529,-73.987495,,127\n" +
	"A02,Inwood-207 St,40.868072,-73.919899,,\n"

func TestParseStopsCSV(t *testing.T) {
	d, err := ParseStopsCSV(strings.NewReader(stopsTxt))
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, "Times Sq-42 St", d.Name("127N"))
	assert.Equal(t, "Inwood-207 St", d.Name("A02S"))

	_, ok := d.Lookup("127N")
	assert.False(t, ok, "platform rows must not be taken")
}

func TestParseStopsCSV_Errors(t *testing.T) {
	_, err := ParseStopsCSV(strings.NewReader("stop_id,stop_name\n,Nameless\n"))
	assert.Error(t, err)

	_, err = ParseStopsCSV(strings.NewReader("stop_id,stop_name\n127N,Platform only\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "stations.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("stations:\n  X01: Somewhere\n"), 0o644))
	d, err := Load(yml)
	require.NoError(t, err)
	assert.Equal(t, "Somewhere", d.Name("X01N"))

	txt := filepath.Join(dir, "stops.txt")
	require.NoError(t, os.WriteFile(txt, []byte(stopsTxt), 0o644))
	d, err = Load(txt)
	require.NoError(t, err)
	assert.Equal(t, "Times Sq-42 St", d.Name("127S"))

	archive := filepath.Join(dir, "google_transit.zip")
	writeZip(t, archive, map[string]string{"agency.txt": "agency_id\nMTA NYCT\n", "stops.txt": stopsTxt})
	d, err = Load(archive)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	empty := filepath.Join(dir, "empty.zip")
	writeZip(t, empty, map[string]string{"agency.txt": "agency_id\n"})
	_, err = Load(empty)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "stations.json"))
	assert.Error(t, err)

	d, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "Times Sq-42 St", d.Name("127N"))
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

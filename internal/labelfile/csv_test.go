package labelfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avlabs/labelsync/internal/model"
)

func key(dir model.Direction, idx int) model.PortKey {
	return model.PortKey{Direction: dir, Index: idx}
}

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"Device,Port,Type,Label",
		"studio-a,1,INPUT,CAM-01",
		",2,INPUT,CAM-02",
		",1,OUTPUT,PGM",
		"studio-b,1,INPUT,VTR-01",
	}, "\n")

	state, err := parseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"studio-a", "studio-b"}, state.Devices())

	a, ok := state.Set("studio-a")
	require.True(t, ok)
	assert.Equal(t, 3, a.Len())
	label, ok := a.Get(key(model.Input, 2))
	require.True(t, ok, "blank Device cell inherits the previous device")
	assert.Equal(t, "CAM-02", label)
	label, _ = a.Get(key(model.Output, 1))
	assert.Equal(t, "PGM", label)

	b, ok := state.Set("studio-b")
	require.True(t, ok)
	assert.Equal(t, 1, b.Len())
}

func TestParseCSVAcceptsShortDirectionTokens(t *testing.T) {
	input := "Device,Port,Type,Label\nstudio-a,1,in,CAM-01\nstudio-a,2,OUT,PGM\n"
	state, err := parseCSV(strings.NewReader(input))
	require.NoError(t, err)

	a, _ := state.Set("studio-a")
	_, ok := a.Get(key(model.Input, 1))
	assert.True(t, ok)
	_, ok = a.Get(key(model.Output, 2))
	assert.True(t, ok)
}

func TestParseCSVKeepsEmptyLabelCell(t *testing.T) {
	// An empty Label cell means "clear this port", not "skip this row".
	input := "Device,Port,Type,Label\nstudio-a,1,INPUT,\n"
	state, err := parseCSV(strings.NewReader(input))
	require.NoError(t, err)

	a, _ := state.Set("studio-a")
	label, ok := a.Get(key(model.Input, 1))
	require.True(t, ok)
	assert.Equal(t, "", label)
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "missing columns",
			input:   "Device,Port,Label\nstudio-a,1,CAM-01\n",
			wantErr: "missing required columns: Type",
		},
		{
			name:    "non-numeric port",
			input:   "Device,Port,Type,Label\nstudio-a,one,INPUT,CAM-01\n",
			wantErr: `line 2: invalid port "one"`,
		},
		{
			name:    "zero port",
			input:   "Device,Port,Type,Label\nstudio-a,0,INPUT,CAM-01\n",
			wantErr: `line 2: invalid port "0"`,
		},
		{
			name:    "unknown direction",
			input:   "Device,Port,Type,Label\nstudio-a,1,SIDEWAYS,CAM-01\n",
			wantErr: `unknown port direction "SIDEWAYS"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	labels := model.NewLabelSet(map[model.PortKey]string{
		key(model.Input, 1):  "CAM-01",
		key(model.Input, 2):  "CAM-02",
		key(model.Output, 1): "PGM",
	})

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, []Export{{Device: "studio-a", Labels: labels}}))

	state, err := parseCSV(&buf)
	require.NoError(t, err)
	got, ok := state.Set("studio-a")
	require.True(t, ok)
	assert.Equal(t, labels.Len(), got.Len())
	for _, k := range labels.Keys() {
		want, _ := labels.Get(k)
		have, present := got.Get(k)
		assert.True(t, present)
		assert.Equal(t, want, have)
	}
}

func TestWriteTemplate(t *testing.T) {
	m, err := model.LookupModel("mx16")
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "template.csv")

	devices := []model.Device{{Name: "studio-a", Host: "10.0.0.5", Model: m}}
	require.NoError(t, WriteTemplate(path, devices))

	state, err := ReadCSV(path)
	require.NoError(t, err)
	set, ok := state.Set("studio-a")
	require.True(t, ok)
	assert.Equal(t, m.Inputs+m.Outputs, set.Len(), "one row per port of the frame")
	label, present := set.Get(key(model.Output, 16))
	assert.True(t, present)
	assert.Equal(t, "", label, "template cells start empty")
}

func TestReadDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "labels.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Device,Port,Type,Label\nstudio-a,1,INPUT,CAM-01\n"), 0o600))
	state, err := Read(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"studio-a"}, state.Devices())

	_, err = Read(filepath.Join(dir, "labels.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported label file extension")
}

package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Event", "Notes"},
		Rows: []map[string]string{
			{"Event": "Gate", "Notes": "north, door"},
			{"Event": "=HYPERLINK(\"x\")", "Notes": "-5 degrees"},
			{"Event": "Lobby"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Event,Notes", lines[0])
	assert.Equal(t, `Gate,"north, door"`, lines[1])
	assert.Equal(t, `"'=HYPERLINK(""x"")",'-5 degrees`, lines[2])
	assert.Equal(t, "Lobby,", lines[3])
}

func TestCSVExporterCRLF(t *testing.T) {
	out, err := NewCSVExporter().WithCRLF().Render(Dataset{Headers: []string{"A"}, Rows: []map[string]string{{"A": "1"}}})
	require.NoError(t, err)
	assert.Equal(t, "A\r\n1\r\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "Week")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC) }

	data := sampleDataset()
	data.Rows = append(data.Rows, map[string]string{"Event": strings.Repeat("very long title ", 40)})
	out, err := exporter.Render(data, "Week of 03-04-2024")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty, err := exporter.Render(Dataset{Headers: []string{"Event"}}, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := NewPDFExporter().columnWidths([]string{"Day", "Event", "Notes"})
	require.Len(t, widths, 3)
	assert.InDelta(t, pageWidth, widths[0]+widths[1]+widths[2], 0.001)
	assert.Greater(t, widths[2], widths[1])
	assert.Greater(t, widths[1], widths[0])
}

package dashboard

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrictionCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrictionCSV(&buf, []FrictionPoint{
		{Topic: "Prior Auth", TimeSlot: "8-10am", Count: 31, AvgDuration: 245, Sentiment: 0.3},
		{Topic: `Cost, "copay"`, TimeSlot: "4-6pm", Count: 4, AvgDuration: 90, Sentiment: 0.875},
	})
	require.NoError(t, err)

	want := "Topic,Time Slot,Count,Avg Duration (s),Sentiment\n" +
		"Prior Auth,8-10am,31,245,0.30\n" +
		"\"Cost, \"\"copay\"\"\",4-6pm,4,90,0.88\n"
	assert.Equal(t, want, buf.String())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, FrictionCSVHeader, rows[0])
	assert.Equal(t, `Cost, "copay"`, rows[2][0])
}

func TestWriteFrictionCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrictionCSV(&buf, nil))
	assert.Equal(t, "Topic,Time Slot,Count,Avg Duration (s),Sentiment\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFrictionCSVSurfacesWriterError(t *testing.T) {
	err := WriteFrictionCSV(failingWriter{}, []FrictionPoint{{Topic: "Refills"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

package logger

import(
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapterFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, zerolog.DebugLevel)

	l.Info("select", "chose EV", map[string]interface{}{"ev": -1.5})

	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "select", entry["component"])
	assert.Equal(t, "chose EV", entry["message"])
	assert.Equal(t, -1.5, entry["ev"])
}

func TestZerologAdapterError(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, zerolog.InfoLevel)

	l.Error("allocate", errors.New("no room"), nil)

	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "no room", entry["error"])
}

func TestZerologAdapterLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, LevelForVerbosity(0))

	l.Debug("meter", "too chatty", map[string]interface{}{"n": 1})
	assert.Empty(t, buf.String())

	l.Warning("meter", "empty weight map", nil)
	assert.Contains(t, buf.String(), "empty weight map")

	assert.Equal(t, zerolog.DebugLevel, LevelForVerbosity(1))
	assert.Equal(t, zerolog.TraceLevel, LevelForVerbosity(3))

	Nop().Info("x", "dropped", nil)
}

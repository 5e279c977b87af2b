package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("что-то"), "неизвестный уровень должен давать INFO")
}

func TestLogger_WritesFileAboveThreshold(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerWithOptions("multiblock", Options{Dir: dir, ConsoleLevel: ERROR + 1, FileLevel: INFO})
	require.NoError(t, err)

	l.Debug("скрытое сообщение")
	l.Info("структура сформирована id=%d", 7)
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "multiblock_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "структура сформирована id=7"))
	assert.False(t, strings.Contains(content, "скрытое сообщение"), "DEBUG ниже порога файла")
	assert.True(t, strings.Contains(content, "component=multiblock"))
}

func TestLoggerManager_ReusesComponentLogger(t *testing.T) {
	lm := newManager(Options{ConsoleLevel: ERROR + 1})

	a, err := lm.GetLogger("world")
	require.NoError(t, err)
	b, err := lm.GetLogger("world")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.ElementsMatch(t, []string{"world"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("world", WARN, WARN))
	assert.Error(t, lm.SetLogLevel("missing", WARN, WARN))
	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestLoggerManager_ComponentLevels(t *testing.T) {
	lm := newManager(Options{ConsoleLevel: INFO, FileLevel: INFO, Components: map[string]LogLevel{"multiblock": TRACE}})

	mb, err := lm.GetLogger("multiblock")
	require.NoError(t, err)
	assert.Equal(t, int32(TRACE), mb.minConsoleLevel.Load())

	w, err := lm.GetLogger("world")
	require.NoError(t, err)
	assert.Equal(t, int32(INFO), w.minConsoleLevel.Load())

	lm.Configure(Options{ConsoleLevel: WARN, FileLevel: ERROR})
	assert.Equal(t, int32(WARN), mb.minConsoleLevel.Load(), "новые настройки применяются к созданным логгерам")
	assert.Equal(t, int32(ERROR), w.minFileLevel.Load())

	require.NoError(t, lm.SetLogLevel("world", DEBUG, DEBUG))
	require.NoError(t, lm.CloseAll())
	w, err = lm.GetLogger("world")
	require.NoError(t, err)
	assert.Equal(t, int32(DEBUG), w.minConsoleLevel.Load(), "порог из SetLogLevel сохраняется")
}

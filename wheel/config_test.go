package wheel

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Validates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate_RejectsMismatchedGeometry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelSlots = []int{256, 64}
	cfg.LevelBits = []int{8}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsSlotsNotPowerOfTwoOfBits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelSlots[0] = 255
	require.Error(t, cfg.Validate())
}

func TestLoadConfig_CoercesStringDuration(t *testing.T) {
	cfg, err := LoadConfig(map[string]any{
		"tickDuration": "2ms",
		"sleepCap":     "50ms",
		"dispatchMode": "inline",
	})
	require.NoError(t, err)
	require.Equal(t, 2*time.Millisecond, cfg.TickDuration)
	require.Equal(t, 50*time.Millisecond, cfg.SleepCap)
	require.Equal(t, DispatchInline, cfg.DispatchMode)
}

func TestLoadConfig_CoercesBareIntegerMilliseconds(t *testing.T) {
	cfg, err := LoadConfig(map[string]any{"tickDuration": 5})
	require.NoError(t, err)
	require.Equal(t, 5*time.Millisecond, cfg.TickDuration)
}

func TestLoadConfigFile_TOML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/wheel.toml"
	require.NoError(t, os.WriteFile(path, []byte(`
tickDuration = "2ms"
levelSlots = [256, 64, 64, 64]
levelBits = [8, 6, 6, 6]
dispatchMode = "inline"
sleepCap = "20ms"
`), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Millisecond, cfg.TickDuration)
	require.Equal(t, DispatchInline, cfg.DispatchMode)
	require.Equal(t, 20*time.Millisecond, cfg.SleepCap)
}

func TestLoadConfigFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/wheel.yaml"
	require.NoError(t, os.WriteFile(path, []byte("tickDuration: 3ms\ndispatchMode: inline\n"), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, 3*time.Millisecond, cfg.TickDuration)
}

func TestLoadConfigFile_RejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/wheel.ini"
	require.NoError(t, os.WriteFile(path, []byte("tickDuration=3ms"), 0o644))

	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

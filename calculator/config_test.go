package calculator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func TestConfigFromIni(t *testing.T) {
	file, err := ini.Load([]byte(`
[fluid]
density = 1000
viscosity = 0.0004
heat_capacity = 4180
mode = table

[hydraulic]
friction = simplified
zeta_tee_divide = 1.5
zeta_tee_combine = 0.5
eta_el = 0.9
eta_hyd = 0.8

[thermal]
default_temp_env = 5
`))
	require.NoError(t, err)

	cfg, err := ConfigFromIni(file)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.Fluid.Density)
	assert.Equal(t, 0.0004, cfg.Fluid.Viscosity)
	assert.Equal(t, FluidTable, cfg.FluidMode)
	assert.Equal(t, Simplified, cfg.Friction)
	assert.Equal(t, 1.5, cfg.ZetaTeeDivide)
	assert.Equal(t, 0.5, cfg.ZetaTeeCombine)
	assert.Equal(t, 0.9, cfg.EtaEl)
	assert.Equal(t, 0.8, cfg.EtaHyd)
	assert.Equal(t, 5.0, cfg.TempEnv)
	assert.NotNil(t, cfg.Valve)

	// 物性表模式下按温度取值
	assert.Greater(t, cfg.Provider().At(20).Density, cfg.Provider().At(90).Density)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := ConfigFromIni(ini.Empty())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Fluid, cfg.Fluid)
	assert.Equal(t, Colebrook, cfg.Friction)
	assert.Equal(t, 2.0, cfg.ZetaTeeDivide)
	assert.Equal(t, 0.75, cfg.ZetaTeeCombine)
	assert.Equal(t, DefaultConfig().Fluid, cfg.Provider().At(70))
}

func TestConfigRejectsBadValues(t *testing.T) {
	for name, text := range map[string]string{
		"friction":   "[hydraulic]\nfriction = moody\n",
		"efficiency": "[hydraulic]\neta_el = 1.5\n",
		"zeta":       "[hydraulic]\nzeta_tee_divide = -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			file, err := ini.Load([]byte(text))
			require.NoError(t, err)
			_, err = ConfigFromIni(file)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Friction, cfg.Friction)

	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[fluid]\ndensity = 990\n"), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 990.0, cfg.Fluid.Density)
}

package calculator

import (
	"fmt"

	"dhsim/fluid"
	"dhsim/model"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

const (
	FluidConstant = "constant" // 常物性
	FluidTable    = "table"    // 按供水温度查水物性表
)

// 求解器参数，对应配置文件中的 [fluid] [hydraulic] [thermal]
type Config struct {
	Fluid     fluid.Properties
	FluidMode string

	Friction       FrictionModel
	ZetaTeeDivide  float64 // 分流三通
	ZetaTeeCombine float64 // 合流三通
	Gravity        float64
	EtaEl          float64 // 电机效率
	EtaHyd         float64 // 水力效率

	TempEnv float64 // 没有环境温度序列时使用

	Valve ValveModel
}

func DefaultConfig() Config {
	return Config{
		Fluid:          fluid.Properties(fluid.ReferenceWater()),
		FluidMode:      FluidConstant,
		Friction:       Colebrook,
		ZetaTeeDivide:  2,
		ZetaTeeCombine: 0.75,
		Gravity:        model.Gravity,
		EtaEl:          1,
		EtaHyd:         1,
		TempEnv:        10,
		Valve:          NoValveLoss{},
	}
}

// 读取配置文件，文件不存在时使用默认值
func LoadConfig(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		log.WithField("path", path).Warn("配置文件读取错误，使用默认参数: ", err)
		file = ini.Empty()
	}
	return ConfigFromIni(file)
}

func ConfigFromIni(file *ini.File) (Config, error) {
	cfg, err := loadCfg(file)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	log.WithFields(log.Fields{
		"density":       cfg.Fluid.Density,
		"viscosity":     cfg.Fluid.Viscosity,
		"heat_capacity": cfg.Fluid.HeatCapacity,
		"fluid_mode":    cfg.FluidMode,
		"friction":      cfg.Friction,
		"zeta_divide":   cfg.ZetaTeeDivide,
		"zeta_combine":  cfg.ZetaTeeCombine,
		"eta_el":        cfg.EtaEl,
		"eta_hyd":       cfg.EtaHyd,
		"temp_env":      cfg.TempEnv,
	}).Info("设置求解参数")
	return cfg, nil
}

func loadCfg(file *ini.File) (Config, error) {
	d := DefaultConfig()
	friction, err := ParseFrictionModel(file.Section("hydraulic").Key("friction").MustString(string(d.Friction)))
	if err != nil {
		return Config{}, err
	}
	return Config{
		Fluid: fluid.Properties{
			Density:      file.Section("fluid").Key("density").MustFloat64(d.Fluid.Density),
			Viscosity:    file.Section("fluid").Key("viscosity").MustFloat64(d.Fluid.Viscosity),
			HeatCapacity: file.Section("fluid").Key("heat_capacity").MustFloat64(d.Fluid.HeatCapacity),
		},
		FluidMode:      file.Section("fluid").Key("mode").In(d.FluidMode, []string{FluidConstant, FluidTable}),
		Friction:       friction,
		ZetaTeeDivide:  file.Section("hydraulic").Key("zeta_tee_divide").MustFloat64(d.ZetaTeeDivide),
		ZetaTeeCombine: file.Section("hydraulic").Key("zeta_tee_combine").MustFloat64(d.ZetaTeeCombine),
		Gravity:        file.Section("hydraulic").Key("gravity").MustFloat64(d.Gravity),
		EtaEl:          file.Section("hydraulic").Key("eta_el").MustFloat64(d.EtaEl),
		EtaHyd:         file.Section("hydraulic").Key("eta_hyd").MustFloat64(d.EtaHyd),
		TempEnv:        file.Section("thermal").Key("default_temp_env").MustFloat64(d.TempEnv),
		Valve:          d.Valve,
	}, nil
}

func (c Config) Validate() error {
	if _, err := ParseFrictionModel(string(c.Friction)); err != nil {
		return err
	}
	if c.FluidMode != FluidConstant && c.FluidMode != FluidTable {
		return fmt.Errorf("unknown fluid mode %q", c.FluidMode)
	}
	if c.EtaEl <= 0 || c.EtaEl > 1 || c.EtaHyd <= 0 || c.EtaHyd > 1 {
		return fmt.Errorf("pump efficiencies must be in (0, 1], got eta_el=%g eta_hyd=%g", c.EtaEl, c.EtaHyd)
	}
	if c.ZetaTeeDivide < 0 || c.ZetaTeeCombine < 0 {
		return fmt.Errorf("tee loss coefficients must not be negative")
	}
	if c.Gravity <= 0 {
		return fmt.Errorf("gravity must be positive, got %g", c.Gravity)
	}
	return nil
}

// 物性来源
func (c Config) Provider() fluid.Provider {
	if c.FluidMode == FluidTable {
		return fluid.Water()
	}
	return fluid.Constant(c.Fluid)
}

func (c Config) valve() ValveModel {
	if c.Valve == nil {
		return NoValveLoss{}
	}
	return c.Valve
}

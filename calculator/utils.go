package calculator

import (
	"fmt"
	"math"
)

// 沿程阻力系数（Darcy）的近似公式
type FrictionModel string

const (
	// Colebrook-White 方程的显式近似，考虑管壁粗糙度，湍流区误差约 1%，默认选项
	Colebrook FrictionModel = "colebrook"

	// 幂函数近似 0.07·Re^-0.13·D^-0.14，不需要粗糙度，只适合粗略估算
	Simplified FrictionModel = "simplified"
)

func ParseFrictionModel(s string) (FrictionModel, error) {
	switch FrictionModel(s) {
	case Colebrook, Simplified:
		return FrictionModel(s), nil
	}
	return "", fmt.Errorf("unknown friction model %q, want %q or %q", s, Colebrook, Simplified)
}

// 流速 v = 4ṁ / (ρπD²)，与流向无关
func Velocity(massFlow, density, diameter float64) float64 {
	return 4 * math.Abs(massFlow) / (density * math.Pi * diameter * diameter)
}

// 雷诺数 Re = D·v·ρ/μ
func Reynolds(velocity, diameter, density, viscosity float64) float64 {
	return diameter * velocity * density / viscosity
}

// 沿程阻力系数
func FrictionFactor(m FrictionModel, re, diameter, roughness float64) (float64, error) {
	switch m {
	case Colebrook:
		l := math.Log(roughness/(3.7*diameter) + 5.74/math.Pow(re, 0.9))
		return 1.325 / (l * l), nil
	case Simplified:
		return 0.07 * math.Pow(re, -0.13) * math.Pow(diameter, -0.14), nil
	}
	return 0, fmt.Errorf("unknown friction model %q", m)
}

// 沿程压损 Δp = λ·8L/(ρπ²D⁵)·ṁ²
func DistributedLoss(friction, length, diameter, density, massFlow float64) float64 {
	return friction * 8 * length / (density * math.Pi * math.Pi * math.Pow(diameter, 5)) * massFlow * massFlow
}

// 局部压损 Δp = ζ·v²/2·ρ
func LocalLoss(zeta, velocity, density float64) float64 {
	return zeta * velocity * velocity / 2 * density
}

// 静压差 Δp = -ρ·g·Δh，Δh 沿流动方向
func HydrostaticLoss(density, gravity, heightDifference float64) float64 {
	return -density * gravity * heightDifference
}

// 水泵电功率 P = Δp/ρ·ṁ/(η_el·η_hyd)
func PumpPower(head, density, massFlow, etaEl, etaHyd float64) float64 {
	return head / density * massFlow / (etaEl * etaHyd)
}

// 稳态管道出口温度，指数衰减趋近环境温度
func OutletTemperature(tempIn, tempEnv, transmittance, diameter, length, heatCapacity, massFlow float64) float64 {
	return tempEnv + (tempIn-tempEnv)*math.Exp(-transmittance*math.Pi*diameter*length/(heatCapacity*math.Abs(massFlow)))
}

// 理想混合温度，按质量流量加权
func MixTemperature(massFlows, temps []float64) float64 {
	var m, mt float64
	for i, f := range massFlows {
		m += f
		mt += f * temps[i]
	}
	return mt / m
}

// 热损失 Q = ṁ·c·(T_in - T_out)
func HeatLoss(massFlow, heatCapacity, tempIn, tempOut float64) float64 {
	return math.Abs(massFlow) * heatCapacity * (tempIn - tempOut)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

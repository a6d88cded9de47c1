package model

// 物理常量
const (
	AbsoluteZero = -273.15 // ℃
	Gravity      = 9.81    // m/s²
)

// 参考水物性，来自树状管网算例
const (
	WaterDensity      = 971.78  // kg/m³
	WaterViscosity    = 0.35e-3 // Pa·s
	WaterHeatCapacity = 4190.0  // J/(kg·K)
)

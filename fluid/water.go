package fluid

// 饱和液态水物性，0 ℃ 到 150 ℃，步长 10 ℃
var (
	waterTemp = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120, 130, 140, 150}

	waterDensity = []float64{
		999.8, 999.7, 998.2, 995.7, 992.2, 988.0, 983.2, 977.8,
		971.8, 965.3, 958.4, 950.6, 943.4, 934.8, 926.1, 917.0,
	}

	// mPa·s
	waterViscosity = []float64{
		1.792, 1.306, 1.002, 0.798, 0.653, 0.547, 0.467, 0.404,
		0.355, 0.315, 0.282, 0.255, 0.232, 0.213, 0.197, 0.183,
	}

	waterHeatCapacity = []float64{
		4217, 4192, 4182, 4178, 4179, 4181, 4185, 4190,
		4197, 4205, 4216, 4229, 4245, 4263, 4285, 4310,
	}
)

// 每次调用返回独立的副本
func Water() *Table {
	viscosity := make([]float64, len(waterViscosity))
	for i, v := range waterViscosity {
		viscosity[i] = v * 1e-3
	}
	return &Table{
		Temp:         append([]float64(nil), waterTemp...),
		Density:      append([]float64(nil), waterDensity...),
		Viscosity:    viscosity,
		HeatCapacity: append([]float64(nil), waterHeatCapacity...),
	}
}

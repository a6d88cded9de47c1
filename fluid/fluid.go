package fluid

import (
	"fmt"
	"sort"

	"dhsim/model"
)

// 热媒物性
type Properties struct {
	Density      float64 `json:"density"`       // kg/m³
	Viscosity    float64 `json:"viscosity"`     // 动力粘度 Pa·s
	HeatCapacity float64 `json:"heat_capacity"` // J/(kg·K)
}

// 给定温度下的物性
type Provider interface {
	At(temp float64) Properties
}

// 常物性
type Constant Properties

func (c Constant) At(float64) Properties {
	return Properties(c)
}

// 树状管网算例使用的参考水物性
func ReferenceWater() Constant {
	return Constant{
		Density:      model.WaterDensity,
		Viscosity:    model.WaterViscosity,
		HeatCapacity: model.WaterHeatCapacity,
	}
}

// 物性表，温度升序，区间内线性插值，区间外取端点值
type Table struct {
	Temp         []float64
	Density      []float64
	Viscosity    []float64
	HeatCapacity []float64
}

func NewTable(temp, density, viscosity, heatCapacity []float64) (*Table, error) {
	n := len(temp)
	if n == 0 || len(density) != n || len(viscosity) != n || len(heatCapacity) != n {
		return nil, fmt.Errorf("fluid table: column lengths differ or table is empty")
	}
	if !sort.Float64sAreSorted(temp) {
		return nil, fmt.Errorf("fluid table: temperatures must be ascending")
	}
	return &Table{Temp: temp, Density: density, Viscosity: viscosity, HeatCapacity: heatCapacity}, nil
}

func (t *Table) At(temp float64) Properties {
	n := len(t.Temp)
	if temp <= t.Temp[0] {
		return t.row(0)
	}
	if temp >= t.Temp[n-1] {
		return t.row(n - 1)
	}
	// 第一个大于 temp 的位置
	i := sort.SearchFloat64s(t.Temp, temp)
	if t.Temp[i] == temp {
		return t.row(i)
	}
	w := (temp - t.Temp[i-1]) / (t.Temp[i] - t.Temp[i-1])
	lerp := func(v []float64) float64 { return v[i-1] + w*(v[i]-v[i-1]) }
	return Properties{
		Density:      lerp(t.Density),
		Viscosity:    lerp(t.Viscosity),
		HeatCapacity: lerp(t.HeatCapacity),
	}
}

func (t *Table) row(i int) Properties {
	return Properties{Density: t.Density[i], Viscosity: t.Viscosity[i], HeatCapacity: t.HeatCapacity[i]}
}

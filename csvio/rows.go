package csvio

import (
	"errors"
	"math"
	"reflect"

	"dhsim/model"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

type nodeRow struct {
	ID        string   `validate:"required"`
	Lat       *float64 `validate:"omitempty,latitude"`
	Lon       *float64 `validate:"omitempty,longitude"`
	Height    *float64
	TempInlet float64 `validate:"gte=-273.15"`
	MassFlow  float64 `validate:"gte=0"`
	TempDrop  float64 `validate:"gte=0"`
}

type pipeRow struct {
	ID               string  `validate:"required"`
	From             string  `validate:"required"`
	To               string  `validate:"required,nefield=From"`
	Length           float64 `validate:"gt=0"`
	Diameter         float64 `validate:"gt=0"`
	Roughness        float64 `validate:"gte=0"`
	HeatTransfer     float64 `validate:"gte=0"`
	HeightDifference *float64
	Capacity         float64 `validate:"gte=0"`
}

// 结构体校验失败转换为领域错误：标识字段为拓扑错误，数值字段为物理输入错误
func rowError(id string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	switch e.Field() {
	case "ID", "From", "To":
		if id == "" {
			id = "<empty>"
		}
		return model.NewTopologyError(id, "%s failed %s %s", e.Field(), e.Tag(), e.Param())
	}
	return model.NewPhysicalInputError(id, e.Field(), numeric(e.Value()), "failed "+e.Tag()+" "+e.Param())
}

func numeric(v interface{}) float64 {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return math.NaN()
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Float64 {
		return rv.Float()
	}
	return math.NaN()
}

package csvio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"dhsim/model"

	log "github.com/sirupsen/logrus"
)

const indexColumn = "snapshot"

// 结果文件：文件名 -> 按实体取值
type series struct {
	name   string
	ids    func(s *model.FlowState) []string
	value  func(s *model.FlowState, id string) float64
	global bool
}

func pipeIDs(s *model.FlowState) []string     { return sortedKeys(s.Pipes) }
func nodeIDs(s *model.FlowState) []string     { return sortedKeys(s.Nodes) }
func producerIDs(s *model.FlowState) []string { return sortedKeys(s.Producers) }
func consumerIDs(s *model.FlowState) []string { return sortedKeys(s.Consumers) }

func pipeSeries(name string, f func(p model.PipeState) float64) series {
	return series{
		name:  name,
		ids:   pipeIDs,
		value: func(s *model.FlowState, id string) float64 { return f(s.Pipes[id]) },
	}
}

var resultSeries = []series{
	{
		name:   "global-heat_losses",
		value:  func(s *model.FlowState, _ string) float64 { return s.HeatLoss },
		global: true,
	},
	{
		name:   "global-pressure_losses",
		value:  func(s *model.FlowState, _ string) float64 { return s.PressureLoss },
		global: true,
	},
	{
		name:  "nodes-temp_inlet",
		ids:   nodeIDs,
		value: func(s *model.FlowState, id string) float64 { return s.Nodes[id].TempInlet },
	},
	{
		name:  "nodes-temp_return",
		ids:   nodeIDs,
		value: func(s *model.FlowState, id string) float64 { return s.Nodes[id].TempReturn },
	},
	pipeSeries("pipes-dist_pressure_losses", func(p model.PipeState) float64 { return p.DistLoss }),
	pipeSeries("pipes-loc_pressure_losses", func(p model.PipeState) float64 { return p.LocLoss }),
	pipeSeries("pipes-hydrostatic_pressure_losses", func(p model.PipeState) float64 { return p.HydroLoss }),
	pipeSeries("pipes-heat_losses", func(p model.PipeState) float64 { return p.HeatLoss }),
	pipeSeries("pipes-mass_flow", func(p model.PipeState) float64 { return p.MassFlow }),
	pipeSeries("pipes-velocity", func(p model.PipeState) float64 { return p.Velocity }),
	pipeSeries("pipes-temp_out", func(p model.PipeState) float64 { return p.TempOut }),
	{
		name:  "producers-pump_power",
		ids:   producerIDs,
		value: func(s *model.FlowState, id string) float64 { return s.Producers[id].PumpPower },
	},
	{
		name:  "producers-pressure_head",
		ids:   producerIDs,
		value: func(s *model.FlowState, id string) float64 { return s.Producers[id].PressureHead },
	},
	{
		name:  "consumers-heat_transfer",
		ids:   consumerIDs,
		value: func(s *model.FlowState, id string) float64 { return s.Consumers[id].HeatTransfer },
	},
}

// WriteResults writes one csv per result attribute: rows are time steps,
// columns are entity ids. Failed steps are written as empty rows.
func WriteResults(dir string, res *model.Results) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var sample *model.FlowState
	for _, s := range res.Steps {
		if s != nil {
			sample = s
			break
		}
	}

	for _, ser := range resultSeries {
		header := []string{indexColumn}
		var ids []string
		switch {
		case ser.global:
			header = append(header, strings.TrimPrefix(ser.name, "global-"))
		case sample != nil:
			ids = ser.ids(sample)
			header = append(header, ids...)
		}

		rows := make([][]string, 0, len(res.Steps))
		for step, s := range res.Steps {
			row := make([]string, len(header))
			row[0] = strconv.Itoa(step)
			if s != nil {
				if ser.global {
					row[1] = formatFloat(ser.value(s, ""))
				}
				for c, id := range ids {
					row[c+1] = formatFloat(ser.value(s, id))
				}
			}
			rows = append(rows, row)
		}
		if err := writeTable(filepath.Join(dir, ser.name+".csv"), header, rows); err != nil {
			return fmt.Errorf("write %s: %w", ser.name, err)
		}
	}

	log.WithFields(log.Fields{
		"dir":    dir,
		"run":    res.RunID,
		"steps":  len(res.Steps),
		"failed": len(res.Failures),
	}).Info("写出计算结果")
	return nil
}

// ExportNetwork writes the scenario back in the layout ImportFolder reads.
func ExportNetwork(dir string, sc *model.Scenario) error {
	if err := os.MkdirAll(filepath.Join(dir, sequenceDir), 0o755); err != nil {
		return err
	}

	nodeHeader := map[model.Role][]string{
		model.Producer: {"id", "lat", "lon", "m_over_NHN", "temp_inlet"},
		model.Consumer: {"id", "lat", "lon", "m_over_NHN", "mass_flow", "temperature_drop"},
		model.Fork:     {"id", "lat", "lon", "m_over_NHN"},
	}
	for _, role := range []model.Role{model.Producer, model.Consumer, model.Fork} {
		var rows [][]string
		for _, n := range sc.NodesOf(role) {
			row := []string{strings.TrimPrefix(n.ID, string(role)+"-"), "", "", optional(n.Height)}
			if n.Geometry != nil {
				row[1], row[2] = formatFloat(n.Geometry.Lat()), formatFloat(n.Geometry.Lon())
			}
			switch role {
			case model.Producer:
				row = append(row, formatFloat(n.TempInlet))
			case model.Consumer:
				row = append(row, formatFloat(n.MassFlow), formatFloat(n.TempDrop))
			}
			rows = append(rows, row)
		}
		if err := writeTable(filepath.Join(dir, string(role)+".csv"), nodeHeader[role], rows); err != nil {
			return err
		}
	}

	pipeHeader := []string{"id", "from_node", "to_node", "length_m", "diameter_mm", "roughness_mm",
		"heat_transfer_coefficient_W/mK", "height_difference_m", "capacity", "active"}
	rows := make([][]string, 0, len(sc.Pipes))
	for _, p := range sc.Pipes {
		rows = append(rows, []string{
			p.ID, p.From, p.To,
			formatFloat(p.Length),
			formatFloat(p.Diameter * 1000),
			formatFloat(p.Roughness * 1000),
			formatFloat(p.HeatTransfer),
			optional(p.HeightDifference),
			formatFloat(p.Capacity),
			strconv.FormatBool(!p.Inactive),
		})
	}
	if err := writeTable(filepath.Join(dir, "pipes.csv"), pipeHeader, rows); err != nil {
		return err
	}

	for name, seq := range sc.Sequences {
		if err := writeSequence(filepath.Join(dir, sequenceDir, name+".csv"), name, seq); err != nil {
			return err
		}
	}
	return nil
}

func writeSequence(path, name string, seq *model.Sequence) error {
	list, _, _ := strings.Cut(name, "-")
	keys := seq.Keys()
	header := []string{indexColumn}
	for _, k := range keys {
		header = append(header, strings.TrimPrefix(k, list+"-"))
	}
	rows := make([][]string, seq.Len())
	for r := range rows {
		row := []string{strconv.Itoa(r)}
		for _, k := range keys {
			v := math.NaN()
			if r < len(seq.Values[k]) {
				v = seq.Values[k][r]
			}
			row = append(row, formatFloat(v))
		}
		rows[r] = row
	}
	return writeTable(path, header, rows)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package csvio reads scenarios from and writes results to folders of csv
// files, one file per component list or per result attribute.
package csvio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dhsim/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	log "github.com/sirupsen/logrus"
)

const sequenceDir = "sequences"

// 默认绝对粗糙度 0.01 mm
const defaultRoughnessMM = 0.01

// ImportFolder reads consumers.csv, producers.csv, forks.csv and pipes.csv
// (or edges.csv) plus every csv below sequences/. Node rows carry bare ids
// which become <list>-<id>; pipes reference nodes by the full id.
func ImportFolder(dir string) (*model.Scenario, error) {
	sc := &model.Scenario{Sequences: make(map[string]*model.Sequence)}

	for _, role := range []model.Role{model.Producer, model.Consumer, model.Fork} {
		path := filepath.Join(dir, string(role)+".csv")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if role == model.Fork {
				continue
			}
			return nil, fmt.Errorf("missing %s", path)
		}
		nodes, err := readNodes(path, role)
		if err != nil {
			return nil, err
		}
		sc.Nodes = append(sc.Nodes, nodes...)
	}

	pipePath := filepath.Join(dir, "pipes.csv")
	if _, err := os.Stat(pipePath); errors.Is(err, os.ErrNotExist) {
		pipePath = filepath.Join(dir, "edges.csv")
	}
	pipes, err := readPipes(pipePath, sc.Nodes)
	if err != nil {
		return nil, err
	}
	sc.Pipes = pipes

	if err := readSequences(filepath.Join(dir, sequenceDir), sc); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"dir":       dir,
		"nodes":     len(sc.Nodes),
		"pipes":     len(sc.Pipes),
		"sequences": len(sc.Sequences),
		"steps":     sc.Steps(),
	}).Info("导入管网数据")
	return sc, nil
}

func readNodes(path string, role model.Role) ([]model.Node, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	nodes := make([]model.Node, 0, len(t.rows))
	for i := range t.rows {
		row := nodeRow{ID: t.str(i, "id")}
		if row.Lat, err = t.float(i, "lat"); err != nil {
			return nil, err
		}
		if row.Lon, err = t.float(i, "lon"); err != nil {
			return nil, err
		}
		if row.Height, err = t.float(i, "m_over_NHN", "height"); err != nil {
			return nil, err
		}
		if row.TempInlet, err = t.floatOr(i, 0, "temp_inlet"); err != nil {
			return nil, err
		}
		if row.MassFlow, err = t.floatOr(i, 0, "mass_flow"); err != nil {
			return nil, err
		}
		if row.TempDrop, err = t.floatOr(i, 0, "temperature_drop", "temp_drop"); err != nil {
			return nil, err
		}
		id := model.NodeID(role, row.ID)
		if err := validate.Struct(row); err != nil {
			return nil, rowError(id, err)
		}

		node := model.Node{
			ID:        id,
			Role:      role,
			Height:    row.Height,
			TempInlet: row.TempInlet,
			MassFlow:  row.MassFlow,
			TempDrop:  row.TempDrop,
		}
		if row.Lat != nil && row.Lon != nil {
			node.Geometry = &orb.Point{*row.Lon, *row.Lat}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func readPipes(path string, nodes []model.Node) ([]model.Pipe, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	geometry := make(map[string]*orb.Point, len(nodes))
	for _, n := range nodes {
		geometry[n.ID] = n.Geometry
	}

	pipes := make([]model.Pipe, 0, len(t.rows))
	for i := range t.rows {
		row := pipeRow{
			ID:   t.str(i, "id"),
			From: t.str(i, "from_node"),
			To:   t.str(i, "to_node"),
		}
		length, err := t.float(i, "length_m", "length", "lenght_m")
		if err != nil {
			return nil, err
		}
		if length != nil {
			row.Length = *length
		} else if a, b := geometry[row.From], geometry[row.To]; a != nil && b != nil {
			// 没有管长时按两端坐标的大圆距离计算
			row.Length = geo.Distance(*a, *b)
		}
		if row.Diameter, err = t.floatOr(i, 0, "diameter_mm"); err != nil {
			return nil, err
		}
		if row.Roughness, err = t.floatOr(i, defaultRoughnessMM, "roughness_mm"); err != nil {
			return nil, err
		}
		if row.HeatTransfer, err = t.floatOr(i, 0, "heat_transfer_coefficient_W/mK", "heat_transfer_coefficient"); err != nil {
			return nil, err
		}
		if row.HeightDifference, err = t.float(i, "height_difference_m", "height_difference"); err != nil {
			return nil, err
		}
		if row.Capacity, err = t.floatOr(i, 0, "capacity"); err != nil {
			return nil, err
		}
		active, err := t.boolOr(i, true, "active")
		if err != nil {
			return nil, err
		}
		if err := validate.Struct(row); err != nil {
			return nil, rowError(row.ID, err)
		}

		pipes = append(pipes, model.Pipe{
			ID:               row.ID,
			From:             row.From,
			To:               row.To,
			Length:           row.Length,
			Diameter:         row.Diameter / 1000,
			Roughness:        row.Roughness / 1000,
			HeatTransfer:     row.HeatTransfer,
			HeightDifference: row.HeightDifference,
			Capacity:         row.Capacity,
			Inactive:         !active,
		})
	}
	return pipes, nil
}

// sequences/<list>-<attr>.csv，第一列为时间步，其余列以实体 id 为表头
func readSequences(dir string, sc *model.Scenario) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".csv")
		list, _, ok := strings.Cut(name, "-")
		if !ok {
			return fmt.Errorf("sequence file %s: want <list>-<attribute>.csv", e.Name())
		}
		t, err := readTable(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}

		seq := model.NewSequence()
		for c, col := range t.columns() {
			if c == 0 {
				continue
			}
			key := col
			switch model.Role(list) {
			case model.Producer, model.Consumer, model.Fork:
				key = model.NodeID(model.Role(list), col)
			}
			values := make([]float64, len(t.rows))
			for r := range t.rows {
				v, err := t.float(r, col)
				if err != nil {
					return err
				}
				if v == nil {
					return model.NewPhysicalInputError(key, name, float64(r), "empty cell in sequence")
				}
				values[r] = *v
			}
			seq.Values[key] = values
		}
		sc.Sequences[name] = seq
	}
	return nil
}

package main

import (
	"fmt"
)

// ParamSpec is one tuned physarum parameter, addressed by its registry key.
type ParamSpec struct {
	Key string
	Min float64 // lower bound of the search
	Max float64 // upper bound of the search
}

// ParamVector holds the ordered set of tuned parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard search space: the steering shape of
// every species plus the cross-species attraction terms. Self-attraction
// stays at its configured value.
func NewParamVector() *ParamVector {
	pv := &ParamVector{}
	for i := range 3 {
		pv.Specs = append(pv.Specs,
			ParamSpec{Key: fmt.Sprintf("move_speed.%d", i), Min: 0.5, Max: 6},
			ParamSpec{Key: fmt.Sprintf("sensor_distance.%d", i), Min: 2, Max: 40},
			ParamSpec{Key: fmt.Sprintf("rotation_angle.%d", i), Min: 0.1, Max: 1.2},
		)
	}
	for i := range 3 {
		for j := range 3 {
			if i == j {
				continue
			}
			pv.Specs = append(pv.Specs, ParamSpec{Key: fmt.Sprintf("attract.%d.%d", i, j), Min: -1, Max: 1})
		}
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to the [0,1] search range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp keeps every value within its bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = max(spec.Min, min(spec.Max, v[i]))
	}
	return clamped
}

type paramReader interface {
	Parameter(name string) (any, error)
}

type paramWriter interface {
	SetParameter(name string, value any) error
}

// Current reads the tuned parameters from a simulation.
func (pv *ParamVector) Current(s paramReader) ([]float64, error) {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v, err := s.Parameter(spec.Key)
		if err != nil {
			return nil, err
		}
		f, ok := v.(float32)
		if !ok {
			return nil, fmt.Errorf("%s: not a float parameter (%T)", spec.Key, v)
		}
		out[i] = float64(f)
	}
	return out, nil
}

// Apply clamps values and assigns them to a simulation.
func (pv *ParamVector) Apply(s paramWriter, values []float64) error {
	for i, v := range pv.Clamp(values) {
		if err := s.SetParameter(pv.Specs[i].Key, v); err != nil {
			return err
		}
	}
	return nil
}

// Describe formats values as key=value pairs.
func (pv *ParamVector) Describe(values []float64) string {
	out := ""
	for i, spec := range pv.Specs {
		if i > 0 {
			out += ";"
		}
		out += fmt.Sprintf("%s=%.4f", spec.Key, values[i])
	}
	return out
}

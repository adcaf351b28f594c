package sim

import (
	"fmt"
	"strconv"
)

// Kind is the value type of a parameter.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindChoice // one of Options
	KindText
)

// Param describes one tunable for panels and validation.
type Param struct {
	Key     string
	Label   string
	Group   string
	Kind    Kind
	Min     float64
	Max     float64
	Step    float64
	Options []string

	get func() any
	set func(any) error
}

// Value returns the current value.
func (p Param) Value() any {
	return p.get()
}

// Registry binds parameter names to fields of a configuration struct.
// Setters clamp numeric values to the declared range and run an optional
// change hook.
type Registry struct {
	order  []string
	params map[string]*Param
	group  string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{params: make(map[string]*Param)}
}

// Group sets the group for parameters registered afterwards.
func (r *Registry) Group(name string) *Registry {
	r.group = name
	return r
}

func (r *Registry) add(p *Param) {
	p.Group = r.group
	if _, dup := r.params[p.Key]; !dup {
		r.order = append(r.order, p.Key)
	}
	r.params[p.Key] = p
}

func call(hook func()) {
	if hook != nil {
		hook()
	}
}

// Float binds a float32 field clamped to [lo, hi].
func (r *Registry) Float(key, label string, lo, hi, step float64, field *float32, onChange func()) {
	r.add(&Param{
		Key: key, Label: label, Kind: KindFloat, Min: lo, Max: hi, Step: step,
		get: func() any { return *field },
		set: func(v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			*field = float32(max(lo, min(hi, f)))
			call(onChange)
			return nil
		},
	})
}

// Int binds an int field clamped to [lo, hi].
func (r *Registry) Int(key, label string, lo, hi int, field *int, onChange func()) {
	r.add(&Param{
		Key: key, Label: label, Kind: KindInt, Min: float64(lo), Max: float64(hi), Step: 1,
		get: func() any { return *field },
		set: func(v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			*field = max(lo, min(hi, int(f)))
			call(onChange)
			return nil
		},
	})
}

// Bool binds a bool field. Numbers are true when non-zero.
func (r *Registry) Bool(key, label string, field *bool, onChange func()) {
	r.add(&Param{
		Key: key, Label: label, Kind: KindBool, Min: 0, Max: 1, Step: 1,
		get: func() any { return *field },
		set: func(v any) error {
			b, err := toBool(v)
			if err != nil {
				return err
			}
			*field = b
			call(onChange)
			return nil
		},
	})
}

// Choice binds a string field restricted to options. An integer value
// selects an option by index.
func (r *Registry) Choice(key, label string, options []string, field *string, onChange func()) {
	r.add(&Param{
		Key: key, Label: label, Kind: KindChoice, Min: 0, Max: float64(len(options) - 1), Step: 1,
		Options: options,
		get:     func() any { return *field },
		set: func(v any) error {
			s, err := pickOption(key, options, v)
			if err != nil {
				return err
			}
			*field = s
			call(onChange)
			return nil
		},
	})
}

// Enum binds an int field restricted to values.
func (r *Registry) Enum(key, label string, values []int, field *int, onChange func()) {
	options := make([]string, len(values))
	for i, v := range values {
		options[i] = strconv.Itoa(v)
	}
	r.add(&Param{
		Key: key, Label: label, Kind: KindChoice, Min: 0, Max: float64(len(values) - 1), Step: 1,
		Options: options,
		get:     func() any { return *field },
		set: func(v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			for _, allowed := range values {
				if float64(allowed) == f {
					*field = allowed
					call(onChange)
					return nil
				}
			}
			return fmt.Errorf("%w: %s must be one of %v, got %v", ErrParameterType, key, values, v)
		},
	})
}

// Text binds a free-form string field checked by validate.
func (r *Registry) Text(key, label string, field *string, validate func(string) error, onChange func()) {
	r.add(&Param{
		Key: key, Label: label, Kind: KindText,
		get: func() any { return *field },
		set: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s wants a string, got %T", ErrParameterType, key, v)
			}
			if validate != nil {
				if err := validate(s); err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
			}
			*field = s
			call(onChange)
			return nil
		},
	})
}

// Set assigns a parameter.
func (r *Registry) Set(key string, v any) error {
	p, ok := r.params[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	if err := p.set(v); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Get reads a parameter.
func (r *Registry) Get(key string) (any, error) {
	p, ok := r.params[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	return p.get(), nil
}

// Params returns the descriptors in registration order.
func (r *Registry) Params() []Param {
	out := make([]Param, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, *r.params[k])
	}
	return out
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrParameterType, x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrParameterType, v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a bool", ErrParameterType, x)
		}
		return b, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

func pickOption(key string, options []string, v any) (string, error) {
	if s, ok := v.(string); ok {
		for _, o := range options {
			if o == s {
				return o, nil
			}
		}
		return "", fmt.Errorf("%w: %s has no option %q", ErrParameterType, key, s)
	}
	f, err := toFloat(v)
	if err != nil {
		return "", err
	}
	i := int(f)
	if i < 0 || i >= len(options) {
		return "", fmt.Errorf("%w: %s option index %d out of range", ErrParameterType, key, i)
	}
	return options[i], nil
}

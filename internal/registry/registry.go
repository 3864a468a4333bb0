// Package registry holds the immutable mapping from (category, operation) to
// an operation descriptor: its parameter schema and executable entry point.
// The registry is built once at startup; lookups are read-only and safe for
// concurrent use.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"multitool/internal/tools"
	"multitool/internal/upload"
)

// ErrUnknownOperation is returned on a lookup miss.
var ErrUnknownOperation = errors.New("unknown operation")

// ParamType enumerates the form value types a schema can declare.
type ParamType int

const (
	Int ParamType = iota
	Float
	Bool
	String
	IntList // JSON array of integers
)

// Param declares one parameter of an operation: its type, bounds and default.
// Values are coerced and bounds-checked before any tool executes.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
	Default  any
	Min      float64
	Max      float64
	Bounded  bool
	Enum     []string
}

// ExecFunc runs a tool against validated scratch inputs and coerced params.
type ExecFunc func(ctx context.Context, inputs []string, p Params) (*tools.Result, error)

// Descriptor describes one registered operation.
type Descriptor struct {
	Category  upload.Category
	Operation string
	Params    []Param
	MinFiles  int
	MaxFiles  int // 0 means same as MinFiles
	// Accepts lists the upload categories valid for this operation; empty
	// means only the operation's own category (convert-to-pdf also takes
	// images, for example).
	Accepts []upload.Category
	Execute ExecFunc
}

// AcceptedCategories returns the upload categories the operation accepts.
func (d *Descriptor) AcceptedCategories() []upload.Category {
	if len(d.Accepts) > 0 {
		return d.Accepts
	}
	return []upload.Category{d.Category}
}

func (d *Descriptor) maxFiles() int {
	if d.MaxFiles > 0 {
		return d.MaxFiles
	}
	return d.MinFiles
}

// FileBounds returns the allowed number of uploaded files for the operation.
func (d *Descriptor) FileBounds() (min, max int) {
	return d.MinFiles, d.maxFiles()
}

// ParamError reports a schema violation for a named parameter.
type ParamError struct {
	Name   string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %q %s", e.Name, e.Reason)
}

// Params is the coerced, bounds-checked parameter bag handed to a tool.
// Getters assume the schema already enforced presence and type.
type Params map[string]any

func (p Params) Int(name string) int       { v, _ := p[name].(int); return v }
func (p Params) Float(name string) float64 { v, _ := p[name].(float64); return v }
func (p Params) Bool(name string) bool     { v, _ := p[name].(bool); return v }
func (p Params) String(name string) string { v, _ := p[name].(string); return v }
func (p Params) Ints(name string) []int    { v, _ := p[name].([]int); return v }
func (p Params) Has(name string) bool      { _, ok := p[name]; return ok }

// Coerce validates raw form values against the descriptor's schema and
// produces the typed parameter bag. Unknown form fields are ignored.
func (d *Descriptor) Coerce(form url.Values) (Params, error) {
	out := make(Params, len(d.Params))
	for _, param := range d.Params {
		raw := strings.TrimSpace(form.Get(param.Name))
		if raw == "" {
			if param.Required {
				return nil, &ParamError{Name: param.Name, Reason: "is required"}
			}
			if param.Default != nil {
				out[param.Name] = param.Default
			}
			continue
		}
		value, err := coerceValue(param, raw)
		if err != nil {
			return nil, err
		}
		out[param.Name] = value
	}
	return out, nil
}

func coerceValue(param Param, raw string) (any, error) {
	switch param.Type {
	case Int:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ParamError{Name: param.Name, Reason: "must be an integer"}
		}
		if err := checkBounds(param, float64(i)); err != nil {
			return nil, err
		}
		return i, nil
	case Float:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ParamError{Name: param.Name, Reason: "must be a number"}
		}
		if err := checkBounds(param, f); err != nil {
			return nil, err
		}
		return f, nil
	case Bool:
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return nil, &ParamError{Name: param.Name, Reason: "must be true or false"}
		}
		return b, nil
	case String:
		if len(param.Enum) > 0 {
			candidate := strings.ToUpper(raw)
			for _, allowed := range param.Enum {
				if candidate == allowed {
					return candidate, nil
				}
			}
			return nil, &ParamError{
				Name:   param.Name,
				Reason: "must be one of " + strings.Join(param.Enum, ", "),
			}
		}
		return raw, nil
	case IntList:
		var list []int
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, &ParamError{Name: param.Name, Reason: "must be a JSON array of integers"}
		}
		return list, nil
	default:
		return nil, &ParamError{Name: param.Name, Reason: "has an unsupported type"}
	}
}

func checkBounds(param Param, v float64) error {
	if !param.Bounded {
		return nil
	}
	if v < param.Min || v > param.Max {
		return &ParamError{
			Name:   param.Name,
			Reason: fmt.Sprintf("must be between %g and %g", param.Min, param.Max),
		}
	}
	return nil
}

// Registry is the immutable (category, operation) lookup table.
type Registry struct {
	entries map[string]*Descriptor
}

// New builds a Registry from descriptors. Duplicate registrations panic:
// the tool catalog is static and a duplicate is a programming error.
func New(descs ...*Descriptor) *Registry {
	entries := make(map[string]*Descriptor, len(descs))
	for _, d := range descs {
		key := key(string(d.Category), d.Operation)
		if _, dup := entries[key]; dup {
			panic("registry: duplicate operation " + key)
		}
		entries[key] = d
	}
	return &Registry{entries: entries}
}

// Lookup resolves a descriptor, returning ErrUnknownOperation on a miss.
func (r *Registry) Lookup(category, operation string) (*Descriptor, error) {
	d, ok := r.entries[key(category, operation)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownOperation, category, operation)
	}
	return d, nil
}

// Operations lists registered operation keys, for diagnostics.
func (r *Registry) Operations() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

func key(category, operation string) string {
	return strings.ToLower(category) + "/" + strings.ToLower(operation)
}

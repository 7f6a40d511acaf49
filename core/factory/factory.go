package factory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ModuleConfig selects a module by type and carries its raw settings.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Factory builds a module from its raw settings.
type Factory[T any] func(map[string]any) (T, error)

// Registry maps module types to factories. It is safe for concurrent use.
type Registry[T any] struct {
	mu       sync.RWMutex
	builders map[string]Factory[T]
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{builders: make(map[string]Factory[T])}
}

// Register binds name to f. Names are unique.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	if f == nil {
		return fmt.Errorf("module %s: nil factory", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[name]; ok {
		return fmt.Errorf("module %s: already registered", name)
	}
	r.builders[name] = f
	return nil
}

// Names returns the registered types, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.builders))
	for n := range r.builders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Create builds the module selected by cfg.Type.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.builders[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown module type %q (known: %s)", cfg.Type, strings.Join(r.Names(), ", "))
	}
	return f(cfg.Conf)
}

// Decode fills out from raw settings using json tags. Durations may be
// given as strings such as "5s" and unknown keys are rejected.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

type defaulter interface{ SetDefaults() }

type validator interface{ Validate() error }

// Typed adapts a constructor taking a settings struct C into a Factory.
// Settings are decoded, then defaulted and validated when C (or *C)
// implements SetDefaults or Validate.
func Typed[C, T any](build func(C) (T, error)) Factory[T] {
	return func(conf map[string]any) (T, error) {
		var (
			c    C
			zero T
		)
		if err := Decode(conf, &c); err != nil {
			return zero, err
		}
		if d, ok := any(&c).(defaulter); ok {
			d.SetDefaults()
		}
		if v, ok := any(&c).(validator); ok {
			if err := v.Validate(); err != nil {
				return zero, err
			}
		}
		return build(c)
	}
}

package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Names returns the option names in sorted order.
func (o Options) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// lookup returns the value for name converted to want, or ok=false when the
// option is absent or null.
func (o Options) lookup(name string, want cty.Type) (cty.Value, bool, error) {
	v, ok := o[name]
	if !ok || v.IsNull() {
		return cty.NilVal, false, nil
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, false, fmt.Errorf("option %q: value is not known", name)
	}
	converted, err := convert.Convert(v, want)
	if err != nil {
		return cty.NilVal, false, fmt.Errorf("option %q: %w", name, err)
	}
	return converted, true, nil
}

// String returns a string option, or def when it is unset.
func (o Options) String(name, def string) (string, error) {
	v, ok, err := o.lookup(name, cty.String)
	if err != nil || !ok {
		return def, err
	}
	return v.AsString(), nil
}

// Bool returns a bool option, or def when it is unset.
func (o Options) Bool(name string, def bool) (bool, error) {
	v, ok, err := o.lookup(name, cty.Bool)
	if err != nil || !ok {
		return def, err
	}
	return v.True(), nil
}

// Int returns an integer option, or def when it is unset.
func (o Options) Int(name string, def int) (int, error) {
	v, ok, err := o.lookup(name, cty.Number)
	if err != nil || !ok {
		return def, err
	}
	var i int
	if err := gocty.FromCtyValue(v, &i); err != nil {
		return def, fmt.Errorf("option %q: %w", name, err)
	}
	return i, nil
}

// Strings returns a list-of-strings option; unset yields nil.
func (o Options) Strings(name string) ([]string, error) {
	v, ok, err := o.lookup(name, cty.List(cty.String))
	if err != nil || !ok {
		return nil, err
	}
	var out []string
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return nil, fmt.Errorf("option %q: %w", name, err)
	}
	return out, nil
}

// StringMap returns a map-of-strings option; unset yields nil.
func (o Options) StringMap(name string) (map[string]string, error) {
	v, ok, err := o.lookup(name, cty.Map(cty.String))
	if err != nil || !ok {
		return nil, err
	}
	var out map[string]string
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return nil, fmt.Errorf("option %q: %w", name, err)
	}
	return out, nil
}

// Canonical renders the options as a stable string, used to fingerprint a
// rule for the build cache. Two option sets with the same values render
// identically regardless of how they were written.
func (o Options) Canonical() string {
	var b strings.Builder
	for _, name := range o.Names() {
		v := o[name]
		raw, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			raw = []byte(v.GoString())
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.Write(raw)
		b.WriteByte(';')
	}
	return b.String()
}

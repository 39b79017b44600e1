package plugin

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Options is the uninterpreted key-value configuration handed to a plugin.
// Keys are matched case-insensitively.
type Options map[string]any

func (o Options) lookup(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	if v, ok := o[key]; ok {
		return v, true
	}
	for k, v := range o {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether key is set.
func (o Options) Has(key string) bool {
	_, ok := o.lookup(key)
	return ok
}

// String returns the value of key as a string, or def when unset.
func (o Options) String(key, def string) string {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	return cast.ToString(v)
}

// Int returns the value of key as an int, or def when unset or invalid.
func (o Options) Int(key string, def int) int {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the value of key as a bool, or def when unset or invalid.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns the value of key as a duration, or def when unset or invalid.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def
	}
	return d
}

// Strings returns the value of key as a string slice, or nil when unset.
func (o Options) Strings(key string) []string {
	v, ok := o.lookup(key)
	if !ok {
		return nil
	}
	return cast.ToStringSlice(v)
}

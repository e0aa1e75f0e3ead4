package logging

import (
	"log/slog"
	"slices"
	"strings"
	"time"
)

// boundAttr remembers the groups open when an attribute was attached.
type boundAttr struct {
	groups []string
	attr   slog.Attr
}

// handlerState is the WithAttrs/WithGroup state of the buffer and journal
// handlers. It is copied on derive, never mutated.
type handlerState struct {
	attrs  []boundAttr
	groups []string
}

func (s handlerState) withAttrs(attrs []slog.Attr) handlerState {
	out := handlerState{attrs: slices.Clip(s.attrs), groups: s.groups}
	for _, a := range attrs {
		out.attrs = append(out.attrs, boundAttr{groups: s.groups, attr: a})
	}
	return out
}

func (s handlerState) withGroup(name string) handlerState {
	return handlerState{attrs: s.attrs, groups: append(slices.Clip(s.groups), name)}
}

// walk visits every leaf attribute, bound ones first, with its group path.
func (s handlerState) walk(r slog.Record, fn func(path []string, a slog.Attr)) {
	for _, b := range s.attrs {
		walkAttr(b.groups, b.attr, fn)
	}
	r.Attrs(func(a slog.Attr) bool {
		walkAttr(s.groups, a, fn)
		return true
	})
}

func walkAttr(path []string, a slog.Attr, fn func([]string, slog.Attr)) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		// An unnamed group inlines its members.
		sub := path
		if a.Key != "" {
			sub = append(slices.Clip(path), a.Key)
		}
		for _, ga := range a.Value.Group() {
			walkAttr(sub, ga, fn)
		}
		return
	}
	fn(path, a)
}

func attrKey(path []string, key, sep string) string {
	if len(path) == 0 {
		return key
	}
	return strings.Join(path, sep) + sep + key
}

// plainValue converts a leaf value into something encoding/json renders well.
func plainValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

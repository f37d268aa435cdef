// Package heatmap renders the GitHub contribution calendar shown in the
// activity section.
//
// The page only depends on the Renderer capability. Whatever backs it may
// be missing or misconfigured at runtime; Resolve turns that into a nil
// renderer so the page can fall back to a plain profile link.
package heatmap

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"reflect"
	"sync"
)

// ErrUnavailable is returned when no usable renderer is configured.
var ErrUnavailable = errors.New("heatmap: renderer unavailable")

// Renderer draws a contribution heatmap for a user with the given palette.
type Renderer interface {
	RenderHeatmap(ctx context.Context, username string, palette Palette) (template.HTML, error)
}

// Availability is implemented by renderers that can report missing
// configuration before they are asked to render.
type Availability interface {
	Available() bool
}

// Resolve returns r if it can be used, or nil. Nil interfaces, typed nil
// values and renderers reporting themselves unavailable all resolve to nil.
func Resolve(r Renderer) Renderer {
	if r == nil || isNilValue(r) {
		return nil
	}
	if a, ok := r.(Availability); ok && !a.Available() {
		return nil
	}
	return r
}

// Resolver resolves a renderer once and caches the answer for the life of
// the process.
type Resolver struct {
	factory func() Renderer

	once     sync.Once
	renderer Renderer
}

// NewResolver defers calling factory until the renderer is first needed.
func NewResolver(factory func() Renderer) *Resolver {
	return &Resolver{factory: factory}
}

// Renderer returns the cached renderer, or nil when the heatmap is
// unavailable.
func (r *Resolver) Renderer() Renderer {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		if r.factory == nil {
			return
		}
		r.renderer = Resolve(r.factory())
	})
	return r.renderer
}

// Render draws the heatmap or returns ErrUnavailable. A blank username is
// treated as unavailable, and so is a renderer that panics.
func (r *Resolver) Render(ctx context.Context, username string, palette Palette) (out template.HTML, err error) {
	rend := r.Renderer()
	if rend == nil || !validUsername(username) {
		return "", ErrUnavailable
	}
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("%w: renderer panicked: %v", ErrUnavailable, p)
		}
	}()
	return rend.RenderHeatmap(ctx, username, palette)
}

func isNilValue(r Renderer) bool {
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

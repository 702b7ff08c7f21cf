// Package scene is a small in-memory host: named objects carrying shape-key
// channels, a timeline cursor and a keyframe curve store.
package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"facecap/internal/keyframe"
)

var (
	ErrUnknownObject   = errors.New("scene: unknown object")
	ErrDuplicateObject = errors.New("scene: object already exists")
)

// Object is a named set of float channels. It satisfies arkit.ChannelSink,
// arkit.ChannelSource and keyframe.Target.
type Object struct {
	name string

	mu       sync.RWMutex
	channels map[string]float32
}

// NewObject returns an object with the given channels, all at zero.
func NewObject(name string, channels ...string) *Object {
	o := &Object{name: name, channels: make(map[string]float32, len(channels))}
	for _, ch := range channels {
		o.channels[ch] = 0
	}
	return o
}

func (o *Object) Name() string { return o.name }

func (o *Object) HasChannel(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.channels[name]
	return ok
}

// SetChannel writes value if the channel exists. Writes to absent channels
// are ignored.
func (o *Object) SetChannel(name string, value float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.channels[name]; ok {
		o.channels[name] = value
	}
}

func (o *Object) Channel(name string) (float32, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.channels[name]
	return v, ok
}

// Values copies the current channel values.
func (o *Object) Values() map[string]float32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]float32, len(o.channels))
	for k, v := range o.channels {
		out[k] = v
	}
	return out
}

// ChannelNames returns the object's channel names, sorted.
func (o *Object) ChannelNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.channels))
	for k := range o.channels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Timeline is the scene's current-frame cursor.
type Timeline struct {
	mu    sync.Mutex
	frame int
}

func (t *Timeline) CurrentFrame() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame
}

func (t *Timeline) SetFrame(frame int) {
	t.mu.Lock()
	t.frame = frame
	t.mu.Unlock()
}

// Scene holds objects in insertion order plus a timeline and curve store.
type Scene struct {
	mu      sync.RWMutex
	objects []*Object
	byName  map[string]*Object

	timeline Timeline
	store    *keyframe.MemoryStore
}

// New returns an empty scene whose timeline starts at startFrame.
func New(startFrame int) *Scene {
	s := &Scene{
		byName: make(map[string]*Object),
		store:  keyframe.NewMemoryStore(),
	}
	s.timeline.SetFrame(startFrame)
	return s
}

// Add inserts o. Names are unique.
func (s *Scene) Add(o *Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[o.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateObject, o.Name())
	}
	s.objects = append(s.objects, o)
	s.byName[o.Name()] = o
	return nil
}

// Object looks up an object by name.
func (s *Scene) Object(name string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}
	return o, nil
}

// Objects returns the objects in insertion order.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Active returns the first object added, which stands in for the host's
// active selection.
func (s *Scene) Active() (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.objects) == 0 {
		return nil, false
	}
	return s.objects[0], true
}

func (s *Scene) Timeline() *Timeline { return &s.timeline }

func (s *Scene) Store() *keyframe.MemoryStore { return s.store }

// Package scene is the host object model exposed to scripts: named scenes
// holding named items whose visibility can be toggled, and a program output
// showing one selected scene. Scripts see objects only through opaque,
// reference-counted handles.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	// ErrInvalidHandle is returned for a handle that was never issued or
	// whose last reference has been released.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrNotFound is returned when a named object does not exist.
	ErrNotFound = errors.New("not found")
)

// Handle is an opaque reference to a scene or scene item.
type Handle uint64

// Host is the object model the script bindings operate on.
type Host interface {
	FindScene(name string) (Handle, bool)
	ReleaseScene(h Handle) error
	SelectScene(h Handle) error
	FindItem(scene Handle, name string) (Handle, bool, error)
	ReleaseItem(h Handle) error
	SetItemVisible(item Handle, visible bool) error
}

type sceneObj struct {
	name  string
	items map[string]*itemObj
}

type itemObj struct {
	scene   *sceneObj
	name    string
	visible bool
}

// ref is one issued handle. Exactly one of scene and item is set.
type ref struct {
	scene *sceneObj
	item  *itemObj
	count int
}

// Catalog is an in-memory, optionally persisted, implementation of Host.
// It is safe for concurrent use.
type Catalog struct {
	mu      sync.Mutex
	scenes  map[string]*sceneObj
	refs    map[Handle]*ref
	byObj   map[any]Handle
	next    Handle
	program string
	store   *Store
	log     *slog.Logger
}

var _ Host = (*Catalog)(nil)

// NewCatalog creates a catalog. When store is non-nil its contents are
// loaded and every change is written through to it.
func NewCatalog(store *Store, log *slog.Logger) (*Catalog, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Catalog{
		scenes: make(map[string]*sceneObj),
		refs:   make(map[Handle]*ref),
		byObj:  make(map[any]Handle),
		store:  store,
		log:    log.With("component", "scene"),
	}
	if store == nil {
		return c, nil
	}
	defs, program, err := store.Load()
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		c.putLocked(d)
	}
	c.program = program
	return c, nil
}

// AddScene creates or replaces a scene definition.
func (c *Catalog) AddScene(def Def) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		if err := c.store.PutScene(def); err != nil {
			return err
		}
	}
	c.putLocked(def)
	return nil
}

func (c *Catalog) putLocked(def Def) {
	s, ok := c.scenes[def.Name]
	if !ok {
		s = &sceneObj{name: def.Name}
		c.scenes[def.Name] = s
	}
	s.items = make(map[string]*itemObj, len(def.Items))
	for _, it := range def.Items {
		s.items[it.Name] = &itemObj{scene: s, name: it.Name, visible: it.Visible}
	}
}

// retainLocked returns the handle for obj, issuing one if needed, and adds
// a reference to it.
func (c *Catalog) retainLocked(obj any) Handle {
	if h, ok := c.byObj[obj]; ok {
		c.refs[h].count++
		return h
	}
	c.next++
	h := c.next
	r := &ref{count: 1}
	switch o := obj.(type) {
	case *sceneObj:
		r.scene = o
	case *itemObj:
		r.item = o
	}
	c.refs[h] = r
	c.byObj[obj] = h
	return h
}

func (c *Catalog) releaseLocked(h Handle, wantScene bool) error {
	r, ok := c.refs[h]
	if !ok || (wantScene && r.scene == nil) || (!wantScene && r.item == nil) {
		return fmt.Errorf("release %d: %w", h, ErrInvalidHandle)
	}
	r.count--
	if r.count > 0 {
		return nil
	}
	delete(c.refs, h)
	if r.scene != nil {
		delete(c.byObj, r.scene)
	} else {
		delete(c.byObj, r.item)
	}
	return nil
}

// FindScene returns a retained handle for the named scene.
func (c *Catalog) FindScene(name string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.scenes[name]
	if !ok {
		return 0, false
	}
	return c.retainLocked(s), true
}

// ReleaseScene drops one reference to a scene handle.
func (c *Catalog) ReleaseScene(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseLocked(h, true)
}

// SelectScene makes the scene the program output.
func (c *Catalog) SelectScene(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.refs[h]
	if !ok || r.scene == nil {
		return fmt.Errorf("invalid scene: %w", ErrInvalidHandle)
	}
	if c.store != nil {
		if err := c.store.SetProgram(r.scene.name); err != nil {
			return err
		}
	}
	c.program = r.scene.name
	c.log.Info("program scene changed", "scene", r.scene.name)
	return nil
}

// FindItem returns a retained handle for the named item of a scene.
func (c *Catalog) FindItem(scene Handle, name string) (Handle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.refs[scene]
	if !ok || r.scene == nil {
		return 0, false, fmt.Errorf("invalid scene: %w", ErrInvalidHandle)
	}
	it, ok := r.scene.items[name]
	if !ok {
		return 0, false, nil
	}
	return c.retainLocked(it), true, nil
}

// ReleaseItem drops one reference to an item handle.
func (c *Catalog) ReleaseItem(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseLocked(h, false)
}

// SetItemVisible shows or hides an item.
func (c *Catalog) SetItemVisible(h Handle, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.refs[h]
	if !ok || r.item == nil {
		return fmt.Errorf("invalid scene item: %w", ErrInvalidHandle)
	}
	if c.store != nil {
		if err := c.store.SetVisible(r.item.scene.name, r.item.name, visible); err != nil {
			return err
		}
	}
	r.item.visible = visible
	return nil
}

// Program returns the name of the selected program scene.
func (c *Catalog) Program() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.program
}

// Visible reports the visibility of scene/item.
func (c *Catalog) Visible(scene, item string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.scenes[scene]
	if !ok {
		return false, fmt.Errorf("scene %q: %w", scene, ErrNotFound)
	}
	it, ok := s.items[item]
	if !ok {
		return false, fmt.Errorf("item %q in %q: %w", item, scene, ErrNotFound)
	}
	return it.visible, nil
}

// Scenes returns the scene names in sorted order.
func (c *Catalog) Scenes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.scenes))
	for n := range c.scenes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Refs returns the number of live handles.
func (c *Catalog) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refs)
}

// Package input defines surface input events and the per-frame keyboard state.
//
// Events are produced by a surface (see package window) and fanned out to
// subscribers through a Dispatcher. Nothing here touches SDL directly, so
// cameras and controllers can be driven by synthetic events in tests.
package input

import "sync"

// Key identifies a physical key. Values match USB HID / SDL scancodes.
type Key int

const (
	KeyUnknown   Key = 0
	KeyA         Key = 4
	KeyD         Key = 7
	KeyE         Key = 8
	KeyQ         Key = 20
	KeyS         Key = 22
	KeyW         Key = 26
	KeyEscape    Key = 41
	KeySpace     Key = 44
	KeyF1        Key = 58
	KeyF12       Key = 69
	KeyRight     Key = 79
	KeyLeft      Key = 80
	KeyDown      Key = 81
	KeyUp        Key = 82
	KeyLeftShift Key = 225
)

// Event types for scene use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventResize
	EventKeyDown
	EventKeyUp
	EventPointerMove
	EventPointerDown
	EventPointerUp
	EventWheel
)

// Event is a processed surface event.
type Event struct {
	Type   EventType
	Key    Key
	Width  int // EventResize
	Height int // EventResize
	X, Y   int // pointer position
	DX, DY int // pointer motion since the previous event
	Button uint8
	Wheel  float32 // positive scrolls away from the user
}

// Handler receives events.
type Handler func(Event)

// Source delivers events to subscribers. The returned func unsubscribes.
type Source interface {
	Subscribe(h Handler) (unsubscribe func())
}

// Dispatcher is a Source that fans events out in subscription order.
type Dispatcher struct {
	mu       sync.Mutex
	nextID   int
	handlers []entry
}

type entry struct {
	id int
	h  Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers h.
func (d *Dispatcher) Subscribe(h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.handlers = append(d.handlers, entry{id: id, h: h})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, e := range d.handlers {
			if e.id == id {
				d.handlers = append(d.handlers[:i], d.handlers[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers e to every current subscriber.
func (d *Dispatcher) Dispatch(e Event) {
	d.mu.Lock()
	handlers := make([]Handler, len(d.handlers))
	for i, en := range d.handlers {
		handlers[i] = en.h
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

// Keyboard tracks which keys are held, fed from a Source.
type Keyboard struct {
	down  map[Key]bool
	unsub func()
}

// NewKeyboard subscribes a key tracker to src.
func NewKeyboard(src Source) *Keyboard {
	k := &Keyboard{down: make(map[Key]bool)}
	if src != nil {
		k.unsub = src.Subscribe(k.handle)
	}
	return k
}

func (k *Keyboard) handle(e Event) {
	switch e.Type {
	case EventKeyDown:
		k.down[e.Key] = true
	case EventKeyUp:
		delete(k.down, e.Key)
	}
}

// IsDown reports whether key is currently held.
func (k *Keyboard) IsDown(key Key) bool {
	return k.down[key]
}

// Release drops the subscription and forgets held keys.
func (k *Keyboard) Release() {
	if k.unsub != nil {
		k.unsub()
		k.unsub = nil
	}
	k.down = make(map[Key]bool)
}

// ContainsKey reports whether keys contains k.
func ContainsKey(keys []Key, k Key) bool {
	for _, c := range keys {
		if c == k {
			return true
		}
	}
	return false
}

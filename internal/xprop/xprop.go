// Package xprop sets text properties on X11 windows over the X protocol.
package xprop

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	xp "github.com/BurntSushi/xgb/xproto"
)

// Setter writes UTF-8 text properties on windows.
type Setter interface {
	SetUTF8(wid uint32, name, value string) error
}

// Conn is a Setter backed by an X connection. Atoms are interned once.
type Conn struct {
	x *xgb.Conn

	mu    sync.Mutex
	atoms map[string]xp.Atom
}

// Dial connects to $DISPLAY.
func Dial() (*Conn, error) {
	x, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("x11 connect: %w", err)
	}
	return &Conn{x: x, atoms: make(map[string]xp.Atom)}, nil
}

// Close closes the X connection.
func (c *Conn) Close() { c.x.Close() }

func (c *Conn) atom(name string) (xp.Atom, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.atoms[name]; ok {
		return a, nil
	}
	r, err := xp.InternAtom(c.x, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern %s: %w", name, err)
	}
	c.atoms[name] = r.Atom
	return r.Atom, nil
}

// SetUTF8 replaces property name on wid with value as UTF8_STRING, format 8.
func (c *Conn) SetUTF8(wid uint32, name, value string) error {
	prop, err := c.atom(name)
	if err != nil {
		return err
	}
	typ, err := c.atom("UTF8_STRING")
	if err != nil {
		return err
	}
	data := []byte(value)
	if err := xp.ChangePropertyChecked(c.x, xp.PropModeReplace, xp.Window(wid), prop, typ,
		8, uint32(len(data)), data).Check(); err != nil {
		return fmt.Errorf("set %s on 0x%x: %w", name, wid, err)
	}
	return nil
}

// Recorder is an in-memory Setter.
type Recorder struct {
	mu    sync.Mutex
	props map[uint32]map[string]string
	sets  int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{props: make(map[uint32]map[string]string)}
}

func (r *Recorder) SetUTF8(wid uint32, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.props[wid] == nil {
		r.props[wid] = make(map[string]string)
	}
	r.props[wid][name] = value
	r.sets++
	return nil
}

// Get returns the last value set for name on wid.
func (r *Recorder) Get(wid uint32, name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.props[wid][name]
	return v, ok
}

// Sets returns the number of SetUTF8 calls.
func (r *Recorder) Sets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets
}

package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/merfbake/internal/engine/camera"
	"github.com/Faultbox/merfbake/internal/engine/raymarch"
)

// Action is a viewer command produced by an event.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionResize
	ActionRedraw // the view changed
	ActionDisplayMode
	ActionScreenshot
)

// Controller drives an orbit camera and the display mode from events.
// Held movement keys pan the camera once per Tick.
type Controller struct {
	Camera      *camera.OrbitCamera
	DisplayMode raymarch.DisplayMode

	dragging bool
	held     map[sdl.Scancode]bool
}

// NewController creates a controller for cam.
func NewController(cam *camera.OrbitCamera) *Controller {
	return &Controller{Camera: cam, held: make(map[sdl.Scancode]bool)}
}

var displayKeys = map[sdl.Scancode]raymarch.DisplayMode{
	sdl.SCANCODE_1: raymarch.DisplayNormal,
	sdl.SCANCODE_2: raymarch.DisplayDiffuse,
	sdl.SCANCODE_3: raymarch.DisplayFeatures,
	sdl.SCANCODE_4: raymarch.DisplayViewDependent,
	sdl.SCANCODE_5: raymarch.DisplayCoarseGrid,
}

// Apply handles one event.
func (c *Controller) Apply(e Event) Action {
	switch e.Type {
	case EventQuit:
		return ActionQuit
	case EventWindowResize:
		return ActionResize
	case EventMouseDown:
		if e.Button == sdl.BUTTON_LEFT {
			c.dragging = true
		}
	case EventMouseUp:
		if e.Button == sdl.BUTTON_LEFT {
			c.dragging = false
		}
	case EventMouseMove:
		if c.dragging && (e.DeltaX != 0 || e.DeltaY != 0) {
			c.Camera.HandleDrag(float64(e.DeltaX), float64(e.DeltaY))
			return ActionRedraw
		}
	case EventMouseWheel:
		if e.Wheel != 0 {
			c.Camera.HandleZoom(e.Wheel)
			return ActionRedraw
		}
	case EventKeyUp:
		delete(c.held, e.Key)
	case EventKeyDown:
		switch e.Key {
		case sdl.SCANCODE_ESCAPE:
			return ActionQuit
		case sdl.SCANCODE_F12:
			return ActionScreenshot
		}
		if m, ok := displayKeys[e.Key]; ok {
			c.DisplayMode = m
			return ActionDisplayMode
		}
		c.held[e.Key] = true
	}
	return ActionNone
}

// Tick applies held movement keys and reports whether the camera moved.
func (c *Controller) Tick() bool {
	var forward, right, up float64
	if c.held[sdl.SCANCODE_W] {
		forward++
	}
	if c.held[sdl.SCANCODE_S] {
		forward--
	}
	if c.held[sdl.SCANCODE_D] {
		right++
	}
	if c.held[sdl.SCANCODE_A] {
		right--
	}
	if c.held[sdl.SCANCODE_E] {
		up++
	}
	if c.held[sdl.SCANCODE_Q] {
		up--
	}
	if forward == 0 && right == 0 && up == 0 {
		return false
	}
	c.Camera.HandleMovement(forward, right, up)
	return true
}

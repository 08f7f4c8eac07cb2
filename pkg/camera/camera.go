// Package camera holds the 2D view state (pan and zoom) shared between a
// slice renderer and whatever handles user interaction.
package camera

import "math"

// minScale keeps the view invertible.
const minScale = 0.0001

// View is a pan/zoom transform. Pan is in scene units with Y pointing up,
// as in the camera's view matrix; Scale is screen pixels per scene unit.
type View struct {
	PanX, PanY float64
	Scale      float64
}

// EffectiveScale returns Scale bounded away from zero.
func (v View) EffectiveScale() float64 {
	return math.Max(v.Scale, minScale)
}

// Camera is the mutable view owned by the interaction layer.
type Camera struct {
	view View
}

// New returns a camera with no pan and unit scale.
func New() *Camera {
	return &Camera{view: View{Scale: 1}}
}

// View returns the current transform.
func (c *Camera) View() View {
	return c.view
}

// Pan moves the view by (dx, dy) scene units.
func (c *Camera) Pan(dx, dy float64) {
	c.view.PanX += dx
	c.view.PanY += dy
}

// Zoom multiplies the scale by factor.
func (c *Camera) Zoom(factor float64) {
	c.view.Scale = math.Max(c.view.Scale*factor, minScale)
}

// SetScale replaces the scale.
func (c *Camera) SetScale(scale float64) {
	c.view.Scale = math.Max(scale, minScale)
}

// Reset removes any pan and restores unit scale.
func (c *Camera) Reset() {
	c.view = View{Scale: 1}
}

package models

import "fmt"

// Position identifies one imaged field of view and its output folder.
type Position struct {
	Index  int    `json:"index"`
	Folder string `json:"folder"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d (%s)", p.Index, p.Folder)
}

// IntControl is a bounded integer navigation value.
type IntControl struct {
	Value int `json:"value"`
	Min   int `json:"min"`
	Max   int `json:"max"`
}

// NewIntControl returns a control with value clamped into [min, max].
func NewIntControl(value, min, max int) IntControl {
	c := IntControl{Min: min, Max: max}
	c.Value = c.Clamp(value)
	return c
}

// Clamp limits v to the control bounds. An empty range (Max < Min) clamps
// to Min.
func (c IntControl) Clamp(v int) int {
	if v > c.Max {
		v = c.Max
	}
	if v < c.Min {
		v = c.Min
	}
	return v
}

// Set stores v clamped and reports whether the value changed.
func (c *IntControl) Set(v int) bool {
	v = c.Clamp(v)
	changed := v != c.Value
	c.Value = v
	return changed
}

// Step moves the value by delta, clamped at the bounds.
func (c *IntControl) Step(delta int) bool {
	return c.Set(c.Value + delta)
}

// Cycle advances by one and wraps to Min past Max.
func (c *IntControl) Cycle() bool {
	next := c.Value + 1
	if next > c.Max {
		next = c.Min
	}
	return c.Set(next)
}

// Len is the number of values in the range.
func (c IntControl) Len() int {
	if c.Max < c.Min {
		return 0
	}
	return c.Max - c.Min + 1
}

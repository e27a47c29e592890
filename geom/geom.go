// Package geom holds the small value types shared by channels and samples:
// 2- and 3-component vectors, quaternions and poses. All fields are float32
// and all comparisons are exact; smoothing or interpolation is up to the
// consumer.
package geom

// Vec2 is a 2D vector (pointer positions, thumbsticks, gesture deltas).
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Vec3 is a 3D position.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Quat is a rotation quaternion.
type Quat struct {
	W float32 `json:"w"`
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Identity is the no-rotation quaternion.
func Identity() Quat {
	return Quat{W: 1}
}

// Pose is a position plus orientation pair.
type Pose struct {
	Position    Vec3 `json:"position"`
	Orientation Quat `json:"orientation"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// LenSq returns the squared length of v. Callers compare against squared
// thresholds so no square root is taken on the per-frame path.
func (v Vec2) LenSq() float32 {
	return v.X*v.X + v.Y*v.Y
}

// Abs2 returns the componentwise absolute value of v.
func Abs2(v Vec2) Vec2 {
	if v.X < 0 {
		v.X = -v.X
	}
	if v.Y < 0 {
		v.Y = -v.Y
	}
	return v
}

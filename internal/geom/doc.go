// Package geom provides the collider shapes and bounding volumes used by the
// rigid-body core.
//
// Vectors and rotations are [mgl64] types re-exported as [Vec3] and [Quat].
// A [Shape] is a tagged union over sphere, box, plane and capsule. Shapes are
// defined in body-local space and are placed in the world by a body pose
// (position plus unit quaternion):
//
//   - [Shape.Bounds]: world [AABB] for the broad phase
//   - [Shape.OBB]: oriented box for box narrow-phase tests
//   - [Shape.Segment]: capsule core segment in world space
//
// Planes are half-spaces. The solid side lies opposite the normal, so a sphere
// below a ground plane is always touching it.
package geom

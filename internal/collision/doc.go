// Package collision implements the narrow phase and ray queries.
//
// [TestCollision] dispatches on the pair of shape kinds and returns a
// [Manifold] whose contacts share one normal pointing from shape A to shape B.
// For every contact PointOnA - PointOnB equals Normal * Depth, so PointOnA is
// the deepest point of A inside B and PointOnB the deepest point of B inside A.
//
// Box pairs use the separating axis test over the 15 candidate axes and clip
// box corners against the other box to build up to [MaxContacts] contacts.
//
// Degenerate inputs (coincident centers, parallel rays, zero-length
// directions) never produce NaN. They fall back to a fixed axis or report no
// hit.
package collision

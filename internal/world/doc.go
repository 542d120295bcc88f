// Package world owns bodies, links and their aggregates and advances them
// with a fixed-step pipeline.
//
// Step(dt) runs seven phases in order:
//
//  1. integrate gravity and external forces into velocities
//  2. broad phase: sweep and prune over world AABBs
//  3. narrow phase: contact manifolds for overlapping pairs
//  4. sequential impulse solve over contacts and links
//  5. integrate velocities into poses, then positional correction
//  6. link material update (stretch, yield, break, slack)
//  7. pose write-back and event dispatch
//
// Events are queued during the step and handed to handlers only after the
// step has finished. Bodies are addressed by generation-checked handles, so
// a stale [body.EntityID] is rejected instead of aliasing a newer body.
package world

// Package body defines [RigidBody], the per-entity dynamic state.
//
// A body is a plain data container plus helpers that apply forces and
// impulses. Only dynamic bodies respond to them: static bodies never move and
// kinematic bodies follow externally supplied poses while acting as infinite
// mass movers in contacts.
package body

// Package link implements breakable distance constraints and the chains and
// cloth meshes built from them.
//
// Each [Link] carries a material type (rigid, elastic, plastic or rope) and a
// state (intact, slack, yielding or broken). [Link.Update] is a pure function
// of the current endpoint distance and the previous state. Broken is terminal.
//
// A [System] owns the links of one world by id. Aggregates reference links
// by pointer into the same system: a [Chain] splits into two new chains when
// one of its links breaks, and a [Mesh] reports falling integrity as damage
// events.
package link

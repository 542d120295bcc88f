// Package stream publishes world snapshots to websocket clients.
//
// A [Hub] is an http.Handler that upgrades each request and keeps the
// connection in its broadcast set. A [Publisher] plugs into a sim runner as
// an observer and sends a [Frame] of poses and recent events every few
// steps.
package stream

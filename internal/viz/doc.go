// Package viz draws a physics world in the terminal.
//
// A [Renderer] projects bodies and intact links onto a braille [Canvas]
// through an orbiting [Camera]. [Model] is a Bubble Tea program that steps a
// world in real time with a fixed-step clock and shows integrity, contacts,
// energy and a log of recent events beside the picture. [Menu] puts a
// scenario picker in front of it.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	.     - Single step while paused
//	R     - Rebuild the scene
//	x/y   - Orbit the camera (shift reverses)
//	+/-   - Zoom
//	F     - Refit the camera to the scene
//	Esc   - Back to the scenario list
//	?     - Show help overlay
package viz

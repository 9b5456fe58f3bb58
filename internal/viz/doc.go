// Package viz draws skeletons in the terminal.
//
// [Live] is a Bubble Tea program that steps an experiment in real time and
// renders its bodies on a Braille [Canvas] through an orbiting [Camera].
// Recorded trajectories are charted with asciigraph by [PlotDofs].
//
// # Key Bindings
//
//	Space   - Pause/Resume simulation
//	R       - Reset to initial configuration
//	[ ]     - Replay recorded frames
//	Tab/↑↓  - Select and tune model parameters
//	←→ W S  - Orbit the camera
//	T       - Cycle color themes
//	?       - Show help overlay
package viz

// Package analysis inspects recorded series from a run.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation content of a
//     series, e.g. a bob swinging on an elastic link
//   - [Summarize]: min, max, mean and RMS ignoring NaN samples
//   - [NewPhasePortrait]: two series plotted against each other, e.g. the
//     x/y path of a body
//
// Series come from sim.Result.Column or storage.LoadStates.
package analysis

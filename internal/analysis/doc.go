// Package analysis characterizes simulated trajectories.
//
//   - [Spectrum] and [DominantFrequency]: amplitude spectrum of a sampled series
//   - [LyapunovExponent]: largest Lyapunov exponent via twin-trajectory separation
//   - [Portrait]: (q, v) phase portrait of one DOF
//   - [Section]: Poincaré section on a level crossing of one DOF
//
// # Chaos Detection
//
// A positive largest exponent indicates chaotic motion:
//
//	lambda, err := analysis.LyapunovExponent(ctx, skel, build, 1e-8, dt, 20)
//	if err == nil && lambda > 0 {
//	    // chaotic
//	}
package analysis

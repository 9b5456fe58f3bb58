// Package spatial provides the 6-D spatial algebra used by the articulated
// body recursion.
//
// Twists and wrenches are stored angular-first:
//
//   - [Vec6]: spatial motion [ω; v] or spatial force [m; f]
//   - [Mat6]: 6×6 spatial inertia or articulated inertia
//   - [Isometry]: rigid transform (rotation + translation)
//
// All velocities are body-frame quantities. For a child frame C located at
// T (pose of C in P), a parent twist is brought into C with [AdInvT] and a
// child wrench is brought into P with [DAdInvT].
//
// # Rotation maps
//
// [ExpMapRot] and [LogMap] convert between axis-angle vectors and rotation
// matrices; LogMap returns the principal branch (angle in [0, π]).
package spatial

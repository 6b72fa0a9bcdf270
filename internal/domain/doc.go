// Package domain models street addresses, provider candidates and the pure
// logic applied to them before and after a geocoding call.
//
// # Address Conventions
//
// Addresses follow the Colombian nomenclature used in Bogotá, where the
// street type and number are followed by the cross-street number and the
// distance from the corner:
//
//	"Carrera 23 Número 45-30"  →  Carrera 23, cross street 45, 30 m from the corner.
//
// Operators type these in many abbreviated forms ("cr", "kra", "cll",
// "ak", "#", "no."). [Normalize] rewrites them to a canonical spelling
// through the ordered table [NormalizationRules]. Compound forms such as
// "ak" (Avenida Carrera) and "ac" (Avenida Calle) come first so the plain
// "cra"/"cl" rules never split them. Number markers come last.
//
// Token casing:
//
//	Every word is rendered with an upper-case first letter and lower-case
//	rest using Spanish casing rules, so "NÚMERO" becomes "Número".
//	Purely numeric tokens with optional hyphens ("45-30") pass through untouched.
//
// # Candidate Ranking
//
// Providers return several candidates for a query. [Score] assigns each a
// heuristic value that prefers precise results:
//
//	base 100
//	- 10 × (1 − importance)       when the provider reports an importance in [0,1]
//	+ 30 building | +25 house_number | +20 street   result type bonus
//	+ 10 if a house number is present
//	+  5 if a street is present
//
// [RankFeatures] orders candidates by descending score and keeps provider
// order for ties.
//
// # Coordinates
//
// [Coordinate] is latitude first. Providers speaking GeoJSON send
// [longitude, latitude]; adapters swap the order at the boundary so nothing
// inside the service ever sees lon-first pairs.
package domain

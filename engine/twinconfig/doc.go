// Package twinconfig keeps the agent's locally applied configuration aligned
// with the desired section of its cloud twin.
//
// A Store decodes partially specified documents field by field, falling back to
// compiled defaults, and applies the result only when every field is
// acceptable. Each attempt leaves an UpdateOutcome describing which fields were
// accepted or rejected. SerializedConfiguration rebuilds the reported document
// from the configuration currently in force.
package twinconfig

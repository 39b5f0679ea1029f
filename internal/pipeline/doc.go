// Package pipeline orchestrates a conversion run. It owns no domain
// logic: episode loading, kinematics, calibration, windowing and container
// writes all live in their own packages; this package wires them into the
// validate-all / transform / split sequence and enforces the all-or-nothing
// failure policy.
package pipeline

// Package kinematics computes end-effector poses from joint angles using
// the product-of-exponentials formulation: the pose for a joint vector q is
// exp([S1]q1) · ... · exp([Sn]qn) · M, where M is the home configuration
// and Si are the screw axes expressed in the robot base frame.
//
// A Model is immutable once built and safe for concurrent use.
package kinematics

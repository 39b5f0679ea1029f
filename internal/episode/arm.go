package episode

import "fmt"

// ArmColumns is the per-arm width of the rig's joint recordings: six
// joints plus the gripper. The full recording is two arms side by side,
// left first. Confirm against the hardware joint ordering before reusing
// with another rig.
const ArmColumns = 7

// Arm selects which arm's columns to convert.
type Arm string

// Supported arm selectors.
const (
	ArmLeft  Arm = "left"
	ArmRight Arm = "right"
)

// ParseArm resolves a CLI arm selector.
func ParseArm(s string) (Arm, error) {
	switch Arm(s) {
	case ArmLeft, ArmRight:
		return Arm(s), nil
	default:
		return "", fmt.Errorf("episode: unknown arm %q (want %q or %q)", s, ArmLeft, ArmRight)
	}
}

// Offset returns the first joint column belonging to the arm.
func (a Arm) Offset() int {
	if a == ArmRight {
		return ArmColumns
	}
	return 0
}

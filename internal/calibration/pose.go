// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

// Pose is one of the orientations the device is held in during calibration.
// The axis pointing up reads +g.
type Pose int

const (
	PoseFlat        Pose = iota // screen up, z up
	PoseFlatRotated             // screen up, turned 180° on the table
	PoseLeftEdge                // standing on the left edge, x up
	PoseRightEdge               // standing on the right edge, x down
	PoseBottomEdge              // upright on the bottom edge, y up
	PoseTopEdge                 // upside down on the top edge, y down
	PoseFaceDown                // screen down, z down

	NumPoses = 7
)

var poseNames = [NumPoses]string{
	"flat",
	"flat-rotated",
	"left-edge",
	"right-edge",
	"bottom-edge",
	"top-edge",
	"face-down",
}

var poseInstructions = [NumPoses]string{
	"Lay the device flat on a level surface, screen up.",
	"Without moving the surface, turn the device 180° so its top points the other way.",
	"Stand the device on its left edge.",
	"Turn it over and stand it on its right edge.",
	"Stand the device upright on its bottom edge.",
	"Turn it upside down, resting on its top edge.",
	"Lay the device flat, screen down.",
}

func (p Pose) String() string {
	if p < 0 || int(p) >= NumPoses {
		return "unknown"
	}
	return poseNames[p]
}

// Instruction is the prompt shown before the pose is captured.
func (p Pose) Instruction() string {
	if p < 0 || int(p) >= NumPoses {
		return ""
	}
	return poseInstructions[p]
}

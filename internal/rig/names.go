package rig

// Canonical bone names.
const (
	Hips          = "Hips"
	Spine         = "Spine"
	Spine1        = "Spine1"
	Spine2        = "Spine2"
	Neck          = "Neck"
	Head          = "Head"
	LeftShoulder  = "LeftShoulder"
	RightShoulder = "RightShoulder"
	LeftArm       = "LeftArm"
	RightArm      = "RightArm"
	LeftForeArm   = "LeftForeArm"
	RightForeArm  = "RightForeArm"
	LeftHand      = "LeftHand"
	RightHand     = "RightHand"
	LeftUpLeg     = "LeftUpLeg"
	RightUpLeg    = "RightUpLeg"
	LeftLeg       = "LeftLeg"
	RightLeg      = "RightLeg"
	LeftFoot      = "LeftFoot"
	RightFoot     = "RightFoot"

	LeftHandThumb1   = "LeftHandThumb1"
	LeftHandIndex1   = "LeftHandIndex1"
	LeftHandMiddle1  = "LeftHandMiddle1"
	RightHandThumb1  = "RightHandThumb1"
	RightHandIndex1  = "RightHandIndex1"
	RightHandMiddle1 = "RightHandMiddle1"
)

// BoneNames lists every canonical bone the engine may drive.
var BoneNames = []string{
	Hips, Spine, Spine1, Spine2, Neck, Head,
	LeftShoulder, RightShoulder, LeftArm, RightArm,
	LeftForeArm, RightForeArm, LeftHand, RightHand,
	LeftUpLeg, RightUpLeg, LeftLeg, RightLeg, LeftFoot, RightFoot,
	LeftHandThumb1, LeftHandIndex1, LeftHandMiddle1,
	RightHandThumb1, RightHandIndex1, RightHandMiddle1,
}

// CoreBones must all resolve before a skeleton is considered animatable.
var CoreBones = []string{Spine, Neck, Head}

// humanoidNames maps canonical names to VRM humanoid style names.
var humanoidNames = map[string]string{
	Hips:          "hips",
	Spine:         "spine",
	Spine1:        "chest",
	Spine2:        "upperChest",
	Neck:          "neck",
	Head:          "head",
	LeftShoulder:  "leftShoulder",
	RightShoulder: "rightShoulder",
	LeftArm:       "leftUpperArm",
	RightArm:      "rightUpperArm",
	LeftForeArm:   "leftLowerArm",
	RightForeArm:  "rightLowerArm",
	LeftHand:      "leftHand",
	RightHand:     "rightHand",
	LeftUpLeg:     "leftUpperLeg",
	RightUpLeg:    "rightUpperLeg",
	LeftLeg:       "leftLowerLeg",
	RightLeg:      "rightLowerLeg",
	LeftFoot:      "leftFoot",
	RightFoot:     "rightFoot",

	LeftHandThumb1:   "leftThumbProximal",
	LeftHandIndex1:   "leftIndexProximal",
	LeftHandMiddle1:  "leftMiddleProximal",
	RightHandThumb1:  "rightThumbProximal",
	RightHandIndex1:  "rightIndexProximal",
	RightHandMiddle1: "rightMiddleProximal",
}

// Aliases returns the alternate names tried for a canonical bone, in lookup
// order: the retarget-prefixed forms first, then the humanoid name.
func Aliases(canonical string) []string {
	out := []string{"mixamorig" + canonical, "mixamorig:" + canonical}
	if h, ok := humanoidNames[canonical]; ok {
		out = append(out, h)
	}
	return out
}

package rig

import "errors"

var (
	// ErrUnanimatable is returned once bone discovery has exhausted its
	// retry budget without finding the core bones.
	ErrUnanimatable = errors.New("skeleton has no animatable core bones")

	// ErrNoSkeleton is returned when resolution is attempted before a
	// skeleton is attached.
	ErrNoSkeleton = errors.New("no skeleton attached")
)

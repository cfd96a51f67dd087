package seedbloom

import "errors"

var (
	// ErrOutOfRange is returned by a BitArray when an index falls outside
	// [0, capacity). A filter never produces such an index; seeing it means a
	// hasher or store is broken.
	ErrOutOfRange = errors.New("seedbloom: bit index out of range")

	// ErrInvalidCapacity is returned when a capacity is zero or exceeds MaxCapacity.
	ErrInvalidCapacity = errors.New("seedbloom: invalid capacity")

	// ErrNoSeeds is returned when a filter is configured without hash seeds.
	ErrNoSeeds = errors.New("seedbloom: at least one seed is required")

	// ErrDuplicateSeed is returned when two hashers would share a seed.
	ErrDuplicateSeed = errors.New("seedbloom: seeds must be distinct")
)

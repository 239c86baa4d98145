package common

// MaxEntityGroups is the number of distinct entity groups.
const MaxEntityGroups = 32

// EntityGroup tags an entity so views and lights can include or exclude it.
type EntityGroup uint8

// EntityGroupMask is a set of entity groups.
type EntityGroupMask uint32

// EntityGroupMaskAll contains every group.
const EntityGroupMaskAll EntityGroupMask = 0xFFFFFFFF

// Mask returns the mask containing only g.
func (g EntityGroup) Mask() EntityGroupMask {
	return EntityGroupMask(1) << (g % MaxEntityGroups)
}

// Contains reports whether g is part of m.
func (m EntityGroupMask) Contains(g EntityGroup) bool {
	return m&g.Mask() != 0
}

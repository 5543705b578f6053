package types

// EntityID identifies an entity. Identity is the index itself; destroyed ids
// are recycled before the allocator counter advances.
type EntityID uint32

// ComponentID is the stable id assigned to a component type on first
// reference. Ids are monotonically increasing and never reused.
// ComponentID 0 is reserved for the built-in active flag.
type ComponentID int

// SystemID is the stable id assigned to a system type on first reference.
// System records are addressed by this id and never relocated.
type SystemID int

// KindID names one global callback slot shared by all systems.
type KindID int

package digest

import "github.com/xraph/digest/id"

// ID is the primary identifier type for all digest entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

package workflow

import (
	"fmt"
	"sort"
)

// StatusKey identifies a fulfillment pipeline stage.
type StatusKey string

// Pipeline statuses shipped with the default catalog.
const (
	StatusProcessing  StatusKey = "processing"
	StatusOrdered     StatusKey = "ordered"
	StatusShippedToWH StatusKey = "shipped_to_wh"
	StatusArrived     StatusKey = "arrived"
	StatusShipped     StatusKey = "shipped"
	StatusDelivered   StatusKey = "delivered"
	StatusCancelled   StatusKey = "cancelled"
	StatusRefunded    StatusKey = "refunded"
)

// StatusDefinition describes one stage of the fulfillment pipeline.
// Definitions are maintained administratively and are read-only at request
// time; the engine only consumes them.
type StatusDefinition struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Key        StatusKey `json:"key" gorm:"uniqueIndex;not null"`
	Label      string    `json:"label" gorm:"not null"`
	Color      string    `json:"color"`
	Rank       int       `json:"rank" gorm:"column:rank"`
	IsTerminal bool      `json:"is_terminal"`
	IsActive   bool      `json:"is_active" gorm:"default:true"`
}

// TableName returns the database table name.
func (StatusDefinition) TableName() string {
	return "workflow_statuses"
}

// Catalog is an immutable snapshot of the status definitions, indexed for
// lookup by key and id.
type Catalog struct {
	byKey   map[StatusKey]*StatusDefinition
	byID    map[uint]*StatusDefinition
	ordered []*StatusDefinition // active non-terminal, ascending rank
	all     []*StatusDefinition
	initial *StatusDefinition
}

// NewCatalog builds a catalog from the given definitions.
func NewCatalog(defs []StatusDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog requires at least one status definition")
	}

	c := &Catalog{
		byKey: make(map[StatusKey]*StatusDefinition, len(defs)),
		byID:  make(map[uint]*StatusDefinition, len(defs)),
	}
	for i := range defs {
		def := &defs[i]
		if _, dup := c.byKey[def.Key]; dup {
			return nil, fmt.Errorf("duplicate status key %q", def.Key)
		}
		c.byKey[def.Key] = def
		c.byID[def.ID] = def
		c.all = append(c.all, def)
		if def.IsActive && !def.IsTerminal {
			c.ordered = append(c.ordered, def)
		}
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].Rank < c.ordered[j].Rank })
	sort.Slice(c.all, func(i, j int) bool { return c.all[i].Rank < c.all[j].Rank })

	if len(c.ordered) == 0 {
		return nil, fmt.Errorf("catalog has no active non-terminal status")
	}
	c.initial = c.ordered[0]

	return c, nil
}

// Get returns the definition for a key.
func (c *Catalog) Get(key StatusKey) (*StatusDefinition, bool) {
	def, ok := c.byKey[key]
	return def, ok
}

// GetByID returns the definition for a numeric id.
func (c *Catalog) GetByID(id uint) (*StatusDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// Initial returns the lowest-rank active non-terminal status. Items without
// an explicit status are treated as sitting here.
func (c *Catalog) Initial() *StatusDefinition {
	return c.initial
}

// All returns every definition ordered by rank.
func (c *Catalog) All() []*StatusDefinition {
	out := make([]*StatusDefinition, len(c.all))
	copy(out, c.all)
	return out
}

// Resolve returns the definition an item is effectively at: its current
// status when set, the initial status otherwise.
func (c *Catalog) Resolve(key *StatusKey) (*StatusDefinition, bool) {
	if key == nil {
		return c.initial, true
	}
	return c.Get(*key)
}

// DefaultCatalog returns the compiled-in status catalog, used until the
// workflow_statuses table has been populated.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultStatusDefinitions())
	if err != nil {
		// The compiled-in set is validated by tests; this cannot happen.
		panic(err)
	}
	return c
}

// DefaultStatusDefinitions returns the built-in pipeline stages.
func DefaultStatusDefinitions() []StatusDefinition {
	return []StatusDefinition{
		{ID: 1, Key: StatusProcessing, Label: "Processing", Color: "#f0ad4e", Rank: 1, IsActive: true},
		{ID: 2, Key: StatusOrdered, Label: "Ordered", Color: "#5bc0de", Rank: 2, IsActive: true},
		{ID: 3, Key: StatusShippedToWH, Label: "Shipped to Warehouse", Color: "#0275d8", Rank: 3, IsActive: true},
		{ID: 4, Key: StatusArrived, Label: "Arrived at Warehouse", Color: "#6610f2", Rank: 4, IsActive: true},
		{ID: 5, Key: StatusShipped, Label: "Shipped", Color: "#5e35b1", Rank: 5, IsActive: true},
		{ID: 6, Key: StatusDelivered, Label: "Delivered", Color: "#5cb85c", Rank: 6, IsTerminal: true, IsActive: true},
		{ID: 7, Key: StatusCancelled, Label: "Cancelled", Color: "#d9534f", Rank: 90, IsTerminal: true, IsActive: true},
		{ID: 8, Key: StatusRefunded, Label: "Refunded", Color: "#292b2c", Rank: 91, IsTerminal: true, IsActive: true},
	}
}

package constant

// Module registration priority tiers, by convention (lower runs earlier
// within a phase; custom integers are allowed between and beyond these).
const (
	PriorityCritical   = 0
	PriorityHigh       = 100
	PriorityNormal     = 500
	PriorityLow        = 800
	PriorityBackground = 900
)

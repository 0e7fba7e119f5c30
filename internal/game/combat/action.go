package combat

import "fmt"

// ActionKind identifies what the agent wants the character to do next.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionKind int

const (
	ActionUnknown ActionKind = iota // zero value; intentionally invalid
	ActionAttack                    // basic attack on TargetID
	ActionSkill                     // skill on TargetID or Position
	ActionMove                      // walk to Position
	ActionFlee                      // disengage toward Position
	ActionItem                      // use ItemID
)

// String returns the wire name of the ActionKind.
// Postcondition: returns "attack", "skill", "move", "flee", "item", or "unknown".
func (k ActionKind) String() string {
	switch k {
	case ActionAttack:
		return "attack"
	case ActionSkill:
		return "skill"
	case ActionMove:
		return "move"
	case ActionFlee:
		return "flee"
	case ActionItem:
		return "item"
	default:
		return "unknown"
	}
}

// Priority bounds. 1 is the most urgent.
const (
	PriorityHighest = 1
	PriorityLowest  = 10
)

// Action is the single descriptor emitted by one coordinator tick.
type Action struct {
	Kind     ActionKind
	SkillID  string
	Level    int
	TargetID string
	Position *Position
	ItemID   string
	Priority int
	Reason   string
}

// NewAction builds an Action with priority clamped into [1,10].
//
// Postcondition: PriorityHighest <= Priority <= PriorityLowest.
func NewAction(kind ActionKind, priority int, reason string) Action {
	if priority < PriorityHighest {
		priority = PriorityHighest
	}
	if priority > PriorityLowest {
		priority = PriorityLowest
	}
	return Action{Kind: kind, Priority: priority, Reason: reason}
}

// WithTarget returns a copy of a aimed at targetID.
func (a Action) WithTarget(targetID string) Action {
	a.TargetID = targetID
	return a
}

// WithSkill returns a copy of a using skill at level.
func (a Action) WithSkill(skill string, level int) Action {
	a.SkillID = skill
	a.Level = level
	return a
}

// WithPosition returns a copy of a aimed at pos.
func (a Action) WithPosition(pos Position) Action {
	a.Position = &pos
	return a
}

// WithItem returns a copy of a using item.
func (a Action) WithItem(item string) Action {
	a.ItemID = item
	return a
}

// Validate checks the fields each kind requires.
//
// Postcondition: returns nil iff the action is executable as described.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionAttack:
		if a.TargetID == "" {
			return fmt.Errorf("attack action requires a target")
		}
	case ActionSkill:
		if a.SkillID == "" {
			return fmt.Errorf("skill action requires a skill id")
		}
		if a.TargetID == "" && a.Position == nil {
			return fmt.Errorf("skill %q requires a target or a position", a.SkillID)
		}
	case ActionMove, ActionFlee:
		if a.Position == nil {
			return fmt.Errorf("%s action requires a position", a.Kind)
		}
	case ActionItem:
		if a.ItemID == "" {
			return fmt.Errorf("item action requires an item id")
		}
	default:
		return fmt.Errorf("invalid action kind: %s", a.Kind)
	}
	if a.Priority < PriorityHighest || a.Priority > PriorityLowest {
		return fmt.Errorf("priority %d outside [%d, %d]", a.Priority, PriorityHighest, PriorityLowest)
	}
	return nil
}

// String returns a compact human-readable summary for logs.
func (a Action) String() string {
	s := fmt.Sprintf("%s p%d", a.Kind, a.Priority)
	if a.SkillID != "" {
		s += fmt.Sprintf(" %s/%d", a.SkillID, a.Level)
	}
	if a.ItemID != "" {
		s += " item=" + a.ItemID
	}
	if a.TargetID != "" {
		s += " target=" + a.TargetID
	}
	if a.Position != nil {
		s += fmt.Sprintf(" at=(%d,%d)", a.Position.X, a.Position.Y)
	}
	return s
}

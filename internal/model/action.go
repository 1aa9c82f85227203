package model

// IntervalRange is a reschedule range in minutes, both ends inclusive.
type IntervalRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// ActionKind is the static configuration of one schedulable action.
type ActionKind struct {
	Code       string        `yaml:"code" json:"code"`
	Weight     float64       `yaml:"weight" json:"weight"`
	Interval   IntervalRange `yaml:"interval" json:"interval"`
	// Repeatable kinds may follow their own success for the same account.
	Repeatable bool          `yaml:"repeatable" json:"repeatable"`
	Invasive   bool          `yaml:"invasive" json:"invasive"`
	Rest       bool          `yaml:"rest" json:"rest"`
	Active     *bool         `yaml:"active" json:"active,omitempty"`
	QuotaClass string        `yaml:"quotaClass" json:"quotaClass,omitempty"`
}

// IsActive defaults to true when the catalog omits the flag.
func (k ActionKind) IsActive() bool {
	return k.Active == nil || *k.Active
}

func (k ActionKind) QuotaGated() bool {
	return k.QuotaClass != ""
}

type QuotaDefault struct {
	Class       string `yaml:"class" json:"class"`
	MaxUses     int    `yaml:"maxUses" json:"maxUses"`
	WindowHours int    `yaml:"windowHours" json:"windowHours"`
}

type Catalog struct {
	Actions []ActionKind   `yaml:"actions" json:"actions"`
	Quotas  []QuotaDefault `yaml:"quotas" json:"quotas"`
	// Resources seeds the shared pool with known references per resource class.
	Resources map[string][]string `yaml:"resources" json:"resources,omitempty"`
}

func (c *Catalog) Find(code string) (ActionKind, bool) {
	for _, k := range c.Actions {
		if k.Code == code {
			return k, true
		}
	}
	return ActionKind{}, false
}

func (c *Catalog) ActiveActions() []ActionKind {
	active := make([]ActionKind, 0, len(c.Actions))
	for _, k := range c.Actions {
		if k.IsActive() {
			active = append(active, k)
		}
	}
	return active
}

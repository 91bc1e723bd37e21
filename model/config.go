package model

import "time"

// Defaults applied when a node config leaves a field unset.
const (
	DefaultOpenRate      = 20.0
	DefaultClickRate     = 5.0
	DefaultFixedDropRate = 5.0
	DefaultTimeoutHours  = 24
	DefaultWaitDays      = 1
	DefaultDailyTime     = "09:00"
)

// Config is the closed set of per-kind node configurations. Only the types
// in this file implement it.
type Config interface {
	Kind() Kind
	sealed()
}

type TriggerType string

const (
	TriggerSchedule TriggerType = "schedule"
	TriggerAPI      TriggerType = "api"
)

type EntryConfig struct {
	TriggerType       TriggerType `json:"triggerType,omitempty"`
	ScheduleFrequency string      `json:"scheduleFrequency,omitempty"`
	ScheduleSegment   string      `json:"scheduleSegment,omitempty"`
	ScheduleTime      string      `json:"scheduleTime,omitempty"`
}

// Trigger returns the trigger type, schedule when unset.
func (c EntryConfig) Trigger() TriggerType {
	if c.TriggerType == "" {
		return TriggerSchedule
	}
	return c.TriggerType
}

type BranchType string

const (
	BranchSent  BranchType = "sent"
	BranchOpen  BranchType = "open"
	BranchClick BranchType = "click"
)

type SendMode string

const (
	SendImmediate SendMode = "immediate"
	SendScheduled SendMode = "scheduled"
)

// EmailSimulation holds the dry-run rates, all in percent.
type EmailSimulation struct {
	OpenRate      *float64 `json:"openRate,omitempty"`
	ClickRate     *float64 `json:"clickRate,omitempty"`
	FixedDropRate *float64 `json:"fixedDropRate,omitempty"`
}

type EmailConfig struct {
	Subject    string          `json:"emailSubject,omitempty"`
	Preheader  string          `json:"emailPreheader,omitempty"`
	SenderName string          `json:"emailSenderName,omitempty"`
	TemplateID string          `json:"emailTemplateId,omitempty"`
	SendMode   SendMode        `json:"sendMode,omitempty"`
	SendTime   string          `json:"sendTime,omitempty"`
	BranchType BranchType      `json:"branchType,omitempty"`
	Timeout    *float64        `json:"timeout,omitempty"` // hours
	Simulation EmailSimulation `json:"simulation,omitempty"`
}

func (c EmailConfig) Branch() BranchType {
	if c.BranchType == "" {
		return BranchSent
	}
	return c.BranchType
}

func (c EmailConfig) Scheduled() bool { return c.SendMode == SendScheduled }

func (c EmailConfig) SendTimeOrDefault() string {
	if c.SendTime == "" {
		return DefaultDailyTime
	}
	return c.SendTime
}

// TimeoutDuration is how long open/click branches wait before the else path.
func (c EmailConfig) TimeoutDuration() time.Duration {
	h := float64(DefaultTimeoutHours)
	if c.Timeout != nil && *c.Timeout >= 0 {
		h = *c.Timeout
	}
	return time.Duration(h * float64(time.Hour))
}

func (c EmailConfig) OpenRate() float64 {
	return pct(c.Simulation.OpenRate, DefaultOpenRate)
}

func (c EmailConfig) ClickRate() float64 {
	return pct(c.Simulation.ClickRate, DefaultClickRate)
}

func (c EmailConfig) FixedDropRate() float64 {
	return pct(c.Simulation.FixedDropRate, DefaultFixedDropRate)
}

func pct(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	switch {
	case *v < 0:
		return 0
	case *v > 100:
		return 100
	}
	return *v
}

type WaitMode string

const (
	WaitUntilTime WaitMode = "until-time"
	WaitDuration  WaitMode = "duration"
)

type WaitUnit string

const (
	UnitMinutes WaitUnit = "minutes"
	UnitHours   WaitUnit = "hours"
	UnitDays    WaitUnit = "days"
	UnitWeeks   WaitUnit = "weeks"
)

// Duration converts one unit to a duration. Singular and plural spellings
// are both accepted; unknown units count as days.
func (u WaitUnit) Duration() time.Duration {
	switch u {
	case UnitMinutes, "minute":
		return time.Minute
	case UnitHours, "hour":
		return time.Hour
	case UnitWeeks, "week":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

type WaitConfig struct {
	Mode          WaitMode `json:"waitMode,omitempty"`
	WaitDays      *int     `json:"waitDays,omitempty"`
	WaitUntilTime string   `json:"waitUntilTime,omitempty"`
	Amount        int      `json:"waitDuration,omitempty"`
	Unit          WaitUnit `json:"waitUnit,omitempty"`
}

// Relative reports whether the wait is a plain duration rather than a
// time of day.
func (c WaitConfig) Relative() bool { return c.Mode == WaitDuration }

func (c WaitConfig) Days() int {
	if c.WaitDays == nil || *c.WaitDays < 0 {
		return DefaultWaitDays
	}
	return *c.WaitDays
}

func (c WaitConfig) UntilTime() string {
	if c.WaitUntilTime == "" {
		return DefaultDailyTime
	}
	return c.WaitUntilTime
}

func (c WaitConfig) Duration() time.Duration {
	if c.Amount <= 0 {
		return 0
	}
	return time.Duration(c.Amount) * c.Unit.Duration()
}

type SplitCondition struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type SplitBranch struct {
	ID         string           `json:"id"`
	Label      string           `json:"label"`
	Ratio      *float64         `json:"ratio,omitempty"`
	Conditions []SplitCondition `json:"conditions,omitempty"`
}

// SplitConfig is informational: the engine always splits evenly across
// connected edges.
type SplitConfig struct {
	SplitType  string        `json:"splitType,omitempty"`
	SplitRatio []float64     `json:"splitRatio,omitempty"`
	Branches   []SplitBranch `json:"branches,omitempty"`
}

type EndConfig struct {
	IsGoal bool `json:"isGoal,omitempty"`
}

func (EntryConfig) Kind() Kind { return KindEntry }
func (EmailConfig) Kind() Kind { return KindEmail }
func (WaitConfig) Kind() Kind  { return KindWait }
func (SplitConfig) Kind() Kind { return KindSplit }
func (EndConfig) Kind() Kind   { return KindEnd }

func (EntryConfig) sealed() {}
func (EmailConfig) sealed() {}
func (WaitConfig) sealed()  {}
func (SplitConfig) sealed() {}
func (EndConfig) sealed()   {}

// EmptyConfig returns the zero config variant for k.
func EmptyConfig(k Kind) (Config, bool) {
	switch k {
	case KindEntry:
		return EntryConfig{}, true
	case KindEmail:
		return EmailConfig{}, true
	case KindWait:
		return WaitConfig{}, true
	case KindSplit:
		return SplitConfig{}, true
	case KindEnd:
		return EndConfig{}, true
	}
	return nil, false
}

package models

// WeightUnit is the unit weights are displayed in.
type WeightUnit string

const (
	UnitKg WeightUnit = "kg"
	UnitLb WeightUnit = "lb"
)

// Settings is the per-user preference bag.
type Settings struct {
	WeightUnit       WeightUnit `json:"weight_unit" validate:"oneof=kg lb"`
	RestTimerDefault int        `json:"rest_timer_default" validate:"min=0,max=3600"`
	ShowRestTimer    bool       `json:"show_rest_timer"`
}

// DefaultSettings returns the settings used when a user has none stored.
func DefaultSettings() Settings {
	return Settings{
		WeightUnit:       UnitKg,
		RestTimerDefault: 90,
		ShowRestTimer:    true,
	}
}

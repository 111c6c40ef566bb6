package domain

import "time"

// MaxMinDuration caps Filter.MinDuration at one day, in minutes.
const MaxMinDuration = 24 * 60

// Filter decides which videos are shown. MinDuration is in minutes.
type Filter struct {
	ExcludeShorts   bool `json:"excludeShorts"`
	ExcludeVertical bool `json:"excludeVertical"`
	MinDuration     int  `json:"minDuration" validate:"gte=0,lte=1440"`
}

func DefaultFilter() Filter {
	return Filter{ExcludeShorts: true}
}

// FilterPatch is a partial Filter as accepted from clients; nil fields keep
// the current value.
type FilterPatch struct {
	ExcludeShorts   *bool `json:"excludeShorts,omitempty"`
	ExcludeVertical *bool `json:"excludeVertical,omitempty"`
	MinDuration     *int  `json:"minDuration,omitempty" validate:"omitempty,gte=0,lte=1440"`
}

// Merge returns f with every non-nil field of p applied.
func (f Filter) Merge(p FilterPatch) Filter {
	if p.ExcludeShorts != nil {
		f.ExcludeShorts = *p.ExcludeShorts
	}
	if p.ExcludeVertical != nil {
		f.ExcludeVertical = *p.ExcludeVertical
	}
	if p.MinDuration != nil {
		f.MinDuration = *p.MinDuration
	}
	return f
}

// UserPreference is the stored Filter of one caller. The empty UserID holds
// the shared anonymous preference.
type UserPreference struct {
	UserID string `json:"userId,omitempty"`
	Filter
	UpdatedAt time.Time `json:"updatedAt"`
}

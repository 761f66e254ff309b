package models

// DailyLog is the derived view of all five prayers for one date
type DailyLog struct {
	Date     string            `json:"date"`
	Statuses map[Prayer]Status `json:"statuses"`
	Modes    map[Prayer]Mode   `json:"modes,omitempty"`
}

// NewDailyLog returns a log for date with every prayer not marked
func NewDailyLog(date string) DailyLog {
	log := DailyLog{
		Date:     date,
		Statuses: make(map[Prayer]Status, len(Prayers)),
		Modes:    make(map[Prayer]Mode),
	}
	for _, p := range Prayers {
		log.Statuses[p] = StatusNotMarked
	}
	return log
}

// Status returns the status of p, treating an absent prayer as not marked
func (d DailyLog) Status(p Prayer) Status {
	if s, ok := d.Statuses[p]; ok && s != "" {
		return s
	}
	return StatusNotMarked
}

// Complete reports whether all five prayers were performed (on time or late)
func (d DailyLog) Complete() bool {
	for _, p := range Prayers {
		if !d.Status(p).Completed() {
			return false
		}
	}
	return true
}

// MarkedCount returns how many prayers have any recorded status
func (d DailyLog) MarkedCount() int {
	n := 0
	for _, p := range Prayers {
		if d.Status(p).Marked() {
			n++
		}
	}
	return n
}

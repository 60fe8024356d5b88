package model

// Timeframe is the granularity of the period a commitment is bound to.
// Timeframes form a strict containment hierarchy: yearly > monthly >
// weekly > daily.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeYearly  Timeframe = "yearly"
)

// Timeframes lists all timeframes in ascending rank order.
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeYearly}
}

// Rank returns the position of the timeframe in the containment
// hierarchy; a higher rank contains a lower one. Unknown timeframes
// rank -1.
func (tf Timeframe) Rank() int {
	switch tf {
	case TimeframeDaily:
		return 0
	case TimeframeWeekly:
		return 1
	case TimeframeMonthly:
		return 2
	case TimeframeYearly:
		return 3
	}
	return -1
}

func (tf Timeframe) Valid() bool {
	return tf.Rank() >= 0
}

// Section is a named commitment bucket with an optional occupancy cap
// per timeframe.
type Section string

const (
	SectionPrimary  Section = "primary"
	SectionOverflow Section = "overflow"
)

// Sections lists the closed set of sections in display order.
func Sections() []Section {
	return []Section{SectionPrimary, SectionOverflow}
}

func (s Section) Valid() bool {
	return s == SectionPrimary || s == SectionOverflow
}

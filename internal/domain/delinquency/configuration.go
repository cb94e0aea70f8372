package delinquency

// Configuration is one delinquency bucket: loans DaysFrom..DaysTo days past due
// (both inclusive) fall into BucketID.
type Configuration struct {
	ID       int64
	BucketID int64
	Name     string
	DaysFrom int
	DaysTo   int
}

// Contains reports whether days falls inside the bucket range.
func (c Configuration) Contains(days int) bool {
	return days >= c.DaysFrom && days <= c.DaysTo
}

// Table is the full bucket configuration, loaded once and searched in memory.
type Table []Configuration

// Find returns the first bucket whose range contains days.
func (t Table) Find(days int) (Configuration, bool) {
	for _, c := range t {
		if c.Contains(days) {
			return c, true
		}
	}
	return Configuration{}, false
}

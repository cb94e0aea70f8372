package loan

// Status is the lifecycle state of a loan. Only StatusOpen loans accrue interest.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusClosed     Status = "CLOSED"
	StatusWrittenOff Status = "WRITTEN_OFF"
)

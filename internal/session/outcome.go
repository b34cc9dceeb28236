package session

import "strconv"

// StatusLine renders the primary line and its status ("N Line – DELAYS").
func (o Outcome) StatusLine() string {
	return o.PrimaryLine + " Line – " + o.ServiceStatus
}

// Verdict is the one-line arrival summary.
func (o Outcome) Verdict() string {
	switch {
	case o.Late:
		return "You may be " + strconv.Itoa(o.Offset) + " minutes late."
	case o.Offset > 0:
		return "You will be " + strconv.Itoa(o.Offset) + " minutes early."
	default:
		return "You will arrive on time."
	}
}

// Prompt is the question asked before drafting a late notice.
func (o Outcome) Prompt() string {
	return "You may be " + strconv.Itoa(o.Offset) + " minutes late. Would you like to notify your professor?"
}

package lateness

import "strconv"

// DraftEmail fills the late-notice template.
func DraftEmail(professor, student string, minutesLate int) string {
	return "Hello " + professor + ",\n\n" +
		"I may arrive a few minutes late to class today due to subway delays.\n" +
		"Based on my commute, I might be about " + strconv.Itoa(minutesLate) + " minutes late.\n\n" +
		"Thank you for your understanding.\n\n" +
		"Best regards,\n" +
		student
}

package shared

// ConfirmationWord must be typed verbatim before a delete is sent.
const ConfirmationWord = "yes"

// ConfirmationField is the form field carrying the typed confirmation.
const ConfirmationField = "confirm"

// Confirmed reports whether input is exactly the confirmation word.
func Confirmed(input string) bool {
	return input == ConfirmationWord
}

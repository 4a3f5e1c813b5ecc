package ports

// Clipboard is the OS clipboard, an external collaborator. ReadText
// returns the current plain-text content verbatim (callers trim).
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

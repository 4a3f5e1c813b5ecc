package clipboard

import "github.com/atotto/clipboard"

// System is the OS clipboard behind ports.Clipboard.
type System struct{}

func (System) ReadText() (string, error) {
	return clipboard.ReadAll()
}

func (System) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

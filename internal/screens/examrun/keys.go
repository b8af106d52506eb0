package examrun

import (
	"charm.land/bubbles/v2/key"

	"github.com/belmiro-kunga/certquest/internal/ui/layout"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Prev    key.Binding
	Next    key.Binding
	Pick    key.Binding
	Record  key.Binding
	Submit  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑↓", "Choose")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "Choose")),
		Prev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←→", "Question")),
		Next:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "Next question")),
		Pick:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "Pick")),
		Record:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Answer")),
		Submit:  key.NewBinding(key.WithKeys("s"), key.WithHelp("S", "Submit")),
		Confirm: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("Y", "Submit now")),
		Cancel:  key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("N", "Keep going")),
	}
}

func hints(bindings ...key.Binding) []layout.KeyHint {
	out := make([]layout.KeyHint, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, layout.KeyHint{Key: h.Key, Description: h.Desc})
	}
	return out
}

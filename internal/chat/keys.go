package chat

// KeyEvent is a key press in the message box
type KeyEvent struct {
	Key   string
	Shift bool
}

type KeyAction int

const (
	// KeyPassThrough leaves the key to its default effect
	KeyPassThrough KeyAction = iota
	// KeySend sends the draft and suppresses the default effect
	KeySend
	// KeyNewline inserts a literal newline
	KeyNewline
)

// InterpretKey maps Enter to send and Shift+Enter to newline
func InterpretKey(ev KeyEvent) KeyAction {
	if ev.Key != "Enter" {
		return KeyPassThrough
	}
	if ev.Shift {
		return KeyNewline
	}
	return KeySend
}

package ir

import "log"

// Button is a logical key on the remote. Its value is the NEC command byte
// the remote sends for that key.
type Button byte

const (
	Button0         Button = 0x68
	Button1         Button = 0x30
	Button2         Button = 0x18
	Button3         Button = 0x7A
	Button4         Button = 0x10
	Button5         Button = 0x38
	Button6         Button = 0x5A
	Button7         Button = 0x42
	Button8         Button = 0x4A
	Button9         Button = 0x52
	ButtonPlus      Button = 0x90
	ButtonMinus     Button = 0xA8
	ButtonEQ        Button = 0xE0
	ButtonUSD       Button = 0xB0
	ButtonCycle     Button = 0x98
	ButtonPlayPause Button = 0x22
	ButtonBackward  Button = 0x02
	ButtonForward   Button = 0xC2
	ButtonPower     Button = 0xA2
	ButtonMute      Button = 0xE2
	ButtonMode      Button = 0x62

	// UnknownOrError is returned for command bytes with no key.
	UnknownOrError Button = 0xFF
)

var buttonNames = map[Button]string{
	Button0:         "0",
	Button1:         "1",
	Button2:         "2",
	Button3:         "3",
	Button4:         "4",
	Button5:         "5",
	Button6:         "6",
	Button7:         "7",
	Button8:         "8",
	Button9:         "9",
	ButtonPlus:      "PLUS",
	ButtonMinus:     "MINUS",
	ButtonEQ:        "EQ",
	ButtonUSD:       "U/SD",
	ButtonCycle:     "CYCLE",
	ButtonPlayPause: "PLAY/PAUSE",
	ButtonBackward:  "BACKWARD",
	ButtonForward:   "FORWARD",
	ButtonPower:     "POWER",
	ButtonMute:      "MUTE",
	ButtonMode:      "MODE",
	UnknownOrError:  "UNKNOWN/ERROR",
}

// ButtonFor maps a decoded command byte to its key.
func ButtonFor(command byte) Button {
	b := Button(command)
	if b == UnknownOrError {
		return UnknownOrError
	}
	if _, ok := buttonNames[b]; !ok {
		return UnknownOrError
	}
	return b
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "UNMAPPED"
}

// Handler receives mapped key presses from the decoder.
type Handler interface {
	OnButtonPressed(Button)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Button)

// OnButtonPressed calls f(b).
func (f HandlerFunc) OnButtonPressed(b Button) { f(b) }

// Actions dispatches the keys the node reacts to. Nil actions are skipped.
type Actions struct {
	ReadNow      func() // FORWARD
	CycleDisplay func() // CYCLE
	PlaySound    func() // EQ
}

// OnButtonPressed runs the action bound to b. Keys without an action are
// logged and otherwise ignored.
func (a Actions) OnButtonPressed(b Button) {
	var action func()
	switch b {
	case ButtonForward:
		action = a.ReadNow
	case ButtonCycle:
		action = a.CycleDisplay
	case ButtonEQ:
		action = a.PlaySound
	}
	if action == nil {
		log.Printf("ir: no action for button %s", b)
		return
	}
	action()
}

package ir

// NEC timing, in microseconds.
const (
	StartPulse = 9000
	StartSpace = 4500
	BitPulse   = 560
	ZeroSpace  = 560
	OneSpace   = 1690

	// TolerancePercent is the accepted deviation from each nominal width.
	TolerancePercent = 30

	frameBits = 32

	// A data burst is the start pair plus one pulse/space pair per bit.
	dataSamples = 2 + 2*frameBits

	minDataLen   = 50
	maxRepeatLen = 10
)

// Kind classifies a decoded burst.
type Kind int

const (
	KindInvalid Kind = iota
	KindData
	KindRepeat
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindRepeat:
		return "REPEAT"
	default:
		return "INVALID"
	}
}

// Frame is the result of decoding one burst. Address and Command are only
// meaningful for KindData.
type Frame struct {
	Kind    Kind
	Address byte
	Command byte
}

func match(value, target uint32) bool {
	delta := target * TolerancePercent / 100
	return value >= target-delta && value <= target+delta
}

// Decode classifies a captured burst of inter-edge intervals.
//
// Bursts longer than 50 samples must carry a full NEC data frame whose
// address and command bytes are each followed by their bitwise inverse.
// Bursts of 1 to 9 samples are repeat codes. Anything else is invalid.
func Decode(buf []uint32) Frame {
	n := len(buf)
	switch {
	case n > minDataLen:
		return decodeData(buf)
	case n > 0 && n < maxRepeatLen:
		return Frame{Kind: KindRepeat}
	default:
		return Frame{Kind: KindInvalid}
	}
}

func decodeData(buf []uint32) Frame {
	if len(buf) < dataSamples {
		return Frame{Kind: KindInvalid}
	}
	if !match(buf[0], StartPulse) || !match(buf[1], StartSpace) {
		return Frame{Kind: KindInvalid}
	}

	var word uint32
	for i := 0; i < frameBits; i++ {
		pulse := buf[2*i+2]
		space := buf[2*i+3]
		if !match(pulse, BitPulse) {
			return Frame{Kind: KindInvalid}
		}
		word <<= 1
		switch {
		case match(space, OneSpace):
			word |= 1
		case match(space, ZeroSpace):
		default:
			return Frame{Kind: KindInvalid}
		}
	}

	addr := byte(word >> 24)
	invAddr := byte(word >> 16)
	cmd := byte(word >> 8)
	invCmd := byte(word)
	if addr^invAddr != 0xFF || cmd^invCmd != 0xFF {
		return Frame{Kind: KindInvalid}
	}
	return Frame{Kind: KindData, Address: addr, Command: cmd}
}

// Encode returns the nominal intervals of a data frame for address and
// command, in the order Decode expects them. It is used to replay frames
// through the capture path.
func Encode(address, command byte) []uint32 {
	word := uint32(address)<<24 | uint32(^address)<<16 | uint32(command)<<8 | uint32(^command)

	out := make([]uint32, 0, dataSamples+1)
	out = append(out, StartPulse, StartSpace)
	for bit := frameBits - 1; bit >= 0; bit-- {
		out = append(out, BitPulse)
		if (word>>bit)&1 == 1 {
			out = append(out, OneSpace)
		} else {
			out = append(out, ZeroSpace)
		}
	}
	// Trailing stop pulse.
	return append(out, BitPulse)
}

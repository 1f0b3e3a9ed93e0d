package telnet

import "io"

// Telnet command bytes (RFC 854).
const (
	se   byte = 240
	sb   byte = 250
	will byte = 251
	wont byte = 252
	do   byte = 253
	dont byte = 254
	iac  byte = 255
)

type filterState int

const (
	stData filterState = iota
	stIAC
	stOption
	stSub
	stSubIAC
)

// filter strips telnet commands from src and answers option negotiation
// through reply: every DO is refused with WONT and every WILL with DONT.
type filter struct {
	src   io.Reader
	reply func([]byte) error
	state filterState
	verb  byte
}

func (f *filter) Read(p []byte) (int, error) {
	for {
		n, err := f.src.Read(p)
		kept := f.strip(p[:n])
		if kept > 0 || err != nil {
			return kept, err
		}
	}
}

// strip filters b in place and returns the number of data bytes kept.
func (f *filter) strip(b []byte) int {
	n := 0
	for _, c := range b {
		switch f.state {
		case stData:
			if c == iac {
				f.state = stIAC
				continue
			}
			b[n] = c
			n++
		case stIAC:
			switch c {
			case iac:
				b[n] = iac
				n++
				f.state = stData
			case do, dont, will, wont:
				f.verb = c
				f.state = stOption
			case sb:
				f.state = stSub
			default:
				f.state = stData // NOP, GA and friends
			}
		case stOption:
			f.refuse(f.verb, c)
			f.state = stData
		case stSub:
			if c == iac {
				f.state = stSubIAC
			}
		case stSubIAC:
			if c == se {
				f.state = stData
			} else {
				f.state = stSub
			}
		}
	}
	return n
}

func (f *filter) refuse(verb, opt byte) {
	var answer byte
	switch verb {
	case do:
		answer = wont
	case will:
		answer = dont
	default:
		return
	}
	_ = f.reply([]byte{iac, answer, opt})
}

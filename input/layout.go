package input

const (
	keyLShift   = 42
	keyRShift   = 54
	keyCapsLock = 58
)

type keyChars struct{ plain, shifted rune }

// usLayout maps Linux key codes to US QWERTY characters.
var usLayout = map[uint16]keyChars{
	2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'}, 6: {'5', '%'},
	7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'}, 10: {'9', '('}, 11: {'0', ')'},
	12: {'-', '_'}, 13: {'=', '+'},
	16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'}, 20: {'t', 'T'},
	21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'}, 24: {'o', 'O'}, 25: {'p', 'P'},
	26: {'[', '{'}, 27: {']', '}'},
	30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'}, 34: {'g', 'G'},
	35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'}, 38: {'l', 'L'},
	39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'}, 43: {'\\', '|'},
	44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'}, 48: {'b', 'B'},
	49: {'n', 'N'}, 50: {'m', 'M'}, 51: {',', '<'}, 52: {'.', '>'}, 53: {'/', '?'},
	57: {' ', ' '},
}

// Layout tracks modifier state and translates key codes to characters.
type Layout struct {
	lshift, rshift bool
	caps           bool
}

// Update feeds a key press or release so modifiers stay current.
func (l *Layout) Update(code uint16, pressed bool) {
	switch code {
	case keyLShift:
		l.lshift = pressed
	case keyRShift:
		l.rshift = pressed
	case keyCapsLock:
		if pressed {
			l.caps = !l.caps
		}
	}
}

// Translate returns the character code produces under the current modifiers,
// or 0 for keys without one.
func (l *Layout) Translate(code uint16) rune {
	c, ok := usLayout[code]
	if !ok {
		return 0
	}
	shift := l.lshift || l.rshift
	if l.caps && c.plain >= 'a' && c.plain <= 'z' {
		shift = !shift
	}
	if shift {
		return c.shifted
	}
	return c.plain
}

// Typeable reports whether some key, with or without Shift, produces r.
func Typeable(r rune) bool {
	for _, c := range usLayout {
		if c.plain == r || c.shifted == r {
			return true
		}
	}
	return false
}

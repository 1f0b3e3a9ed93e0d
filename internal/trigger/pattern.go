package trigger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// compilePattern compiles a trigger pattern. Named groups, written either
// (?P<name>...) or (?<name>...), are turned into plain groups first so that
// every capturing group is numbered by the position of its opening
// parenthesis, which is what $1..$n refer to. Named backreferences become
// numbered ones.
func compilePattern(src string) (*regexp2.Regexp, error) {
	plain, err := numberGroups(src)
	if err != nil {
		return nil, err
	}
	re, err := regexp2.Compile(plain, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

// numberGroups rewrites named groups and named backreferences in src.
func numberGroups(src string) (string, error) {
	var b strings.Builder
	names := make(map[string]int)
	groups := 0
	inClass := false

	backref := func(name string) error {
		n, ok := names[name]
		if !ok {
			return fmt.Errorf("unknown group name %q", name)
		}
		b.WriteString(`(?:\` + strconv.Itoa(n) + `)`)
		return nil
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\':
			if !inClass && (strings.HasPrefix(src[i:], `\k<`) || strings.HasPrefix(src[i:], `\k'`)) {
				end := strings.IndexByte(src[i+3:], closer(src[i+2]))
				if end >= 0 {
					if err := backref(src[i+3 : i+3+end]); err != nil {
						return "", err
					}
					i += 3 + end
					continue
				}
			}
			b.WriteByte(c)
			if i+1 < len(src) {
				i++
				b.WriteByte(src[i])
			}

		case inClass:
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)

		case c == '[':
			inClass = true
			b.WriteByte(c)
			if i+1 < len(src) && src[i+1] == '^' {
				i++
				b.WriteByte('^')
			}
			if i+1 < len(src) && src[i+1] == ']' {
				i++
				b.WriteByte(']')
			}

		case c == '(':
			rest := src[i:]
			var nameStart int
			switch {
			case strings.HasPrefix(rest, "(?P="):
				end := strings.IndexByte(rest, ')')
				if end < 0 {
					return "", fmt.Errorf("unterminated backreference at offset %d", i)
				}
				if err := backref(rest[4:end]); err != nil {
					return "", err
				}
				i += end
				continue
			case strings.HasPrefix(rest, "(?P<"):
				nameStart = 4
			case strings.HasPrefix(rest, "(?<") && len(rest) > 3 && rest[3] != '=' && rest[3] != '!',
				strings.HasPrefix(rest, "(?'"):
				nameStart = 3
			case strings.HasPrefix(rest, "(?#"):
				end := strings.IndexByte(rest, ')')
				if end < 0 {
					end = len(rest) - 1
				}
				b.WriteString(rest[:end+1])
				i += end
				continue
			case strings.HasPrefix(rest, "(?"):
				b.WriteByte(c) // non-capturing, lookaround or inline flags
				continue
			default:
				groups++
				b.WriteByte(c)
				continue
			}
			end := strings.IndexByte(rest[nameStart:], closer(rest[nameStart-1]))
			if end < 0 {
				return "", fmt.Errorf("unterminated group name at offset %d", i)
			}
			name := rest[nameStart : nameStart+end]
			if name == "" {
				return "", fmt.Errorf("empty group name at offset %d", i)
			}
			if _, dup := names[name]; dup {
				return "", fmt.Errorf("duplicate group name %q", name)
			}
			groups++
			names[name] = groups
			b.WriteByte('(')
			i += nameStart + end

		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func closer(open byte) byte {
	if open == '\'' {
		return '\''
	}
	return '>'
}

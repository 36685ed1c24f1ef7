package sosifile

import (
	"strconv"
	"strings"
)

// node is one dotted line of a SOSI file together with its continuation
// lines and the deeper-dotted lines below it.
type node struct {
	level    int
	name     string
	value    string
	children []*node
}

// child returns the first direct child called name.
func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// parse splits decoded SOSI text into its top-level groups (.HODE, .PUNKT,
// .KURVE, ...). Text before the first group is ignored.
func parse(text string) []*node {
	var (
		groups []*node
		stack  []*node
		last   *node
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(stripComment(strings.TrimRight(raw, "\r")))
		if line == "" {
			continue
		}

		if line[0] != '.' {
			if last != nil {
				last.value = joinValue(last.value, line)
			}
			continue
		}

		level := 0
		for level < len(line) && line[level] == '.' {
			level++
		}
		name, value, _ := strings.Cut(line[level:], " ")
		n := &node{level: level, name: name, value: strings.TrimSpace(value)}
		last = n

		if level == 1 {
			groups = append(groups, n)
			stack = append(stack[:0], n)
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			// Attribute line before any group.
			continue
		}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, n)
		stack = append(stack, n)
	}

	return groups
}

// stripComment removes a '!' comment unless it is inside quotes.
func stripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '!':
			return line[:i]
		}
	}
	return line
}

func joinValue(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

// unquote strips one pair of surrounding quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// groupID parses the serial number of a group line such as "12:".
func groupID(value string) (int, bool) {
	field, _, _ := strings.Cut(value, " ")
	id, err := strconv.Atoi(strings.TrimSuffix(field, ":"))
	if err != nil {
		return 0, false
	}
	return id, true
}

// numbers parses the numeric tokens of a value. Inline dotted keywords such
// as "...KP 1" are skipped along with their argument.
func numbers(value string) ([]float64, error) {
	fields := strings.Fields(value)
	out := make([]float64, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], ".") {
			i++
			continue
		}
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

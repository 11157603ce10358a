package player

// ParseArgs splits a string of command-line arguments, respecting single and double quotes.  A quote only closes
// the section opened by the same quote character.
func ParseArgs(argsString string) []string {
	var args []string
	var quote rune
	current := ""
	hasToken := false

	for _, r := range argsString {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			hasToken = true
		case quote == 0 && (r == ' ' || r == '\t'):
			if hasToken {
				args = append(args, current)
				current = ""
				hasToken = false
			}
		default:
			current += string(r)
			hasToken = true
		}
	}

	if hasToken {
		args = append(args, current)
	}

	return args
}

package command

// tokenize splits a command line into tokens: punctuation ( ) , = * are
// their own tokens; double-quoted strings are kept whole (quotes
// included); an identifier immediately followed by a single-quoted run
// (e.g. x'deadbeef') is kept as one token so literal parsing can see the
// prefix. This is deliberately small — just enough to drive the dispatch
// surface original_source's src/net/commands/*.cpp shows, not a general
// SQL tokenizer.
func tokenize(line string) []string {
	var tokens []string
	i, n := 0, len(line)

	for i < n {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '(' || c == ')' || c == ',' || c == '=' || c == '*':
			tokens = append(tokens, string(c))
			i++

		case c == '"':
			j := i + 1
			for j < n && line[j] != '"' {
				j++
			}
			if j < n {
				j++ // include closing quote
			}
			tokens = append(tokens, line[i:j])
			i = j

		default:
			j := i
			for j < n && isIdentChar(line[j]) {
				j++
			}
			if j == i {
				i++ // unrecognized byte, skip it
				continue
			}
			tok := line[i:j]
			i = j
			if i < n && line[i] == '\'' {
				k := i + 1
				for k < n && line[k] != '\'' {
					k++
				}
				if k < n {
					k++
				}
				tok += line[i:k]
				i = k
			}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func isIdentChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-':
		return true
	}
	return false
}

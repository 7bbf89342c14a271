package rendering

import "strings"

// EscapeLaTeX escapes special LaTeX characters in text
// Special characters: \ { } $ & % # ^ _ ~
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for _, r := range text {
		switch r {
		case '\\':
			result.WriteString(`\textbackslash{}`)
		case '{', '}', '$', '&', '%', '#', '_':
			result.WriteByte('\\')
			result.WriteRune(r)
		case '^':
			result.WriteString(`\textasciicircum{}`)
		case '~':
			result.WriteString(`\textasciitilde{}`)
		case '<':
			result.WriteString(`\textless{}`)
		case '>':
			result.WriteString(`\textgreater{}`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// EscapeLaTeXMultiline escapes text like EscapeLaTeX and keeps its line structure:
// single newlines become forced line breaks and blank lines start a new paragraph.
func EscapeLaTeXMultiline(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")

	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines := strings.Split(p, "\n")
		for i, line := range lines {
			lines[i] = EscapeLaTeX(strings.TrimSpace(line))
		}
		out = append(out, strings.Join(lines, `\\`+"\n"))
	}
	return strings.Join(out, "\n\n")
}

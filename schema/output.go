package schema

// StderrMarker prefixes rendered lines that originated from stderr.
const StderrMarker = "\x1f"

// SystemMarker prefixes rendered diagnostic lines.
const SystemMarker = "\x1e"

// CommandMarker prefixes rendered command echo lines.
const CommandMarker = "\x1a"

// FooterMarker prefixes rendered run footer lines.
const FooterMarker = "\x1d"

// StripMarker removes a leading line marker, if any.
func StripMarker(line string) string {
	if line == "" {
		return line
	}
	switch line[:1] {
	case StderrMarker, SystemMarker, CommandMarker, FooterMarker:
		return line[1:]
	}
	return line
}

package smtp

import "strings"

// command is the typed result of parsing one command line. Each concrete
// type carries only the data that line shape provides.
type command interface {
	isCommand()
}

type heloCommand struct{ Domain string }
type mailCommand struct{ ReversePath string }
type rcptCommand struct {
	ForwardPath  string
	SourceRouted bool
}
type dataCommand struct{}
type rsetCommand struct{}
type noopCommand struct{}
type quitCommand struct{}

func (heloCommand) isCommand() {}
func (mailCommand) isCommand() {}
func (rcptCommand) isCommand() {}
func (dataCommand) isCommand() {}
func (rsetCommand) isCommand() {}
func (noopCommand) isCommand() {}
func (quitCommand) isCommand() {}

const (
	maxDomainLen = 64
	maxPathLen   = 256
)

// parseCommand maps one CRLF-stripped command line to a typed command, or
// to the reply code the engine should send back unchanged. A zero
// StatusCode means parsing succeeded.
func parseCommand(line string) (command, StatusCode) {
	token, rest, ok := splitVerb(line)
	if !ok {
		return nil, codeSyntaxError
	}

	switch strings.ToUpper(token) {
	case "HELO", "EHLO":
		return parseHELO(rest)
	case "MAIL":
		return parseMAIL(rest)
	case "RCPT":
		return parseRCPT(rest)
	case "DATA":
		return parseZeroArg(rest, dataCommand{})
	case "RSET":
		return parseZeroArg(rest, rsetCommand{})
	case "NOOP":
		return parseZeroArg(rest, noopCommand{})
	case "QUIT":
		return parseZeroArg(rest, quitCommand{})
	default:
		return nil, codeNotImplemented
	}
}

// splitVerb isolates the command code: the text before the first space on
// the line. It must be exactly four ASCII letters; anything else
// violates the command-code grammar outright.
func splitVerb(line string) (token, rest string, ok bool) {
	if idx := strings.IndexByte(line, ' '); idx != -1 {
		token, rest = line[:idx], line[idx:]
	} else {
		token = line
	}
	if len(token) != 4 || !isAlpha(token) {
		return "", "", false
	}
	return token, rest, true
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func parseZeroArg(rest string, cmd command) (command, StatusCode) {
	if strings.TrimSpace(rest) != "" {
		return nil, codeSyntaxErrorArg
	}
	return cmd, 0
}

func parseHELO(rest string) (command, StatusCode) {
	domain := strings.TrimLeft(rest, " ")
	if domain == "" {
		return nil, codeSyntaxErrorArg
	}
	if strings.ContainsAny(domain, " \t") || len(domain) > maxDomainLen {
		return nil, codeSyntaxErrorArg
	}
	return heloCommand{Domain: domain}, 0
}

func parseMAIL(rest string) (command, StatusCode) {
	arg := strings.TrimLeft(rest, " ")
	if len(arg) < 5 || !strings.EqualFold(arg[:5], "from:") {
		return nil, codeSyntaxErrorArg
	}
	path, ok := parsePath(strings.TrimLeft(arg[5:], " "))
	if !ok {
		return nil, codeSyntaxErrorArg
	}
	return mailCommand{ReversePath: path}, 0
}

func parseRCPT(rest string) (command, StatusCode) {
	arg := strings.TrimLeft(rest, " ")
	if len(arg) < 3 || !strings.EqualFold(arg[:3], "to:") {
		return nil, codeSyntaxErrorArg
	}
	path, ok := parsePath(strings.TrimLeft(arg[3:], " "))
	if !ok {
		return nil, codeSyntaxErrorArg
	}
	if path == "" {
		// The empty forward-path <> is invalid (unlike MAIL's null sender).
		return nil, codeSyntaxErrorArg
	}
	return rcptCommand{ForwardPath: path, SourceRouted: isSourceRouted(path)}, 0
}

// parsePath parses a "<...>" bracketed path, including the empty path
// "<>". It returns the interior (case preserved) with the brackets
// stripped. Anything after the closing '>' other than trailing spaces is
// a syntax error, as is an oversized path (brackets included) or an
// unterminated path.
func parsePath(s string) (path string, ok bool) {
	if !strings.HasPrefix(s, "<") {
		return "", false
	}
	end := strings.IndexByte(s, '>')
	if end == -1 {
		return "", false
	}
	full := s[:end+1]
	if len(full) > maxPathLen {
		return "", false
	}
	if strings.TrimSpace(s[end+1:]) != "" {
		return "", false
	}
	return full[1 : len(full)-1], true
}

// isSourceRouted reports whether a forward-path requests source routing,
// i.e. it begins with an "@host,...:mailbox" prefix (RFC 5321 §4.1.2).
func isSourceRouted(path string) bool {
	return strings.HasPrefix(path, "@") && strings.Contains(path, ":")
}

package parser

import (
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"
)

var (
	markerPattern     = regexp.MustCompile(`(?im)^[ \t>*-]*(?:command|cmd)[ \t]*:[ \t]*(.+)$`)
	promptPattern     = regexp.MustCompile(`(?m)^[ \t]*(?:\$|PS>|[A-Za-z]:\\>)[ \t]+(.+)$`)
	inlineCodePattern = regexp.MustCompile("`([^`\n]+)`")
	sentenceEnd       = regexp.MustCompile(`[A-Za-z]\.$`)
)

var shellFenceTags = map[string]bool{
	"":           true,
	"sh":         true,
	"bash":       true,
	"zsh":        true,
	"shell":      true,
	"console":    true,
	"cmd":        true,
	"bat":        true,
	"batch":      true,
	"powershell": true,
	"ps1":        true,
	"pwsh":       true,
}

// knownCommands lists executables that commonly begin a one-line answer.
var knownCommands = map[string]bool{
	"ls": true, "dir": true, "cd": true, "pwd": true, "cat": true, "type": true,
	"echo": true, "printf": true, "grep": true, "egrep": true, "findstr": true,
	"find": true, "where": true, "which": true, "head": true, "tail": true,
	"less": true, "more": true, "wc": true, "sort": true, "uniq": true, "cut": true,
	"awk": true, "sed": true, "tr": true, "xargs": true, "tee": true, "diff": true,
	"cp": true, "copy": true, "xcopy": true, "robocopy": true, "mv": true,
	"move": true, "ren": true, "rename": true, "rm": true, "del": true,
	"erase": true, "rmdir": true, "rd": true, "mkdir": true, "md": true,
	"touch": true, "ln": true, "chmod": true, "chown": true, "du": true, "df": true,
	"tar": true, "zip": true, "unzip": true, "gzip": true, "gunzip": true,
	"curl": true, "wget": true, "ping": true, "ssh": true, "scp": true, "rsync": true,
	"ps": true, "top": true, "kill": true, "pkill": true, "killall": true,
	"tasklist": true, "taskkill": true, "systeminfo": true, "ipconfig": true,
	"ifconfig": true, "ip": true, "netstat": true, "ss": true, "lsof": true,
	"uname": true, "whoami": true, "hostname": true, "date": true, "env": true,
	"export": true, "set": true, "history": true, "man": true, "open": true,
	"start": true, "git": true, "docker": true, "kubectl": true, "npm": true,
	"pip": true, "python": true, "python3": true, "node": true, "go": true,
	"make": true, "brew": true, "apt": true, "apt-get": true, "yum": true,
	"dnf": true, "pacman": true, "sudo": true, "systemctl": true, "journalctl": true,
	"mdfind": true, "defaults": true, "pbcopy": true, "pbpaste": true,
	"cls": true, "clear": true, "tree": true, "stat": true, "file": true,
}

// verbCommands are command names that also open ordinary English sentences.
// They only count when an argument that reads as shell follows.
var verbCommands = map[string]bool{
	"make": true, "find": true, "set": true, "type": true, "more": true,
	"start": true, "open": true, "file": true, "sort": true, "move": true,
	"copy": true, "where": true, "which": true, "less": true, "head": true,
	"go": true, "date": true, "history": true, "top": true, "touch": true,
}

// placeholderCommands are marker payloads that mean "no command".
var placeholderCommands = map[string]bool{
	"n/a": true, "na": true, "none": true, "null": true, "nil": true,
	"unknown": true, "unavailable": true, "-": true,
}

// markerLine handles "COMMAND: <cmd>" lines. The payload must tokenize and
// either start with a known command or carry a shell-looking argument.
func markerLine(text string) (string, bool) {
	for _, match := range markerPattern.FindAllStringSubmatch(text, -1) {
		cmd := cleanCommand(match[1])
		if cmd == "" || placeholderCommands[strings.ToLower(cmd)] {
			continue
		}
		words, err := shellquote.Split(cmd)
		if err != nil || len(words) == 0 || sentenceEnd.MatchString(cmd) {
			continue
		}
		if knownCommands[words[0]] && plausibleArguments(words) {
			return cmd, true
		}
		if !knownCommands[words[0]] && (len(words) == 1 || hasShellArgument(words[1:])) {
			return cmd, true
		}
	}
	return "", false
}

// fencedCommand returns the first non-empty line of a shell-tagged fenced block.
func fencedCommand(text string) (string, bool) {
	for _, match := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		if !shellFenceTags[strings.ToLower(match[1])] {
			continue
		}
		for _, line := range strings.Split(match[2], "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimSpace(strings.TrimPrefix(line, "$ "))
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "{") {
				continue
			}
			return line, true
		}
	}
	return "", false
}

// promptLine handles transcripts such as "$ ls -la" or "C:\> dir".
func promptLine(text string) (string, bool) {
	for _, match := range promptPattern.FindAllStringSubmatch(text, -1) {
		if cmd := cleanCommand(match[1]); cmd != "" {
			return cmd, true
		}
	}
	return "", false
}

// inlineCode returns the first `backticked` span that starts with a known command.
func inlineCode(text string) (string, bool) {
	for _, match := range inlineCodePattern.FindAllStringSubmatch(text, -1) {
		if cmd := strings.TrimSpace(match[1]); looksLikeCommand(cmd) {
			return cmd, true
		}
	}
	return "", false
}

// knownCommandLine returns the first line that starts with a known command
// name and tokenizes under shell quoting rules.
func knownCommandLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if cmd := strings.TrimSpace(line); looksLikeCommand(cmd) {
			return cmd, true
		}
	}
	return "", false
}

func looksLikeCommand(line string) bool {
	if line == "" {
		return false
	}
	words, err := shellquote.Split(line)
	if err != nil || len(words) == 0 {
		return false
	}
	if !knownCommands[words[0]] || !plausibleArguments(words) {
		return false
	}
	// "find files in the folder." reads as a sentence, "cd .." does not.
	return !sentenceEnd.MatchString(line)
}

// plausibleArguments rejects "make sure you describe the task": a verb-like
// command followed only by plain words.
func plausibleArguments(words []string) bool {
	if len(words) == 1 || !verbCommands[words[0]] {
		return true
	}
	return hasShellArgument(words[1:])
}

// hasShellArgument reports whether any word is a flag, a path, a glob, an
// assignment, a number or a shell operator.
func hasShellArgument(words []string) bool {
	for _, word := range words {
		if word == "" {
			continue
		}
		if len(word) > 1 && (word[0] == '-' || word[0] == '/') {
			return true
		}
		if word[0] == '.' || strings.ContainsAny(word, "/\\~*=$|<>&;0123456789") {
			return true
		}
		// "a.tgz" names a file, "manual." ends a sentence.
		if strings.Contains(strings.TrimRight(word, ".,!?:"), ".") {
			return true
		}
	}
	return false
}

func cleanCommand(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "`")
	return strings.TrimSpace(value)
}

package ai

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/doeshing/gensh/internal/domain"
)

type templateData struct {
	OS          string
	OSName      string
	OSRules     string
	Instruction string
	Command     string
}

var osRules = map[domain.TargetOS]string{
	domain.OSWindows: `Use Windows command-prompt (cmd.exe) commands only.
Do NOT output Linux or macOS commands like ls, rm, grep or chmod.`,
	domain.OSMac: `Use macOS (BSD) shell commands.
Examples: ls, ps, df, du, top, open, rm, chmod.
Avoid Linux-only commands or GNU-only flags unless they work on macOS.`,
	domain.OSLinux: `Use Linux shell commands.
Examples: ls, rm, cp, mv, grep, chmod, systemctl, journalctl.`,
}

var (
	systemPromptTemplate = template.Must(template.New("system").Parse(
		`You convert natural language into a single safe shell command for {{.OSName}}.

Follow the OS rules below:
{{.OSRules}}

Respond with exactly one JSON object and nothing else:
{"command": "<one valid command>", "explanation": "<short explanation>", "confidence": <number between 0 and 1>, "risk_tags": ["<tag>", ...]}

Rules:
- Never output multiple commands.
- Never use &&, ;, or multiline commands.
- Never wrap the JSON in code blocks.
- The command must work on {{.OS}}.
- confidence is your probability that the command does what was asked.
- risk_tags names anything destructive, privileged or networked; use [] when harmless.
- Keep the explanation concise.`))

	userPromptTemplate = template.Must(template.New("user").Parse(`Instruction: {{printf "%q" .Instruction}}`))

	explainSystemTemplate = template.Must(template.New("explain-system").Parse(
		`You explain shell commands written for {{.OSName}}.

Explain the command concisely in exactly 3 points, formatted like this:

Purpose: <short explanation>
Main Effect: <short explanation>
Risk: <short explanation, or 'Minimal'>

Use 1-2 sentences per point. Avoid Markdown symbols (*), code blocks, or extra sections.`))

	explainUserTemplate = template.Must(template.New("explain-user").Parse("COMMAND:\n{{.Command}}"))
)

// renderPrompt returns the system and user messages for instruction.
func renderPrompt(os domain.TargetOS, instruction string) (string, string, error) {
	if !os.Valid() {
		os = domain.DefaultTargetOS
	}
	data := templateData{
		OS:          string(os),
		OSName:      os.DisplayName(),
		OSRules:     osRules[os],
		Instruction: strings.TrimSpace(instruction),
	}
	system, err := executeTemplate(systemPromptTemplate, data)
	if err != nil {
		return "", "", err
	}
	user, err := executeTemplate(userPromptTemplate, data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// renderExplainPrompt returns the system and user messages asking for a
// Purpose / Main Effect / Risk description of command.
func renderExplainPrompt(os domain.TargetOS, command string) (string, string, error) {
	if !os.Valid() {
		os = domain.DefaultTargetOS
	}
	data := templateData{
		OS:      string(os),
		OSName:  os.DisplayName(),
		Command: strings.TrimSpace(command),
	}
	system, err := executeTemplate(explainSystemTemplate, data)
	if err != nil {
		return "", "", err
	}
	user, err := executeTemplate(explainUserTemplate, data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func executeTemplate(tmpl *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

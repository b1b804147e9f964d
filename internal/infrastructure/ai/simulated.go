package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// SimulatedConfidence is asserted by every simulated record.
const SimulatedConfidence = 0.9

type simulatedBackend struct {
	os domain.TargetOS
}

// NewSimulated returns the offline backend. It never performs I/O.
func NewSimulated(os domain.TargetOS) ports.Backend {
	if !os.Valid() {
		os = domain.DefaultTargetOS
	}
	return &simulatedBackend{os: os}
}

func (s *simulatedBackend) Name() string {
	return ProviderSimulated
}

func (s *simulatedBackend) Generate(ctx context.Context, instruction string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewBackendError(ProviderSimulated, err)
	}
	record := simulatedRecord{
		Command:     guessCommand(s.os, instruction),
		Explanation: "Simulated: run echo for instruction",
		Confidence:  SimulatedConfidence,
		RiskTags:    []string{},
	}
	if record.Command == "" {
		record.Command = fmt.Sprintf("echo \"Simulated command for: %s\"", strings.ReplaceAll(strings.TrimSpace(instruction), `"`, `\"`))
	} else {
		record.Explanation = "Simulated: matched a common request offline"
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return "", domain.NewBackendError(ProviderSimulated, err)
	}
	return string(payload), nil
}

// Offline is always true: the simulated backend never reaches a model.
func (s *simulatedBackend) Offline() bool {
	return true
}

// Explain returns a fixed three-point description. Without a model the
// purpose is only inferred from the program name.
func (s *simulatedBackend) Explain(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewBackendError(ProviderSimulated, err)
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", domain.NewBackendError(ProviderSimulated, errors.New("empty command"))
	}
	return fmt.Sprintf("Purpose: Runs the %s program with %d argument(s).\n"+
		"Main Effect: Not analyzed offline; configure a backend with credentials for a full explanation.\n"+
		"Risk: See the guardrail classification above.", fields[0], len(fields)-1), nil
}

// ListModels reports the single built-in pseudo model.
func (s *simulatedBackend) ListModels(context.Context) ([]string, error) {
	return []string{ProviderSimulated}, nil
}

type simulatedRecord struct {
	Command     string   `json:"command"`
	Explanation string   `json:"explanation"`
	Confidence  float64  `json:"confidence"`
	RiskTags    []string `json:"risk_tags"`
}

type guess struct {
	keywords []string
	commands map[domain.TargetOS]string
}

func same(cmd string) map[domain.TargetOS]string {
	return map[domain.TargetOS]string{domain.OSWindows: cmd, domain.OSLinux: cmd, domain.OSMac: cmd}
}

var (
	diskCommands = map[domain.TargetOS]string{
		domain.OSWindows: "wmic logicaldisk get caption,freespace,size",
		domain.OSLinux:   "df -h",
		domain.OSMac:     "df -h",
	}
	processCommands = map[domain.TargetOS]string{
		domain.OSWindows: "tasklist",
		domain.OSLinux:   "ps aux",
		domain.OSMac:     "ps aux",
	}
	networkCommands = map[domain.TargetOS]string{
		domain.OSWindows: "ipconfig",
		domain.OSLinux:   "ip addr show",
		domain.OSMac:     "ifconfig",
	}
	cwdCommands = map[domain.TargetOS]string{
		domain.OSWindows: "cd",
		domain.OSLinux:   "pwd",
		domain.OSMac:     "pwd",
	}
	listCommands = map[domain.TargetOS]string{
		domain.OSWindows: "dir",
		domain.OSLinux:   "ls -la",
		domain.OSMac:     "ls -la",
	}
)

// guesses are tried in order; every keyword of a guess must appear.
var guesses = []guess{
	{keywords: []string{"git", "status"}, commands: same("git status")},
	{keywords: []string{"docker"}, commands: same("docker ps")},
	{keywords: []string{"pods"}, commands: same("kubectl get pods")},
	{keywords: []string{"disk"}, commands: diskCommands},
	{keywords: []string{"process"}, commands: processCommands},
	{keywords: []string{"ip", "address"}, commands: networkCommands},
	{keywords: []string{"network"}, commands: networkCommands},
	{keywords: []string{"current", "directory"}, commands: cwdCommands},
	{keywords: []string{"where am i"}, commands: cwdCommands},
	{keywords: []string{"list", "file"}, commands: listCommands},
}

func guessCommand(os domain.TargetOS, instruction string) string {
	text := strings.ToLower(instruction)
	for _, g := range guesses {
		if containsAll(text, g.keywords) {
			return g.commands[os]
		}
	}
	return ""
}

func containsAll(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if !strings.Contains(text, keyword) {
			return false
		}
	}
	return true
}

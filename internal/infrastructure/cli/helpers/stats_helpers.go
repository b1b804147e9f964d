package helpers

import (
	"sort"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
)

// CommandStatistic represents usage statistics for a command
type CommandStatistic struct {
	Command string
	Count   int
}

// HistoryStatistics summarizes a slice of history entries.
type HistoryStatistics struct {
	Total      int
	Executed   int
	Successful int
	DryRuns    int
	Commands   map[string]int
	Risks      map[domain.RiskLevel]int
}

// AnalyzeHistory counts executions, outcomes, commands and risk levels.
func AnalyzeHistory(entries []domain.HistoryEntry) HistoryStatistics {
	stats := HistoryStatistics{
		Total:    len(entries),
		Commands: make(map[string]int),
		Risks:    make(map[domain.RiskLevel]int),
	}
	for _, entry := range entries {
		if entry.Executed {
			stats.Executed++
			if entry.OK {
				stats.Successful++
			}
		}
		if entry.DryRun {
			stats.DryRuns++
		}
		stats.Commands[entry.Command]++
		stats.Risks[entry.Risk]++
	}
	return stats
}

// CalculateTopCommands returns the top N most frequently used commands
// If limit is 0 or negative, returns all commands
func CalculateTopCommands(commandFrequency map[string]int, limit int) []CommandStatistic {
	stats := make([]CommandStatistic, 0, len(commandFrequency))
	for cmd, count := range commandFrequency {
		stats = append(stats, CommandStatistic{Command: cmd, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Command < stats[j].Command
		}
		return stats[i].Count > stats[j].Count
	})

	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successfulCount int, executedCount int) float64 {
	if executedCount == 0 {
		return 0.0
	}
	return float64(successfulCount) / float64(executedCount) * 100.0
}

var undoHints = []struct {
	prefix string
	hint   string
}{
	{prefix: "git ", hint: "Use `git status`, `git reflog`, or `git restore` to inspect and undo git changes."},
	{prefix: "rm ", hint: "Restore deleted files from backups; the sandbox has no trash."},
	{prefix: "mv ", hint: "Move files back with the reverse `mv`; check the sandbox directory first."},
	{prefix: "del ", hint: "Deleted files can only be restored from backups or the Recycle Bin."},
	{prefix: "docker ", hint: "Use `docker ps -a` and `docker logs` to review container history before repeating."},
	{prefix: "kubectl ", hint: "Use `kubectl rollout undo` or `kubectl get events` to recover from cluster issues."},
}

// DeriveUndoHints returns sorted, unique hints for executed commands.
func DeriveUndoHints(entries []domain.HistoryEntry) []string {
	seen := make(map[string]bool)
	var hints []string
	for _, entry := range entries {
		if !entry.Executed {
			continue
		}
		command := strings.ToLower(strings.TrimSpace(entry.Command))
		for _, candidate := range undoHints {
			if strings.HasPrefix(command, candidate.prefix) && !seen[candidate.hint] {
				seen[candidate.hint] = true
				hints = append(hints, candidate.hint)
			}
		}
	}
	sort.Strings(hints)
	return hints
}

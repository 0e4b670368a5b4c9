package task

import (
	"fmt"
	"sort"
)

// ParameterizedCommand is the result of running a Step's overrides
// through the command parameterizer: environment assignments, the
// resolved executable, and the CLI tokens derived from the override
// keys named in Include. Ignored lists override keys present in neither
// Include nor EnvInclude, for diagnostic reporting only.
type ParameterizedCommand struct {
	EnvAssignments []string
	Executable     []string
	CliTokens      []string
	Ignored        []string
}

// Combined concatenates EnvAssignments, Executable, and CliTokens into
// the single flat sequence spec.md §4.3.1 describes the parameterizer as
// emitting: [ENV_ASSIGNMENTS…, EXECUTABLE_TOKENS…, CLI_TOKENS…].
func (p ParameterizedCommand) Combined() []string {
	out := make([]string, 0, len(p.EnvAssignments)+len(p.Executable)+len(p.CliTokens))
	out = append(out, p.EnvAssignments...)
	out = append(out, p.Executable...)
	out = append(out, p.CliTokens...)
	return out
}

// Parameterize builds a ParameterizedCommand for a step given its
// resolved executable template, the CLI/env inclusion sets, and the
// merged override map (compute_overrides ∪ blueprint_overrides, with
// compute_overrides taking precedence on key collision). Keys appear in
// the inclusion sets' own order; keys present in neither set are
// reported in Ignored but do not fail construction.
func Parameterize(executable []string, include, envInclude []string, overrides map[string]any) ParameterizedCommand {
	result := ParameterizedCommand{
		Executable: append([]string(nil), executable...),
	}

	consumed := make(map[string]struct{}, len(include)+len(envInclude))

	for _, key := range envInclude {
		val, ok := overrides[key]
		if !ok {
			continue
		}
		consumed[key] = struct{}{}
		result.EnvAssignments = append(result.EnvAssignments, fmt.Sprintf("%s=%s", key, formatValue(val)))
	}

	for _, key := range include {
		val, ok := overrides[key]
		if !ok {
			continue
		}
		consumed[key] = struct{}{}
		result.CliTokens = append(result.CliTokens, key, formatValue(val))
	}

	ignored := make([]string, 0)
	for key := range overrides {
		if _, ok := consumed[key]; !ok {
			ignored = append(ignored, key)
		}
	}
	sort.Strings(ignored)
	result.Ignored = ignored

	return result
}

// MergeOverrides combines compute and blueprint overrides into the flat
// map the parameterizer consumes, with compute_overrides winning on key
// collision (compute resources are a deployment concern and should not
// be silently shadowed by a blueprint default).
func MergeOverrides(computeOverrides, blueprintOverrides map[string]any) map[string]any {
	merged := make(map[string]any, len(computeOverrides)+len(blueprintOverrides))
	for k, v := range blueprintOverrides {
		merged[k] = v
	}
	for k, v := range computeOverrides {
		merged[k] = v
	}
	return merged
}

func formatValue(v any) string {
	return fmt.Sprintf("%v", v)
}

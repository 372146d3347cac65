package logger

// Output controls what categories of information the CLI prints at each
// verbosity level, independent of log severity.
//
//	0 (default) - results and errors
//	1 (-v)      - + startup banner, session lifecycle
//	2 (-vv)     - + config details, selection phases
//	3 (-vvv)    - + render adapter calls, SQL
//	4 (-vvvv)   - + full directive payloads

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	OutputResults OutputCategory = iota
	OutputErrors

	OutputStartup
	OutputSessions

	OutputConfig
	OutputSelection

	OutputRenderCalls
	OutputSQLQueries

	OutputDirectivePayload
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:          VerbosityUser,
	OutputErrors:           VerbosityUser,
	OutputStartup:          VerbosityInfo,
	OutputSessions:         VerbosityInfo,
	OutputConfig:           VerbosityDebug,
	OutputSelection:        VerbosityDebug,
	OutputRenderCalls:      VerbosityTrace,
	OutputSQLQueries:       VerbosityTrace,
	OutputDirectivePayload: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// Package event provides a small synchronous pub-sub bus and the event types
// published during a generation run. The pipeline publishes agent status,
// log lines, phase transitions and section completions; the CLI and TUI
// subscribe without the pipeline knowing they exist.
package event

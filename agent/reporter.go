package agent

// Reporter receives progress events as a session runs.
type Reporter interface {
	// Stage announces a phase such as a new turn.
	Stage(title string)
	// Note reports a line of progress.
	Note(text string)
	ToolCall(call ToolCall)
	ToolOutput(call ToolCall, output string)
	Answer(text string)
	Failure(err error)
}

// NopReporter discards all events.
type NopReporter struct{}

var _ Reporter = NopReporter{}

func (NopReporter) Stage(string)                {}
func (NopReporter) Note(string)                 {}
func (NopReporter) ToolCall(ToolCall)           {}
func (NopReporter) ToolOutput(ToolCall, string) {}
func (NopReporter) Answer(string)               {}
func (NopReporter) Failure(error)               {}

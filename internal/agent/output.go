package agent

import (
	"strings"

	"github.com/bytedance/sonic"
)

// runOutput is the JSON object emitted by --output-format json. Older CLI
// builds emit one object; newer ones emit a JSONL event stream whose final
// result event carries the same fields.
type runOutput struct {
	Type      string `json:"type"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
}

// runEvent is a single JSONL event from the stream form.
type runEvent struct {
	Type      string   `json:"type"`
	Result    string   `json:"result"`
	SessionID string   `json:"session_id"`
	Item      *runItem `json:"item,omitempty"`
}

type runItem struct {
	Role    string       `json:"role"`
	Content []runContent `json:"content"`
}

type runContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// parseOutput extracts the assistant text and CLI session id from raw
// stdout, tolerating both output shapes. Unparseable output falls back to
// the raw trimmed text so nothing the CLI said is lost.
func parseOutput(raw string, exitCode int) *Result {
	res := &Result{ExitCode: exitCode}
	trimmed := strings.TrimSpace(raw)

	var out runOutput
	if err := sonic.UnmarshalString(trimmed, &out); err == nil && out.Result != "" {
		res.Text = out.Result
		res.CLISessionID = out.SessionID
		return res
	}

	var lastAssistantText string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var ev runEvent
		if err := sonic.UnmarshalString(line, &ev); err != nil {
			continue
		}

		// Capture the session id from any event that has it.
		if ev.SessionID != "" {
			res.CLISessionID = ev.SessionID
		}

		if ev.Type == "result" && ev.Result != "" {
			lastAssistantText = ev.Result
			continue
		}
		if ev.Item != nil && ev.Item.Role == "assistant" {
			for _, c := range ev.Item.Content {
				if c.Type == "text" && c.Text != "" {
					lastAssistantText = c.Text
				}
			}
		}
	}

	if lastAssistantText != "" {
		res.Text = lastAssistantText
	} else {
		res.Text = trimmed
	}
	return res
}

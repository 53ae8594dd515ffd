package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/gg/gconv"
	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/pkg/logs"
	pkgutils "github.com/slipwaylabs/slipway/internal/pkg/utils"
)

// defaultModelID is the alias under which the configured agent is listed.
// Requests naming it (or naming no model) run with the configured default.
const defaultModelID = "slipway"

// Wire shapes follow the OpenAI chat completions API closely enough for
// stock clients. Fields slipway does not honor are accepted and ignored.
type (
	chatCompletionRequest struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
		User     string        `json:"user,omitempty"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content any    `json:"content"` // plain string, or a list of typed parts
	}

	chatCompletionResponse struct {
		ID      string   `json:"id"`
		Object  string   `json:"object"`
		Created int64    `json:"created"`
		Model   string   `json:"model"`
		Choices []choice `json:"choices"`
		Usage   usage    `json:"usage"`
	}

	// usage is always zero: token counts are not observable through the CLI,
	// but clients expect the field to exist.
	usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}

	choice struct {
		Index        int             `json:"index"`
		Message      responseMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}

	responseMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatCompletionChunk struct {
		ID      string        `json:"id"`
		Object  string        `json:"object"`
		Created int64         `json:"created"`
		Model   string        `json:"model"`
		Choices []chunkChoice `json:"choices"`
	}

	chunkChoice struct {
		Index        int        `json:"index"`
		Delta        chunkDelta `json:"delta"`
		FinishReason *string    `json:"finish_reason"`
	}

	chunkDelta struct {
		Role    string `json:"role,omitempty"`
		Content string `json:"content,omitempty"`
	}

	modelList struct {
		Object string      `json:"object"`
		Data   []modelInfo `json:"data"`
	}

	modelInfo struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int64  `json:"created"`
		OwnedBy string `json:"owned_by"`
	}

	errorResponse struct {
		Error errorDetail `json:"error"`
	}

	errorDetail struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
)

func errorBody(msg, typ string) errorResponse {
	return errorResponse{Error: errorDetail{Message: msg, Type: typ}}
}

func (b *Bridge) handleChatCompletions(ctx context.Context, c *app.RequestContext) {
	var req chatCompletionRequest
	if err := sonic.Unmarshal(c.GetRequest().Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, errorBody("invalid request body", "invalid_request_error"))
		return
	}

	prompt, err := buildPrompt(req.Messages)
	if err != nil {
		c.JSON(consts.StatusBadRequest, errorBody(err.Error(), "invalid_request_error"))
		return
	}

	if !b.agent.Available() {
		c.JSON(consts.StatusServiceUnavailable, errorBody(
			fmt.Sprintf("agent binary %q is not responding, check that it is installed", b.agent.Binary()),
			"api_error"))
		return
	}

	res, err := b.agent.Run(ctx, &agent.Request{
		Prompt: prompt,
		Model:  modelArg(req.Model),
	})
	if err != nil {
		logs.CtxError(ctx, "[bridge] agent run failed: %v", err)
		c.JSON(consts.StatusBadGateway, errorBody("agent execution failed", "api_error"))
		return
	}
	if res.ExitCode != 0 {
		logs.CtxWarn(ctx, "[bridge] agent exited %d: %s", res.ExitCode, pkgutils.Truncate80(res.Stderr))
		c.JSON(consts.StatusBadGateway,
			errorBody(fmt.Sprintf("agent exited with code %d", res.ExitCode), "api_error"))
		return
	}

	id := "chatcmpl-" + pkgutils.RandStr(24)
	created := time.Now().Unix()
	model := displayModel(req.Model)

	if req.Stream {
		writeStream(c, id, created, model, res.Text)
		return
	}

	c.JSON(consts.StatusOK, chatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []choice{{
			Index:        0,
			Message:      responseMessage{Role: "assistant", Content: res.Text},
			FinishReason: "stop",
		}},
	})
}

func (b *Bridge) handleListModels(_ context.Context, c *app.RequestContext) {
	created := time.Now().Unix()
	models := []modelInfo{{ID: defaultModelID, Object: "model", Created: created, OwnedBy: "slipway"}}
	if m := b.agent.DefaultModel(); m != "" {
		models = append(models, modelInfo{ID: m, Object: "model", Created: created, OwnedBy: "slipway"})
	}
	c.JSON(consts.StatusOK, modelList{Object: "list", Data: models})
}

// modelArg maps the requested model to a --model argument. The slipway
// alias and an empty model both mean "whatever the agent is configured
// with"; anything else passes through to the CLI.
func modelArg(requested string) string {
	if requested == "" || requested == defaultModelID {
		return ""
	}
	return requested
}

// displayModel echoes the model name the client asked for.
func displayModel(requested string) string {
	if requested == "" {
		return defaultModelID
	}
	return requested
}

// buildPrompt flattens an OpenAI message list into one CLI prompt: system
// messages become a preamble, earlier turns ride along as transcript lines,
// and the latest user message is the ask.
func buildPrompt(messages []chatMessage) (string, error) {
	lastUser := -1
	for i, m := range messages {
		if m.Role == "user" {
			lastUser = i
		}
	}
	if lastUser < 0 {
		return "", errors.New("at least one user message is required")
	}

	var preamble, transcript []string
	var ask string
	for i, m := range messages[:lastUser+1] {
		text := strings.TrimSpace(contentText(m.Content))
		if text == "" {
			continue
		}
		switch {
		case i == lastUser:
			ask = text
		case m.Role == "system":
			preamble = append(preamble, text)
		case m.Role == "user":
			transcript = append(transcript, "User: "+text)
		case m.Role == "assistant":
			transcript = append(transcript, "Assistant: "+text)
		}
	}
	if ask == "" {
		return "", errors.New("the last user message is empty")
	}

	var sections []string
	if len(preamble) > 0 {
		sections = append(sections, strings.Join(preamble, "\n"))
	}
	if len(transcript) > 0 {
		sections = append(sections, strings.Join(transcript, "\n"))
	}
	sections = append(sections, ask)
	return strings.Join(sections, "\n\n"), nil
}

// contentText accepts both OpenAI content encodings: a plain string, or a
// list of typed parts of which the text parts are kept.
func contentText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, p := range v {
			part, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if gconv.To[string](part["type"]) != "text" {
				continue
			}
			if text := gconv.To[string](part["text"]); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// writeStream emits the completion as one SSE exchange. The CLI produces
// its result in a single shot, so the stream is a role chunk, a content
// chunk, a finish chunk, and the DONE sentinel.
func writeStream(c *app.RequestContext, id string, created int64, model, text string) {
	stop := "stop"
	chunks := []chatCompletionChunk{
		{ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
			Choices: []chunkChoice{{Delta: chunkDelta{Role: "assistant"}}}},
		{ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
			Choices: []chunkChoice{{Delta: chunkDelta{Content: text}}}},
		{ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
			Choices: []chunkChoice{{FinishReason: &stop}}},
	}

	var buf bytes.Buffer
	for _, ch := range chunks {
		raw, err := sonic.Marshal(ch)
		if err != nil {
			continue
		}
		buf.WriteString("data: ")
		buf.Write(raw)
		buf.WriteString("\n\n")
	}
	buf.WriteString("data: [DONE]\n\n")

	c.SetStatusCode(consts.StatusOK)
	c.SetContentType("text/event-stream; charset=utf-8")
	c.Response.Header.Set("Cache-Control", "no-cache")
	c.Response.SetBody(buf.Bytes())
}

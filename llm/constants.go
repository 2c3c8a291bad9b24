package llm

type APIFormat string

const (
	APIFormatOpenAIChatCompletion APIFormat = "openai/chat_completions"
	APIFormatOllamaGenerate       APIFormat = "ollama/generate"
)

func (f APIFormat) String() string {
	return string(f)
}

const (
	// ToolTypeFunction is the function tool type for OpenAI.
	ToolTypeFunction = "function"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Response object types.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
)

// Finish reasons of a choice, following the OpenAI chat completion values.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// ABOUTME: Service contracts for the embedding and text-generation backends
// ABOUTME: Components depend on these interfaces, never on a concrete client
package llm

import "context"

// Message roles understood by chat completion backends
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat completion request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage is shorthand for a single user turn
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Embedder turns texts into fixed-width vectors. Output order matches input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Completer produces a text completion for a message list
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

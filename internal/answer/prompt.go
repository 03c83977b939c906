package answer

import "strings"

// SystemPrompt is sent as the system message of every generation request.
const SystemPrompt = "You are a helpful AI assistant."

const promptTemplate = "You are a helpful assistant. Use the following context to answer the user's question.\n\n" +
	"Context:\n{context}\n\nQuestion: {query}\n\nAnswer:"

// RenderPrompt fills the user prompt with the fused context and the question.
// Both values are inserted verbatim.
func RenderPrompt(context, question string) string {
	r := strings.NewReplacer("{context}", context, "{query}", question)
	return r.Replace(promptTemplate)
}

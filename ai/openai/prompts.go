package openai

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/lumina/core"
)

const systemPromptTemplate = `You are Lumina, an assistant that answers questions using the documents of the user's organization.

Answer using only the context below. Cite the blocks you rely on by their number, like [1].
If the context does not contain the answer, say so plainly instead of guessing.

Context:
%s`

const noContextPrompt = `You are Lumina, an assistant that answers questions using the documents of the user's organization.

No relevant documents were found for this question. Tell the user that their organization's
documents do not cover it. Do not invent facts, policies, or figures.`

// buildSystemPrompt renders the retrieved chunks as numbered context blocks.
func buildSystemPrompt(chunks []core.ContextChunk) string {
	if len(chunks) == 0 {
		return noContextPrompt
	}

	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(c.Content))
	}
	return fmt.Sprintf(systemPromptTemplate, b.String())
}

// buildMessages assembles the system prompt, the prior turns and the question.
func buildMessages(question string, chunks []core.ContextChunk, history []core.Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, buildSystemPrompt(chunks)))

	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == core.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}

	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
}

package llm

import (
	"fmt"
	"strings"
)

// SupportAgentInstructions is the system prompt of the support agent.
const SupportAgentInstructions = `You are a customer support agent.

Rules:
1. Use the search tool before answering product or policy questions
2. Only answer from search results or the conversation; never invent facts
3. Call resolveConversation when the customer confirms their issue is solved
4. Call escalateConversation when the customer asks for a human, is frustrated, or you cannot help
5. Never call both resolveConversation and escalateConversation
6. Keep replies short, friendly and in the customer's language`

// SearchInterpreterInstructions turns raw knowledge base hits into an answer.
const SearchInterpreterInstructions = "You interpret knowledge base search results and provide a helpful, accurate answer to the user's question. If the results do not contain the answer, say so."

// EnhanceInstructions rewrites an operator draft.
const EnhanceInstructions = "Enhance the operator message to be more professional, clear and helpful while maintaining the original meaning. Respond with the rewritten message only."

// BuildSearchPrompt formats a knowledge search for the interpreter.
func BuildSearchPrompt(query string, titles []string, context string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User question: %q\n\n", query)

	if len(titles) > 0 {
		fmt.Fprintf(&sb, "Found results in %s. ", strings.Join(titles, ", "))
	}
	sb.WriteString("Here is the context:\n\n")
	sb.WriteString(context)

	return sb.String()
}

// CleanReply trims whitespace and surrounding quotes a model sometimes adds
// around a rewritten message.
func CleanReply(content string) string {
	content = strings.TrimSpace(content)
	if len(content) >= 2 {
		first, last := content[0], content[len(content)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			content = strings.TrimSpace(content[1 : len(content)-1])
		}
	}
	return content
}

package chat

import "fmt"

// systemTemplate is the persona prompt rendered for every turn. The
// loaded document travels inside it rather than as a separate message,
// so every invocation carries the full grounding context.
const systemTemplate = `You are a friendly assistant called DocChat.
You have access to the following information from a %s document:

####
%s
####

Use the information above to answer the user's questions.
Always answer clearly and objectively, and ground your answers in the
loaded document whenever the question concerns it.`

// renderSystem interpolates the document into the persona template.
// The content is embedded verbatim; no truncation or summarization
// happens here.
func renderSystem(documentType, documentContent string) string {
	return fmt.Sprintf(systemTemplate, documentType, documentContent)
}

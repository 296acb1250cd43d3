package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

// User-facing messages for the degraded answer paths. A turn is persisted
// with one of these whenever generation cannot produce a real answer.
const (
	MsgNoMatchingDocuments  = "None of the documents you selected are available for search right now. Check that they are uploaded and active, then try again."
	MsgNoActiveDocuments    = "You have no active documents yet, so I answered from general knowledge only."
	MsgIndexStillProcessing = "Your documents are still being processed by the search provider. Please try again in a minute."
	MsgProviderUnavailable  = "Sorry, the document search service is currently unavailable. Your question was saved; please try again shortly."
	MsgGenerationFailed     = "Sorry, I could not generate an answer this time. Please try again."
)

// DefaultSystemInstructions is used until an operator overrides the value via
// the ai_configurations table.
const DefaultSystemInstructions = `You are a document assistant. Answer the user's question using the retrieved passages from their documents.

RULES:
1. Ground every claim in the retrieved content; do not invent facts.
2. When the documents do not contain the answer, say so plainly.
3. Quote figures and names exactly as they appear in the source.
4. Keep answers concise: lead with the answer, then supporting detail.`

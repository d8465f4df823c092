package models

const (
	ContextSeparator = "\n---\n"

	UploadFirstAnswer = "Please upload a document first."
	NoContentAnswer   = "No relevant content found in the document."
	NotFoundPhrase    = "I could not find the answer in the provided document."

	StatusOK    = "ok"
	StatusError = "error"
)

var (
	SystemPrompt = `You are a helpful AI assistant. Answer the user's question accurately using ONLY the context provided below. If the answer is not in the context, reply exactly: "` + NotFoundPhrase + `"`

	// UserPromptTemplate takes the context block and the question.
	UserPromptTemplate = "Context:\n%s\n\nQuestion: %s"

	// CompletionPromptTemplate is the flattened prompt for raw text
	// generation models. It takes the context block and the question.
	CompletionPromptTemplate = `
Use ONLY the context below to answer. If the answer is not in the context, reply exactly: "` + NotFoundPhrase + `"

Context:
%s

Question: %s

Answer:
`
)

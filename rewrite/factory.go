package rewrite

import "log"

// NewDefaultProvider prefers the hosted Cohere API when a key is
// configured, otherwise talks to a local Ollama instance.
func NewDefaultProvider(cohereKey, ollamaBaseURL, ollamaModel string) Provider {
	if cohereKey != "" {
		log.Println("rewrite: using cohere provider")
		return NewCohereProvider(cohereKey, "")
	}
	log.Printf("rewrite: using ollama provider at %s (model %s)", ollamaBaseURL, ollamaModel)
	return NewOllamaProvider(ollamaBaseURL, ollamaModel)
}

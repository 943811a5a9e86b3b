package indexer

import "github.com/liveclaw/voicecore/internal/domain"

// Answer length bounds for archiving. Anything longer than a short spoken
// reply makes a poor reusable clip.
const (
	minSourceTokens = 2
	maxResponseLen  = 280
)

// Classifier decides whether a finalized answer is worth turning into an
// archived clip.
type Classifier struct{}

// NewClassifier creates the default archivability classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Archivable accepts short self-contained answers to non-trivial inputs.
func (c *Classifier) Archivable(sourceText, responseText string) bool {
	if len(domain.Tokens(sourceText)) < minSourceTokens {
		return false
	}
	cleaned := domain.CleanForSpeech(responseText)
	if cleaned == "" || len(cleaned) > maxResponseLen {
		return false
	}
	return true
}

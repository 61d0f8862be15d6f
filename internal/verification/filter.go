package verification

import "strings"

var courseKeywords = []string{
	"course", "program", "degree", "certificate", "diploma", "curriculum",
	"tuition", "fee", "cost", "duration", "semester", "year", "credit",
	"requirement", "prerequisite", "admission", "enrollment", "major",
	"specialization", "department", "faculty", "graduation", "class",
	"bachelor", "master", "associate", "phd", "doctorate", "undergraduate",
	"graduate", "study", "studies", "education", "academic", "school",
	"university", "college", "institute", "training", "certification",
}

// RelevantContent keeps the sentences that talk about courses along with the sentence before and after
// each of them. Every sentence is kept at most once and in transcript order, so the result never has
// more words than text. Keywords match anywhere in a sentence, so "fees" and "programming" count.
func RelevantContent(text string) string {
	sentences := strings.Split(text, ".")

	keep := make([]bool, len(sentences))
	for i, sentence := range sentences {
		if !mentionsCourse(sentence) {
			continue
		}
		for j := max(0, i-1); j < min(len(sentences), i+2); j++ {
			keep[j] = true
		}
	}

	relevant := []string{}
	for i, sentence := range sentences {
		if keep[i] && strings.TrimSpace(sentence) != "" {
			relevant = append(relevant, sentence)
		}
	}
	return strings.TrimSpace(strings.Join(relevant, "."))
}

func mentionsCourse(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, keyword := range courseKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

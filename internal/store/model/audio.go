package model

type MatchStatus string

const (
	MatchStatusMatch        MatchStatus = "MATCH"
	MatchStatusMismatch     MatchStatus = "MISMATCH"
	MatchStatusPartialMatch MatchStatus = "PARTIAL_MATCH"
)

type AudioAnalysis struct {
	CoursesMentioned []CourseInfo            `json:"coursesMentioned"`
	OverallSummary   string                  `json:"overallSummary"`
	AccuracyScore    float64                 `json:"accuracyScore"`
	RedFlags         []string                `json:"redFlags"`
	SessionMetadata  VerificationSessionMeta `json:"sessionMetadata"`
}

type CourseInfo struct {
	Name            string      `json:"name"`
	ClaimedDuration *string     `json:"claimedDuration"`
	ClaimedFee      *string     `json:"claimedFee"`
	CatalogDuration *string     `json:"catalogDuration"`
	CatalogFee      *string     `json:"catalogFee"`
	MatchStatus     MatchStatus `json:"matchStatus"`
	ConfidenceScore float64     `json:"confidenceScore"`
	Notes           string      `json:"notes"`
}

type VerificationSessionMeta struct {
	TotalUtterances     int `json:"totalUtterances"`
	CounselorUtterances int `json:"counselorUtterances"`
	StudentUtterances   int `json:"studentUtterances"`
	OriginalLengthWords int `json:"originalLengthWords"`
	FilteredLengthWords int `json:"filteredLengthWords"`
}

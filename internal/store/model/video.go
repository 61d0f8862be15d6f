package model

type EngagementStatus string

const (
	EngagementEngaged          EngagementStatus = "engaged"
	EngagementPartiallyEngaged EngagementStatus = "partially_engaged"
	EngagementDisengaged       EngagementStatus = "disengaged"
)

type AttendancePattern string

const (
	AttendanceFullyEngaged          AttendancePattern = "fully_engaged"
	AttendanceMostlyEngaged         AttendancePattern = "mostly_engaged"
	AttendanceIntermittentlyEngaged AttendancePattern = "intermittently_engaged"
	AttendanceFrequentlyInterrupted AttendancePattern = "frequently_interrupted"
)

type VideoAnalysis struct {
	SessionOverview     SessionOverview       `json:"sessionOverview"`
	Participants        []ParticipantAnalysis `json:"participants"`
	EnvironmentAnalysis EnvironmentAnalysis   `json:"environmentAnalysis"`
	Timeline            []TimelineEvent       `json:"timeline"`
	Recommendations     []string              `json:"recommendations"`
	TechnicalInfo       TechnicalInfo         `json:"technicalInfo"`
}

type SessionOverview struct {
	DurationSeconds  float64 `json:"durationSeconds"`
	ParticipantCount int     `json:"participantCount"`
}

type ParticipantAnalysis struct {
	ParticipantID     string            `json:"participantId"`
	Role              string            `json:"role,omitempty"`
	EngagementSummary EngagementSummary `json:"engagementSummary"`
	AttendancePattern AttendanceSummary `json:"attendancePattern"`
	CameraOffPeriods  []Period          `json:"cameraOffPeriods"`
	NotableIssues     []string          `json:"notableIssues"`
}

type EngagementSummary struct {
	CameraOnPercentage float64          `json:"cameraOnPercentage"`
	Status             EngagementStatus `json:"status"`
}

type AttendanceSummary struct {
	Pattern          AttendancePattern `json:"pattern"`
	ConsistencyScore float64           `json:"consistencyScore"`
}

type Period struct {
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type EnvironmentAnalysis struct {
	AttireAssessment     Assessment `json:"attireAssessment"`
	BackgroundAssessment Assessment `json:"backgroundAssessment"`
}

type Assessment struct {
	OverallRating              float64 `json:"overallRating"`
	Description                string  `json:"description"`
	MeetsProfessionalStandards bool    `json:"meetsProfessionalStandards"`
}

type TimelineEvent struct {
	Timestamp     float64 `json:"timestamp"`
	ParticipantID string  `json:"participantId"`
	Event         string  `json:"event"`
}

type TechnicalInfo struct {
	TotalFramesAnalyzed   int     `json:"totalFramesAnalyzed"`
	SampleIntervalSeconds float64 `json:"sampleIntervalSeconds"`
}

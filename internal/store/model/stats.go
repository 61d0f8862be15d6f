package model

// AnalysisStats is a snapshot of the session and analysis tables used by the metrics collector.
type AnalysisStats struct {
	TotalSessions    int
	AnalysesByStatus map[AnalysisStatus]int
}

package v1alpha1

func StringToAnalysisStatus(s string) AnalysisStatus {
	switch s {
	case string(AnalysisStatusPending):
		return AnalysisStatusPending
	case string(AnalysisStatusRunning):
		return AnalysisStatusRunning
	case string(AnalysisStatusCompleted):
		return AnalysisStatusCompleted
	case string(AnalysisStatusFailed):
		return AnalysisStatusFailed
	default:
		return AnalysisStatusPending
	}
}

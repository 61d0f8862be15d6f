package mappers

import (
	"github.com/unique-Sachin/CounselPro-AI/api/v1alpha1"
	"github.com/unique-Sachin/CounselPro-AI/internal/service"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

func SessionToApi(session model.Session, trigger *service.TriggerResult) v1alpha1.Session {
	s := v1alpha1.Session{
		Id:             session.ID,
		RecordingRef:   session.RecordingRef,
		CounselorName:  session.CounselorName,
		CounselorEmail: session.CounselorEmail,
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
	}

	if trigger != nil {
		t := TriggerResultToApi(*trigger)
		s.Analysis = &t
	}

	return s
}

func TriggerResultToApi(result service.TriggerResult) v1alpha1.TriggerResponse {
	return v1alpha1.TriggerResponse{
		Accepted:      result.Accepted,
		CurrentStatus: StatusToApi(result.CurrentStatus),
	}
}

func StatusToApi(status model.AnalysisStatus) v1alpha1.AnalysisStatus {
	return v1alpha1.StringToAnalysisStatus(status.String())
}

func AnalysisStatusToApi(status service.AnalysisStatus) v1alpha1.AnalysisStatusResponse {
	resp := v1alpha1.AnalysisStatusResponse{
		SessionId:     status.SessionID,
		Status:        StatusToApi(status.Status),
		VideoAnalysis: status.VideoAnalysis,
		AudioAnalysis: status.AudioAnalysis,
		UpdatedAt:     status.UpdatedAt,
	}

	if status.FailureReason != "" {
		reason := status.FailureReason
		resp.FailureReason = &reason
	}

	return resp
}

func AnalysisStatusListToApi(statuses []service.AnalysisStatus) v1alpha1.AnalysisStatusList {
	list := make(v1alpha1.AnalysisStatusList, 0, len(statuses))
	for _, s := range statuses {
		list = append(list, AnalysisStatusToApi(s))
	}
	return list
}

func TranscriptToApi(t service.Transcript) v1alpha1.TranscriptResponse {
	resp := v1alpha1.TranscriptResponse{
		SessionId:           t.SessionID,
		TranscriptAvailable: t.Available,
	}

	if t.Status != "" {
		status := StatusToApi(t.Status)
		resp.Status = &status
	}

	if t.Available {
		total := len(t.Utterances)
		resp.TotalSegments = &total
		resp.Utterances = t.Utterances
		if resp.Utterances == nil {
			resp.Utterances = []model.Utterance{}
		}
		resp.Metadata = t.Metadata
	}

	return resp
}

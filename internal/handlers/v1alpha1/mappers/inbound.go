package mappers

import (
	"strings"

	"github.com/unique-Sachin/CounselPro-AI/api/v1alpha1"
	"github.com/unique-Sachin/CounselPro-AI/internal/service"
)

func SessionFormApi(form v1alpha1.SessionCreate) service.SessionForm {
	sessionForm := service.SessionForm{
		RecordingRef:  strings.TrimSpace(form.RecordingRef),
		CounselorName: strings.TrimSpace(form.CounselorName),
	}

	if form.CounselorEmail != nil && *form.CounselorEmail != "" {
		email := strings.TrimSpace(*form.CounselorEmail)
		sessionForm.CounselorEmail = &email
	}

	if form.AutoAnalyze != nil {
		sessionForm.AutoAnalyze = *form.AutoAnalyze
	}

	return sessionForm
}

// RecordingRefApi returns the override of a trigger request, empty when the session's own recording is to be used.
func RecordingRefApi(req *v1alpha1.TriggerRequest) string {
	if req == nil || req.RecordingRef == nil {
		return ""
	}
	return strings.TrimSpace(*req.RecordingRef)
}

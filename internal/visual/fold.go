package visual

import (
	"fmt"
	"math"
	"sort"

	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

const (
	// MinOffPeriod is the shortest camera off stretch reported, in seconds.
	MinOffPeriod = 6.0
	// MinOnPeriod is the shortest camera on stretch that separates two off periods, in seconds.
	MinOnPeriod = 10.0

	engagedAbove          = 70.0
	partiallyEngagedAbove = 30.0
	lowEngagementBelow    = 50.0
	staticImageShare      = 0.8
	extendedAbsence       = 300.0
	interruptionLength    = 30.0
	maxInterruptions      = 5
	professionalStandard  = 70.0

	EventCameraOff = "camera_off"
	EventCameraOn  = "camera_on"

	notAssessed = "not assessed"
)

// Sample is the label of the frame taken at Offset seconds.
type Sample struct {
	Offset float64
	Label  FrameLabel
}

type run struct {
	on         bool
	start, end float64
}

func (r run) duration() float64 {
	return r.end - r.start
}

// Fold turns the labeled frames of a recording into its video analysis. interval is the sampling
// interval and duration the length of the recording, both in seconds.
func Fold(samples []Sample, interval, duration float64) *model.VideoAnalysis {
	samples = append([]Sample(nil), samples...)
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Offset < samples[j].Offset })

	end := sessionEnd(samples, interval, duration)
	if duration <= 0 {
		duration = end
	}

	analysis := &model.VideoAnalysis{
		SessionOverview: model.SessionOverview{DurationSeconds: round1(duration)},
		Participants:    []model.ParticipantAnalysis{},
		Timeline:        []model.TimelineEvent{},
		Recommendations: []string{},
		TechnicalInfo: model.TechnicalInfo{
			TotalFramesAnalyzed:   len(samples),
			SampleIntervalSeconds: interval,
		},
	}

	for _, id := range participantIDs(samples) {
		p, events := foldParticipant(id, samples, end)
		analysis.Participants = append(analysis.Participants, p)
		analysis.Timeline = append(analysis.Timeline, events...)
	}
	analysis.SessionOverview.ParticipantCount = len(analysis.Participants)

	sort.SliceStable(analysis.Timeline, func(i, j int) bool {
		return analysis.Timeline[i].Timestamp < analysis.Timeline[j].Timestamp
	})

	analysis.EnvironmentAnalysis = model.EnvironmentAnalysis{
		AttireAssessment:     assess(samples, func(l FrameLabel) *Rating { return l.Attire }),
		BackgroundAssessment: assess(samples, func(l FrameLabel) *Rating { return l.Background }),
	}
	analysis.Recommendations = recommendations(analysis)

	return analysis
}

func foldParticipant(id string, samples []Sample, end float64) (model.ParticipantAnalysis, []model.TimelineEvent) {
	var (
		runs     []run
		onCount  int
		static   int
		timeline []model.TimelineEvent
	)
	for _, s := range samples {
		on, isStatic := observe(id, s.Label)
		if on {
			onCount++
		}
		if isStatic {
			static++
		}

		n := len(runs)
		if n > 0 && runs[n-1].on == on {
			continue
		}
		if n > 0 {
			runs[n-1].end = s.Offset
		}
		runs = append(runs, run{on: on, start: s.Offset})
	}
	if n := len(runs); n > 0 {
		runs[n-1].end = end
	}

	offPeriods := []model.Period{}
	for _, r := range mergeShortOnRuns(runs) {
		if r.on || r.duration() < MinOffPeriod {
			continue
		}
		offPeriods = append(offPeriods, model.Period{Start: round1(r.start), End: round1(r.end), DurationSeconds: round1(r.duration())})
		timeline = append(timeline, model.TimelineEvent{Timestamp: round1(r.start), ParticipantID: id, Event: EventCameraOff})
		if r.end < end {
			timeline = append(timeline, model.TimelineEvent{Timestamp: round1(r.end), ParticipantID: id, Event: EventCameraOn})
		}
	}

	onPercentage := 0.0
	if len(samples) > 0 {
		onPercentage = round1(float64(onCount) / float64(len(samples)) * 100)
	}
	usingStatic := static > 0 && float64(static)/float64(onCount) > staticImageShare

	return model.ParticipantAnalysis{
		ParticipantID: id,
		EngagementSummary: model.EngagementSummary{
			CameraOnPercentage: onPercentage,
			Status:             engagementStatus(onPercentage),
		},
		AttendancePattern: model.AttendanceSummary{
			Pattern:          attendancePattern(len(offPeriods)),
			ConsistencyScore: math.Max(0, 100-10*float64(len(offPeriods))),
		},
		CameraOffPeriods: offPeriods,
		NotableIssues:    notableIssues(onPercentage, usingStatic, offPeriods),
	}, timeline
}

// mergeShortOnRuns folds an on run shorter than MinOnPeriod into the off runs around it.
func mergeShortOnRuns(runs []run) []run {
	merged := make([]run, 0, len(runs))
	for _, r := range runs {
		n := len(merged)
		if !r.on && n >= 2 && merged[n-1].on && merged[n-1].duration() < MinOnPeriod && !merged[n-2].on {
			merged[n-2].end = r.end
			merged = merged[:n-1]
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// observe reports whether the participant had the camera on in the frame and whether the picture was static.
// A participant missing from a frame is off camera.
func observe(id string, label FrameLabel) (bool, bool) {
	for _, o := range label.Participants {
		if o.ParticipantID == id {
			return o.CameraOn, o.CameraOn && o.StaticImage
		}
	}
	return false, false
}

func engagementStatus(onPercentage float64) model.EngagementStatus {
	switch {
	case onPercentage > engagedAbove:
		return model.EngagementEngaged
	case onPercentage > partiallyEngagedAbove:
		return model.EngagementPartiallyEngaged
	default:
		return model.EngagementDisengaged
	}
}

func attendancePattern(offPeriods int) model.AttendancePattern {
	switch {
	case offPeriods == 0:
		return model.AttendanceFullyEngaged
	case offPeriods <= 2:
		return model.AttendanceMostlyEngaged
	case offPeriods <= 5:
		return model.AttendanceIntermittentlyEngaged
	default:
		return model.AttendanceFrequentlyInterrupted
	}
}

func notableIssues(onPercentage float64, usingStatic bool, offPeriods []model.Period) []string {
	issues := []string{}
	if onPercentage < lowEngagementBelow {
		issues = append(issues, "Low camera engagement")
	}
	if usingStatic {
		issues = append(issues, "Using static image")
	}

	extended, interruptions := false, 0
	for _, p := range offPeriods {
		if p.DurationSeconds > extendedAbsence {
			extended = true
		}
		if p.DurationSeconds > interruptionLength {
			interruptions++
		}
	}
	if extended {
		issues = append(issues, "Extended absence periods")
	}
	if interruptions > maxInterruptions {
		issues = append(issues, "Frequent interruptions")
	}
	return issues
}

func assess(samples []Sample, pick func(FrameLabel) *Rating) model.Assessment {
	var (
		total       float64
		count       int
		description string
	)
	for _, s := range samples {
		r := pick(s.Label)
		if r == nil {
			continue
		}
		total += r.Score
		count++
		if description == "" {
			description = r.Description
		}
	}
	if count == 0 {
		return model.Assessment{Description: notAssessed}
	}

	rating := round1(total / float64(count))
	return model.Assessment{
		OverallRating:              rating,
		Description:                description,
		MeetsProfessionalStandards: rating >= professionalStandard,
	}
}

func recommendations(a *model.VideoAnalysis) []string {
	var lowEngagement, static int
	for _, p := range a.Participants {
		if p.EngagementSummary.CameraOnPercentage < lowEngagementBelow {
			lowEngagement++
		}
		for _, issue := range p.NotableIssues {
			if issue == "Using static image" {
				static++
			}
		}
	}

	recs := []string{}
	if lowEngagement > 0 {
		recs = append(recs, fmt.Sprintf("Improve camera engagement: %d participant(s) had low camera engagement.", lowEngagement))
	}
	if static > 0 {
		recs = append(recs, fmt.Sprintf("Address static image usage: %d participant(s) using static images.", static))
	}
	if env := a.EnvironmentAnalysis.AttireAssessment; env.Description != notAssessed && !env.MeetsProfessionalStandards {
		recs = append(recs, "Consider sharing professional attire guidelines.")
	}
	if env := a.EnvironmentAnalysis.BackgroundAssessment; env.Description != notAssessed && !env.MeetsProfessionalStandards {
		recs = append(recs, "Consider a neutral, professional background.")
	}
	return recs
}

func participantIDs(samples []Sample) []string {
	seen := map[string]struct{}{}
	ids := []string{}
	for _, s := range samples {
		for _, o := range s.Label.Participants {
			if _, found := seen[o.ParticipantID]; !found {
				seen[o.ParticipantID] = struct{}{}
				ids = append(ids, o.ParticipantID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// sessionEnd is where the last sampled frame stops covering the recording.
func sessionEnd(samples []Sample, interval, duration float64) float64 {
	if len(samples) == 0 {
		return math.Max(duration, 0)
	}
	last := samples[len(samples)-1].Offset
	end := last + interval
	if duration > last && duration < end {
		end = duration
	}
	return end
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

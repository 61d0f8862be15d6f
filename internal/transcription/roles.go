package transcription

import (
	"fmt"
	"math"
	"strings"

	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

const (
	RoleCounselor = "counselor"
	RoleStudent   = "student"

	// the first speaker keeps the counselor role unless the other one talked this much more
	firstSpeakerRatio = 1.3
)

// IdentifyRoles maps roles to speaker indexes from the talk ratio of each speaker.
func IdentifyRoles(utterances []model.Utterance) map[string]int {
	if len(utterances) == 0 {
		return map[string]int{}
	}

	// speakers in order of first appearance
	var speakers []int
	words := map[int]int{}
	for _, u := range utterances {
		if _, seen := words[u.Speaker]; !seen {
			speakers = append(speakers, u.Speaker)
		}
		words[u.Speaker] += len(strings.Fields(u.Text))
	}

	counselor := speakers[0]
	for _, s := range speakers[1:] {
		if words[s] > words[counselor] {
			counselor = s
		}
	}

	switch len(speakers) {
	case 1:
		return map[string]int{RoleCounselor: counselor}
	case 2:
		student := speakers[0]
		if student == counselor {
			student = speakers[1]
		}

		first := utterances[0].Speaker
		if first != counselor && talkRatio(words[counselor], words[student]) < firstSpeakerRatio {
			counselor, student = student, counselor
		}
		return map[string]int{RoleCounselor: counselor, RoleStudent: student}
	default:
		roles := map[string]int{RoleCounselor: counselor}
		next := 2
		for _, s := range speakers {
			if s == counselor {
				continue
			}
			roles[fmt.Sprintf("speaker_%d", next)] = s
			next++
		}
		return roles
	}
}

// ApplyRoles sets the role of every utterance. Speakers without a role are named after their index.
func ApplyRoles(utterances []model.Utterance, roles map[string]int) []model.Utterance {
	bySpeaker := make(map[int]string, len(roles))
	for role, speaker := range roles {
		bySpeaker[speaker] = role
	}

	labeled := make([]model.Utterance, 0, len(utterances))
	for _, u := range utterances {
		role, found := bySpeaker[u.Speaker]
		if !found {
			role = fmt.Sprintf("speaker_%d", u.Speaker)
		}
		u.Role = role
		labeled = append(labeled, u)
	}
	return labeled
}

func talkRatio(more, less int) float64 {
	if less == 0 {
		return math.Inf(1)
	}
	return float64(more) / float64(less)
}

// FormatTimestamp renders seconds as HH:MM:SS.ss.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds / 3600)
	minutes := int(math.Mod(seconds, 3600) / 60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, math.Mod(seconds, 60))
}

func roundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}

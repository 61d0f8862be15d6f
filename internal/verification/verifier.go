package verification

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/thoas/go-funk"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"github.com/unique-Sachin/CounselPro-AI/internal/transcription"
	"go.uber.org/zap"
)

const (
	noTranscriptContent = "No transcript content found for verification"
	noCourseContent     = "No course-related content found in transcript"

	// unverifiedConfidence marks a course named without any claim that could be checked.
	unverifiedConfidence = 0.3
)

var riskLanguage = []struct {
	category string
	phrases  []string
}{
	{
		category: "Payment pressure",
		phrases: []string{
			"pay today", "pay now", "pay immediately", "pay right now", "only today", "offer ends today",
			"last day of the offer", "limited seats", "seats are filling", "book your seat now", "token amount today",
		},
	},
	{
		category: "Coercion",
		phrases: []string{
			"you have to join", "you must join", "no other option", "you will regret", "don't tell your parents",
			"decide right now", "you cannot say no", "everyone else has already joined",
		},
	},
	{
		category: "Guarantee",
		phrases: []string{
			"guaranteed placement", "placement guarantee", "100% placement", "hundred percent placement",
			"guaranteed job", "job guarantee", "guarantee you a job", "assured placement", "guaranteed salary",
		},
	},
}

// Verifier checks the course claims made during a session against the catalog.
type Verifier struct {
	catalog *Catalog
	log     *zap.SugaredLogger
}

func NewVerifier(catalog *Catalog) *Verifier {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Verifier{
		catalog: catalog,
		log:     zap.S().Named("verification"),
	}
}

func (v *Verifier) Run(ctx context.Context, transcript pipeline.Transcript) pipeline.StageResult[*model.AudioAnalysis] {
	if err := ctx.Err(); err != nil {
		return pipeline.Failed[*model.AudioAnalysis](err)
	}
	analysis := v.Verify(transcript.Utterances)
	v.log.Infow("content verified", "courses", len(analysis.CoursesMentioned), "red_flags", len(analysis.RedFlags), "accuracy", analysis.AccuracyScore)
	return pipeline.Ok(analysis)
}

// Verify considers what every participant said: claims made by the student and confirmed by the counselor
// count as much as the counselor's own.
func (v *Verifier) Verify(utterances []model.Utterance) *model.AudioAnalysis {
	texts := make([]string, 0, len(utterances))
	meta := model.VerificationSessionMeta{TotalUtterances: len(utterances)}
	for _, u := range utterances {
		texts = append(texts, u.Text)
		if u.Role == transcription.RoleCounselor {
			meta.CounselorUtterances++
		} else {
			meta.StudentUtterances++
		}
	}

	full := strings.Join(texts, " ")
	meta.OriginalLengthWords = len(strings.Fields(full))
	if strings.TrimSpace(full) == "" {
		return emptyAnalysis(noTranscriptContent, meta)
	}

	relevant := RelevantContent(full)
	meta.FilteredLengthWords = len(strings.Fields(relevant))
	if strings.TrimSpace(relevant) == "" {
		return emptyAnalysis(noCourseContent, meta)
	}

	courses := v.coursesMentioned(texts)
	redFlags := funk.UniqString(append(mismatchFlags(courses), riskFlags(full)...))

	return &model.AudioAnalysis{
		CoursesMentioned: courses,
		OverallSummary:   summarize(courses, redFlags),
		AccuracyScore:    accuracy(courses),
		RedFlags:         redFlags,
		SessionMetadata:  meta,
	}
}

// coursesMentioned finds catalog courses in the utterances and checks what was claimed about each of them
// in the utterance that names it and the one after.
func (v *Verifier) coursesMentioned(texts []string) []model.CourseInfo {
	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}

	courses := []model.CourseInfo{}
	for _, course := range v.catalog.byLongestName() {
		name := strings.ToLower(course.Name)

		var claimedDuration *duration
		var claimedFee *fee
		mentioned := false
		for i := range lowered {
			at := strings.Index(lowered[i], name)
			if at < 0 {
				continue
			}
			mentioned = true

			window := lowered[i][at:]
			if i+1 < len(texts) {
				window += " " + strings.ToLower(texts[i+1])
			}
			// a longer course name wins over a shorter one it contains
			lowered[i] = strings.ReplaceAll(lowered[i], name, strings.Repeat(" ", len(name)))

			if d, ok := parseDuration(window); ok && claimedDuration == nil {
				claimedDuration = &d
			}
			if f, ok := parseFee(window); ok && claimedFee == nil {
				claimedFee = &f
			}
		}
		if mentioned {
			courses = append(courses, compare(course, claimedDuration, claimedFee))
		}
	}
	return courses
}

func compare(course Course, claimedDuration *duration, claimedFee *fee) model.CourseInfo {
	info := model.CourseInfo{
		Name:            course.Name,
		CatalogDuration: optional(course.Duration),
		CatalogFee:      optional(course.Fee),
	}

	var matched, mismatched int
	notes := []string{}

	switch catalogDuration, ok := parseDuration(course.Duration); {
	case claimedDuration == nil:
		notes = append(notes, "no duration mentioned")
	case !ok:
		info.ClaimedDuration = &claimedDuration.text
		notes = append(notes, "catalog duration not comparable")
	case claimedDuration.matches(catalogDuration):
		info.ClaimedDuration = &claimedDuration.text
		matched++
		notes = append(notes, "duration matches catalog")
	default:
		info.ClaimedDuration = &claimedDuration.text
		mismatched++
		notes = append(notes, fmt.Sprintf("duration differs from catalog (claimed %s, catalog %s)", claimedDuration.text, course.Duration))
	}

	switch catalogFee, ok := parseFee(course.Fee); {
	case claimedFee == nil:
		notes = append(notes, "no fee mentioned")
	case !ok:
		info.ClaimedFee = &claimedFee.text
		notes = append(notes, "catalog fee not comparable")
	case claimedFee.matches(catalogFee):
		info.ClaimedFee = &claimedFee.text
		matched++
		notes = append(notes, "fee matches catalog")
	default:
		info.ClaimedFee = &claimedFee.text
		mismatched++
		notes = append(notes, fmt.Sprintf("fee differs from catalog (claimed %s, catalog %s)", claimedFee.text, course.Fee))
	}

	switch {
	case mismatched == 0 && matched > 0:
		info.MatchStatus = model.MatchStatusMatch
	case matched == 0 && mismatched > 0:
		info.MatchStatus = model.MatchStatusMismatch
	default:
		info.MatchStatus = model.MatchStatusPartialMatch
	}

	switch matched + mismatched {
	case 0:
		info.ConfidenceScore = unverifiedConfidence
	case 1:
		info.ConfidenceScore = 0.75
	default:
		info.ConfidenceScore = 0.95
	}
	info.Notes = strings.Join(notes, "; ")

	return info
}

func mismatchFlags(courses []model.CourseInfo) []string {
	flags := []string{}
	for _, c := range courses {
		if c.MatchStatus == model.MatchStatusMismatch {
			flags = append(flags, fmt.Sprintf("Incorrect information about %s: %s", c.Name, c.Notes))
		}
	}
	return flags
}

func riskFlags(text string) []string {
	lower := strings.ToLower(text)
	flags := []string{}
	for _, risk := range riskLanguage {
		for _, phrase := range risk.phrases {
			if strings.Contains(lower, phrase) {
				flags = append(flags, fmt.Sprintf("%s: %q", risk.category, phrase))
			}
		}
	}
	return flags
}

// accuracy averages the courses for which at least one claim could be compared with the catalog.
func accuracy(courses []model.CourseInfo) float64 {
	var total float64
	var compared int
	for _, c := range courses {
		if c.ConfidenceScore == unverifiedConfidence {
			continue
		}
		compared++
		switch c.MatchStatus {
		case model.MatchStatusMatch:
			total += 1
		case model.MatchStatusPartialMatch:
			total += 0.5
		}
	}
	if compared == 0 {
		return 0
	}
	return math.Round(total/float64(compared)*100) / 100
}

func summarize(courses []model.CourseInfo, redFlags []string) string {
	if len(courses) == 0 {
		summary := "Course-related discussion found but no catalog course was mentioned."
		if len(redFlags) > 0 {
			summary += fmt.Sprintf(" %d red flag(s) raised.", len(redFlags))
		}
		return summary
	}

	counts := map[model.MatchStatus]int{}
	for _, c := range courses {
		counts[c.MatchStatus]++
	}
	summary := fmt.Sprintf("Verified %d course(s) against the catalog: %d match, %d partial match, %d mismatch.",
		len(courses), counts[model.MatchStatusMatch], counts[model.MatchStatusPartialMatch], counts[model.MatchStatusMismatch])
	if len(redFlags) > 0 {
		summary += fmt.Sprintf(" %d red flag(s) raised.", len(redFlags))
	}
	return summary
}

func emptyAnalysis(summary string, meta model.VerificationSessionMeta) *model.AudioAnalysis {
	return &model.AudioAnalysis{
		CoursesMentioned: []model.CourseInfo{},
		OverallSummary:   summary,
		AccuracyScore:    0,
		RedFlags:         []string{},
		SessionMetadata:  meta,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package answers defines the answer schema for every survey step and
// validates submitted answers before they reach the response store.
package answers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Kind identifies the question set of a step.
type Kind string

// Step kinds, in survey order. Info kinds carry no answer.
const (
	KindConsent            Kind = "consent"
	KindBasicInfo          Kind = "basic_info"
	KindDrivingExperience  Kind = "driving_experience"
	KindSoundSensitivity   Kind = "sound_sensitivity"
	KindAudioCheck         Kind = "audio_check"
	KindPrecondition       Kind = "precondition"
	KindEvaluation         Kind = "evaluation"
	KindGridSelection      Kind = "grid_selection"
	KindLadderingGood      Kind = "laddering_good"
	KindLadderingBad       Kind = "laddering_bad"
	KindInterviewIntro     Kind = "interview_intro"
	KindInterviewTopic1    Kind = "interview_topic1"
	KindInterviewTopic2    Kind = "interview_topic2"
	KindInterviewTopic3    Kind = "interview_topic3"
	KindOverallImpression  Kind = "overall_impression"
	KindAdditionalComments Kind = "additional_comments"
	KindCompletion         Kind = "completion"
)

// ErrInvalidAnswer is returned when a submitted answer does not match the
// step's schema.
var ErrInvalidAnswer = errors.New("invalid answer")

// Consent: all three boxes must be ticked.
type Consent struct {
	Participation    bool `json:"participation" validate:"required"`
	DataUsage        bool `json:"data_usage" validate:"required"`
	AudioRequirement bool `json:"audio_requirement" validate:"required"`
}

type BasicInfo struct {
	AgeGroup   string `json:"age_group" validate:"required,oneof=20-29 30-39 40-49 50-59 60-70"`
	Gender     string `json:"gender" validate:"required,oneof=male female other no_answer"`
	Prefecture string `json:"prefecture" validate:"required,max=64"`
}

type DrivingExperience struct {
	DrivingYears int  `json:"driving_years" validate:"gte=0,lte=50"`
	EVExperience bool `json:"ev_experience"`
}

type SoundSensitivity struct {
	Level int `json:"level" validate:"gte=1,lte=5"`
}

// AudioCheck is the respondent's pick at the comprehension check.
type AudioCheck struct {
	Answer string `json:"answer" validate:"required"`
}

// AudioCheckResult is what gets stored once the check passes.
type AudioCheckResult struct {
	Passed   bool   `json:"passed"`
	Answer   string `json:"answer"`
	Attempts int    `json:"attempts"`
}

// Evaluation rates one stimulus. SampleID is filled in by the flow
// controller from the current step, not trusted from the client.
type Evaluation struct {
	SampleID       string         `json:"sample_id"`
	SDScores       map[string]int `json:"sd_scores" validate:"required,len=9,dive,keys,oneof=volume texture pleasantness arousal luxury innovation power safety naturalness,endkeys,gte=-3,lte=3"`
	PurchaseIntent int            `json:"purchase_intent" validate:"gte=1,lte=7"`
	WTP            string         `json:"wtp" validate:"required,oneof=0 10k 30k 50k 100k 200k 300k+"`
	FreeComment    string         `json:"free_comment" validate:"max=2000"`
}

// SkippedEvaluation is stored in place of an Evaluation when the stimulus
// media could not be found.
type SkippedEvaluation struct {
	SampleID string `json:"sample_id"`
	Skipped  string `json:"skipped"`
}

type GridSelection struct {
	BestSound  string `json:"best_sound" validate:"required"`
	WorstSound string `json:"worst_sound" validate:"required"`
	BestAxis   string `json:"best_axis" validate:"required,oneof=volume texture pleasantness arousal luxury innovation power safety naturalness"`
	WorstAxis  string `json:"worst_axis" validate:"required,oneof=volume texture pleasantness arousal luxury innovation power safety naturalness"`
}

type LadderingGood struct {
	WhyGood          []string `json:"why_good" validate:"max=3,dive,required,why_good"`
	WhyGoodOther     string   `json:"why_good_other" validate:"max=500"`
	FeelingGood      []string `json:"feeling_good" validate:"max=3,dive,required,feeling_good"`
	FeelingGoodOther string   `json:"feeling_good_other" validate:"max=500"`
	SimilarSound     string   `json:"similar_sound" validate:"max=2000"`
}

type LadderingBad struct {
	WhyBad          []string `json:"why_bad" validate:"max=3,dive,required,why_bad"`
	WhyBadOther     string   `json:"why_bad_other" validate:"max=500"`
	FeelingBad      []string `json:"feeling_bad" validate:"max=3,dive,required,feeling_bad"`
	FeelingBadOther string   `json:"feeling_bad_other" validate:"max=500"`
	SimilarSound    string   `json:"similar_sound" validate:"max=2000"`
}

// InterviewTopic1 asks about the most memorable sound.
type InterviewTopic1 struct {
	ImpressiveSound  string `json:"impressive_sound" validate:"required"`
	ImpressiveReason string `json:"impressive_reason" validate:"max=2000"`
	ImpressionType   string `json:"impression_type" validate:"required,oneof=positive negative neutral"`
	ImpressionWhy    string `json:"impression_why" validate:"max=2000"`
}

// Importance scores purchase factors from 1 to 10.
type Importance struct {
	Price  int `json:"price" validate:"gte=1,lte=10"`
	Range  int `json:"range" validate:"gte=1,lte=10"`
	Design int `json:"design" validate:"gte=1,lte=10"`
	Brand  int `json:"brand" validate:"gte=1,lte=10"`
	Safety int `json:"safety" validate:"gte=1,lte=10"`
	Sound  int `json:"sound" validate:"gte=1,lte=10"`
}

// InterviewTopic2 asks how the driving sound weighs against other factors.
type InterviewTopic2 struct {
	ImportanceComparison Importance `json:"importance_comparison"`
	ComparisonComment    string     `json:"comparison_comment" validate:"max=2000"`
}

// InterviewTopic3 asks for the respondent's ideal sound.
type InterviewTopic3 struct {
	IdealSoundDescription string `json:"ideal_sound_description" validate:"max=2000"`
	SimilarExamples       string `json:"similar_examples" validate:"max=2000"`
	AdditionalThoughts    string `json:"additional_thoughts" validate:"max=2000"`
}

type OverallImpression struct {
	Impression string `json:"impression" validate:"max=4000"`
}

type AdditionalComments struct {
	Comments        string `json:"comments" validate:"max=4000"`
	SurveyFeedback  string `json:"survey_feedback" validate:"required,oneof=very_easy easy neutral hard very_hard"`
	FeedbackComment string `json:"feedback_comment" validate:"max=2000"`
}

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use. Initialized in init() with the laddering option lists.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Laddering picks must come from the fixed lists; free text goes in the
	// *_other fields.
	_ = validate.RegisterValidation("why_good", inList(WhyGoodOptions))
	_ = validate.RegisterValidation("feeling_good", inList(FeelingGoodOptions))
	_ = validate.RegisterValidation("why_bad", inList(WhyBadOptions))
	_ = validate.RegisterValidation("feeling_bad", inList(FeelingBadOptions))
}

// inList returns a validator.Func accepting only the given strings.
func inList(options []string) validator.Func {
	allowed := make(map[string]bool, len(options))
	for _, o := range options {
		allowed[o] = true
	}
	return func(fl validator.FieldLevel) bool {
		return allowed[fl.Field().String()]
	}
}

// Info reports whether a step kind takes no answer.
func Info(kind Kind) bool {
	switch kind {
	case KindPrecondition, KindInterviewIntro, KindCompletion:
		return true
	}
	return false
}

// New returns a pointer to a zero answer of the given kind, or nil for info
// kinds and unknown kinds.
func New(kind Kind) any {
	switch kind {
	case KindConsent:
		return &Consent{}
	case KindBasicInfo:
		return &BasicInfo{}
	case KindDrivingExperience:
		return &DrivingExperience{}
	case KindSoundSensitivity:
		return &SoundSensitivity{}
	case KindAudioCheck:
		return &AudioCheck{}
	case KindEvaluation:
		return &Evaluation{}
	case KindGridSelection:
		return &GridSelection{}
	case KindLadderingGood:
		return &LadderingGood{}
	case KindLadderingBad:
		return &LadderingBad{}
	case KindInterviewTopic1:
		return &InterviewTopic1{}
	case KindInterviewTopic2:
		return &InterviewTopic2{}
	case KindInterviewTopic3:
		return &InterviewTopic3{}
	case KindOverallImpression:
		return &OverallImpression{}
	case KindAdditionalComments:
		return &AdditionalComments{}
	}
	return nil
}

// Decode parses a JSON payload into the answer type for kind and validates it.
// Unknown fields are rejected.
func Decode(kind Kind, data []byte) (any, error) {
	v := New(kind)
	if v == nil {
		return nil, fmt.Errorf("%w: step %q takes no answer", ErrInvalidAnswer, kind)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAnswer, kind, err)
	}
	if err := Validate(kind, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that v is the answer type for kind and that its fields
// satisfy the schema. v may be a value or a pointer.
func Validate(kind Kind, v any) error {
	if v == nil {
		return fmt.Errorf("%w: %s: missing answer", ErrInvalidAnswer, kind)
	}
	if !matches(kind, v) {
		return fmt.Errorf("%w: %s: unexpected answer type %T", ErrInvalidAnswer, kind, v)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s: field %s failed %q", ErrInvalidAnswer, kind, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidAnswer, kind, err)
	}
	return nil
}

func matches(kind Kind, v any) bool {
	switch v.(type) {
	case Consent, *Consent:
		return kind == KindConsent
	case BasicInfo, *BasicInfo:
		return kind == KindBasicInfo
	case DrivingExperience, *DrivingExperience:
		return kind == KindDrivingExperience
	case SoundSensitivity, *SoundSensitivity:
		return kind == KindSoundSensitivity
	case AudioCheck, *AudioCheck:
		return kind == KindAudioCheck
	case Evaluation, *Evaluation:
		return kind == KindEvaluation
	case GridSelection, *GridSelection:
		return kind == KindGridSelection
	case LadderingGood, *LadderingGood:
		return kind == KindLadderingGood
	case LadderingBad, *LadderingBad:
		return kind == KindLadderingBad
	case InterviewTopic1, *InterviewTopic1:
		return kind == KindInterviewTopic1
	case InterviewTopic2, *InterviewTopic2:
		return kind == KindInterviewTopic2
	case InterviewTopic3, *InterviewTopic3:
		return kind == KindInterviewTopic3
	case OverallImpression, *OverallImpression:
		return kind == KindOverallImpression
	case AdditionalComments, *AdditionalComments:
		return kind == KindAdditionalComments
	}
	return false
}

package views

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/session"
)

var (
	sdValues   = []string{"-3", "-2", "-1", "0", "1", "2", "3"}
	sdLabels   = []string{"-3", "-2", "-1", "0", "+1", "+2", "+3"}
	levels5    = []string{"1", "2", "3", "4", "5"}
	intent7    = []string{"1", "2", "3", "4", "5", "6", "7"}
	importance = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	yesNo      = []string{"no", "yes"}
)

var importanceFactors = []struct{ id, label string }{
	{"price", "Price"},
	{"range", "Driving range"},
	{"design", "Design"},
	{"brand", "Brand"},
	{"safety", "Safety"},
	{"sound", "Driving sound"},
}

var phaseNames = map[int]string{
	flow.PhaseIntroduction: "Introduction",
	flow.PhaseEvaluation:   "Sound evaluation",
	flow.PhaseInterview:    "Interview",
	flow.PhaseSummary:      "Summary",
}

// PhaseName returns the display name of a phase.
func PhaseName(phase int) string {
	if n, ok := phaseNames[phase]; ok {
		return n
	}
	return fmt.Sprintf("Phase %d", phase)
}

// Title returns the heading of a step.
func Title(spec flow.StepSpec) string {
	switch spec.Kind {
	case answers.KindConsent:
		return "Consent"
	case answers.KindBasicInfo:
		return "About you"
	case answers.KindDrivingExperience:
		return "Driving experience"
	case answers.KindSoundSensitivity:
		return "Sensitivity to sound"
	case answers.KindAudioCheck:
		return "Audio check"
	case answers.KindPrecondition:
		return "Before you listen"
	case answers.KindEvaluation:
		return fmt.Sprintf("Sound %d of %d: %s", spec.StimulusIndex, spec.StimulusCount, spec.Stimulus)
	case answers.KindGridSelection:
		return "Best and worst"
	case answers.KindLadderingGood:
		return "What made the best sound good"
	case answers.KindLadderingBad:
		return "What made the worst sound bad"
	case answers.KindInterviewIntro:
		return "Interview"
	case answers.KindInterviewTopic1:
		return "The most memorable sound"
	case answers.KindInterviewTopic2:
		return "How much sound matters"
	case answers.KindInterviewTopic3:
		return "Your ideal sound"
	case answers.KindOverallImpression:
		return "Overall impression"
	case answers.KindAdditionalComments:
		return "Anything else"
	case answers.KindCompletion:
		return "Thank you"
	}
	return string(spec.Kind)
}

// Prompt returns the body text of a step.
func Prompt(spec flow.StepSpec) string {
	if spec.MissingAsset {
		return "The video for this sound is not available. Press Enter to continue with the next one."
	}
	switch spec.Kind {
	case answers.KindConsent:
		return "This survey asks how you perceive the driving sounds of electric vehicles. Tick all three boxes to take part."
	case answers.KindAudioCheck:
		return "Play the test audio and choose the sound you heard."
	case answers.KindPrecondition:
		return "Imagine you are driving alone on a city road. Play each video with headphones at a comfortable volume."
	case answers.KindEvaluation:
		return "Watch the video, then rate the sound on each scale."
	case answers.KindInterviewIntro:
		return "A few open questions about the sounds you heard. There are no right answers."
	case answers.KindCompletion:
		return "Your responses have been recorded. Press Enter to exit."
	}
	return ""
}

// StepForm builds the form for spec. order is the session's stimulus order
// and audioOptions the choices at the comprehension check.
func StepForm(spec flow.StepSpec, order, audioOptions []string) *Form {
	if spec.MissingAsset {
		return NewForm()
	}
	switch spec.Kind {
	case answers.KindConsent:
		return NewForm(
			Check("participation", "I agree to take part in this survey"),
			Check("data_usage", "I agree that my answers are used for research"),
			Check("audio_requirement", "I can play audio with headphones or speakers"),
		)
	case answers.KindBasicInfo:
		return NewForm(
			Choice("age_group", "Age", answers.AgeGroups, 0),
			Choice("gender", "Gender", answers.Genders, 0),
			Text("prefecture", "Prefecture of residence", "e.g. Aichi", 64),
		)
	case answers.KindDrivingExperience:
		return NewForm(
			Text("driving_years", "Years of driving", "0-50", 2).AsInt(),
			Choice("ev_experience", "Have you driven an electric vehicle?", yesNo, 0).AsBool(),
		)
	case answers.KindSoundSensitivity:
		return NewForm(
			Choice("level", "How sensitive are you to sound? (1 not at all, 5 very)", levels5, 2).AsInt(),
		)
	case answers.KindAudioCheck:
		return NewForm(Choice("answer", "Which sound did you hear?", audioOptions, 0))
	case answers.KindEvaluation:
		fields := make([]*Field, 0, len(answers.SDAxes)+3)
		for _, a := range answers.SDAxes {
			label := fmt.Sprintf("%s (%s -3 … +3 %s)", a.Name, a.Left, a.Right)
			fields = append(fields, Choice("sd_scores."+a.ID, label, sdValues, 3).WithLabels(sdLabels).AsInt())
		}
		fields = append(fields,
			Choice("purchase_intent", "Would you buy a car with this sound?", intent7, 3).WithLabels(answers.PurchaseIntentLabels).AsInt(),
			Choice("wtp", "Extra you would pay for this sound (yen)", answers.WTPOptions, 0),
			Text("free_comment", "Comment (optional)", "", 2000),
		)
		return NewForm(fields...)
	case answers.KindGridSelection:
		axes := answers.AxisIDs()
		return NewForm(
			Choice("best_sound", "Best sound", order, 0),
			Choice("worst_sound", "Worst sound", order, len(order)-1),
			Choice("best_axis", "Axis that mattered most for the best", axes, 0),
			Choice("worst_axis", "Axis that mattered most for the worst", axes, 0),
		)
	case answers.KindLadderingGood:
		return NewForm(
			Multi("why_good", "Why was it good?", answers.WhyGoodOptions, 3),
			Text("why_good_other", "Other reason", "", 500),
			Multi("feeling_good", "How did it make you feel?", answers.FeelingGoodOptions, 3),
			Text("feeling_good_other", "Other feeling", "", 500),
			Text("similar_sound", "A sound it reminds you of", "", 2000),
		)
	case answers.KindLadderingBad:
		return NewForm(
			Multi("why_bad", "Why was it bad?", answers.WhyBadOptions, 3),
			Text("why_bad_other", "Other reason", "", 500),
			Multi("feeling_bad", "How did it make you feel?", answers.FeelingBadOptions, 3),
			Text("feeling_bad_other", "Other feeling", "", 500),
			Text("similar_sound", "A sound it reminds you of", "", 2000),
		)
	case answers.KindInterviewTopic1:
		return NewForm(
			Choice("impressive_sound", "Which sound stayed with you most?", order, 0),
			Text("impressive_reason", "Why?", "", 2000),
			Choice("impression_type", "Was the impression", answers.Impressions, 2),
			Text("impression_why", "What made it so?", "", 2000),
		)
	case answers.KindInterviewTopic2:
		fields := make([]*Field, 0, len(importanceFactors)+1)
		for _, f := range importanceFactors {
			fields = append(fields, Choice("importance_comparison."+f.id, f.label+" (1-10)", importance, 4).AsInt())
		}
		fields = append(fields, Text("comparison_comment", "Comment", "", 2000))
		return NewForm(fields...)
	case answers.KindInterviewTopic3:
		return NewForm(
			Text("ideal_sound_description", "Describe your ideal driving sound", "", 2000),
			Text("similar_examples", "Sounds that come close", "", 2000),
			Text("additional_thoughts", "Anything to add", "", 2000),
		)
	case answers.KindOverallImpression:
		return NewForm(Text("impression", "Your overall impression of EV driving sounds", "", 4000))
	case answers.KindAdditionalComments:
		return NewForm(
			Text("comments", "Comments", "", 4000),
			Choice("survey_feedback", "How easy was this survey?", answers.FeedbackScales, 2),
			Text("feedback_comment", "Feedback", "", 2000),
		)
	}
	return NewForm()
}

// Assemble converts a filled form into the answer for spec. It returns nil
// for steps that take no answer. The result is validated by the controller.
func Assemble(spec flow.StepSpec, f *Form) (any, error) {
	if spec.MissingAsset || answers.Info(spec.Kind) {
		return nil, nil
	}
	doc := make(map[string]any)
	for _, fld := range f.Fields {
		v, err := fieldJSON(spec.Kind, fld)
		if err != nil {
			return nil, err
		}
		setPath(doc, fld.ID, v)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding answer: %w", err)
	}
	return answers.Decode(spec.Kind, data)
}

func fieldJSON(kind answers.Kind, fld *Field) (any, error) {
	switch fld.Kind {
	case FieldCheck:
		return fld.Checked(), nil
	case FieldMulti:
		return fld.Values(), nil
	}
	switch fld.Encoding {
	case "int":
		n, err := strconv.Atoi(fld.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s must be a whole number", answers.ErrInvalidAnswer, kind, fld.Label)
		}
		return n, nil
	case "bool":
		return fld.Value() == "yes", nil
	}
	return fld.Value(), nil
}

func setPath(doc map[string]any, path string, v any) {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		doc[head] = v
		return
	}
	child, ok := doc[head].(map[string]any)
	if !ok {
		child = make(map[string]any)
		doc[head] = child
	}
	setPath(child, rest, v)
}

func getPath(doc map[string]any, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := doc[head]
	if !ok || !nested {
		return v, ok
	}
	child, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return getPath(child, rest)
}

// Prefill loads the answer already stored for spec, so a respondent who
// navigates back sees what they entered. Unknown values are ignored.
func Prefill(f *Form, spec flow.StepSpec, responses *session.Responses) {
	if spec.Key == "" || responses == nil {
		return
	}
	var doc map[string]any
	if ok, err := responses.Decode(spec.Key, &doc); !ok || err != nil {
		return
	}
	for _, fld := range f.Fields {
		v, ok := getPath(doc, fld.ID)
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case bool:
			if fld.Encoding == "bool" {
				_ = fld.Set(yesNo[boolIndex(x)])
			} else {
				_ = fld.Set(strconv.FormatBool(x))
			}
		case float64:
			_ = fld.Set(strconv.Itoa(int(x)))
		case string:
			_ = fld.Set(x)
		case []any:
			vals := make([]string, 0, len(x))
			for _, e := range x {
				if s, ok := e.(string); ok {
					vals = append(vals, s)
				}
			}
			_ = fld.Set(vals...)
		}
	}
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

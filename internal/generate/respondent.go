package generate

import (
	"math"
	"math/rand/v2"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/flow"
)

// characteristics biases SD ratings per stimulus and axis. Stimuli not
// listed here are rated without bias.
var characteristics = map[string]map[string]float64{
	"Prius": {
		"volume": 1.5, "texture": 1.0, "pleasantness": 1.0, "arousal": -0.5, "luxury": 1.5,
		"innovation": 0.5, "power": -0.5, "safety": 1.5, "naturalness": 0.5,
	},
	"Model3": {
		"volume": 0.5, "texture": 0.5, "pleasantness": 0.5, "arousal": 1.5, "luxury": 1.0,
		"innovation": 2.0, "power": 1.5, "safety": 0.5, "naturalness": -1.0,
	},
	"Fit": {
		"volume": 0.0, "texture": 0.5, "pleasantness": 0.5, "arousal": 0.0, "luxury": -0.5,
		"innovation": -0.5, "power": 0.0, "safety": 0.5, "naturalness": 1.5,
	},
}

var (
	ageWeights    = []float64{0.15, 0.25, 0.30, 0.20, 0.10}
	genderWeights = []float64{0.55, 0.40, 0.025, 0.025}
	prefectures   = []string{"Tokyo", "Kanagawa", "Osaka", "Aichi", "Fukuoka", "Hokkaido", "Hyogo", "Saitama"}

	idealSounds = []string{
		"Present but not loud, with a premium feel.",
		"As quiet as possible while pedestrians can still hear it.",
		"Futuristic, but never intrusive.",
		"Natural enough that long drives are not tiring.",
	}
	overallImpressions = []string{
		"A good experience; I had not thought about EV sound before.",
		"Surprising how much the sound changes the impression.",
		"Useful, since I am considering an EV.",
		"I would like to hear more samples.",
	}
)

// respondent produces answers for one synthetic participant. Its answers
// are consistent across steps: the grid selection follows the SD ratings
// and purchase intent follows the mean rating.
type respondent struct {
	r           *rand.Rand
	sensitivity int
	ratings     map[string]map[string]int
	failCheck   bool
	wrongAnswer string
}

func newRespondent(r *rand.Rand, audioOptions []string, correct string) *respondent {
	p := &respondent{
		r:           r,
		sensitivity: 2 + r.IntN(3),
		ratings:     make(map[string]map[string]int),
	}
	// Roughly one in ten fails the comprehension check once.
	if r.Float64() < 0.1 {
		for _, o := range audioOptions {
			if o != correct {
				p.failCheck = true
				p.wrongAnswer = o
				break
			}
		}
	}
	return p
}

func (p *respondent) weighted(options []string, weights []float64) string {
	x := p.r.Float64()
	var acc float64
	for i, w := range weights {
		acc += w
		if x < acc {
			return options[i]
		}
	}
	return options[len(options)-1]
}

func (p *respondent) pick(options []string, n int) []string {
	perm := p.r.Perm(len(options))
	out := make([]string, 0, n)
	for _, i := range perm[:min(n, len(options))] {
		out = append(out, options[i])
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func (p *respondent) rate(stimulus string) map[string]int {
	if scores, ok := p.ratings[stimulus]; ok {
		return scores
	}
	bias := float64(p.sensitivity-3) * 0.1
	scores := make(map[string]int, len(answers.SDAxes))
	for _, axis := range answers.AxisIDs() {
		v := p.r.NormFloat64()*1.2 + characteristics[stimulus][axis] + bias
		scores[axis] = clamp(int(math.Round(v)), -3, 3)
	}
	p.ratings[stimulus] = scores
	return scores
}

func mean(scores map[string]int) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum int
	for _, v := range scores {
		sum += v
	}
	return float64(sum) / float64(len(scores))
}

// bestWorst returns the highest and lowest rated stimuli in order.
func (p *respondent) bestWorst(order []string) (string, string) {
	best, worst := order[0], order[0]
	for _, id := range order[1:] {
		if mean(p.rate(id)) > mean(p.rate(best)) {
			best = id
		}
		if mean(p.rate(id)) < mean(p.rate(worst)) {
			worst = id
		}
	}
	return best, worst
}

// answer returns the submission for spec. At the comprehension check the
// first attempt may be wrong; attempts is the number already made.
func (p *respondent) answer(spec flow.StepSpec, order []string, correct string, attempts int) any {
	switch spec.Kind {
	case answers.KindConsent:
		return &answers.Consent{Participation: true, DataUsage: true, AudioRequirement: true}
	case answers.KindBasicInfo:
		return &answers.BasicInfo{
			AgeGroup:   p.weighted(answers.AgeGroups, ageWeights),
			Gender:     p.weighted(answers.Genders, genderWeights),
			Prefecture: prefectures[p.r.IntN(len(prefectures))],
		}
	case answers.KindDrivingExperience:
		return &answers.DrivingExperience{DrivingYears: p.r.IntN(40), EVExperience: p.r.Float64() < 0.35}
	case answers.KindSoundSensitivity:
		return &answers.SoundSensitivity{Level: p.sensitivity}
	case answers.KindAudioCheck:
		if p.failCheck && attempts == 0 {
			return &answers.AudioCheck{Answer: p.wrongAnswer}
		}
		return &answers.AudioCheck{Answer: correct}
	case answers.KindEvaluation:
		if spec.MissingAsset {
			return nil
		}
		scores := p.rate(spec.Stimulus)
		intent := clamp(int(4+mean(scores)*0.8+p.r.NormFloat64()*0.8), 1, 7)
		wtp := clamp(intent-1+int(math.Round(p.r.NormFloat64())), 0, len(answers.WTPOptions)-1)
		return &answers.Evaluation{
			SDScores:       scores,
			PurchaseIntent: intent,
			WTP:            answers.WTPOptions[wtp],
		}
	case answers.KindGridSelection:
		best, worst := p.bestWorst(order)
		axes := answers.AxisIDs()
		return &answers.GridSelection{
			BestSound:  best,
			WorstSound: worst,
			BestAxis:   axes[p.r.IntN(len(axes))],
			WorstAxis:  axes[p.r.IntN(len(axes))],
		}
	case answers.KindLadderingGood:
		return &answers.LadderingGood{
			WhyGood:     p.pick(answers.WhyGoodOptions, 1+p.r.IntN(3)),
			FeelingGood: p.pick(answers.FeelingGoodOptions, 1+p.r.IntN(3)),
		}
	case answers.KindLadderingBad:
		return &answers.LadderingBad{
			WhyBad:     p.pick(answers.WhyBadOptions, 1+p.r.IntN(3)),
			FeelingBad: p.pick(answers.FeelingBadOptions, 1+p.r.IntN(3)),
		}
	case answers.KindInterviewTopic1:
		best, _ := p.bestWorst(order)
		impression := "positive"
		if p.r.Float64() < 0.3 {
			impression = "negative"
		}
		return &answers.InterviewTopic1{ImpressiveSound: best, ImpressionType: impression}
	case answers.KindInterviewTopic2:
		return &answers.InterviewTopic2{ImportanceComparison: answers.Importance{
			Price:  6 + p.r.IntN(5),
			Range:  5 + p.r.IntN(6),
			Design: 3 + p.r.IntN(6),
			Brand:  1 + p.r.IntN(8),
			Safety: 6 + p.r.IntN(5),
			Sound:  5 + p.r.IntN(5),
		}}
	case answers.KindInterviewTopic3:
		return &answers.InterviewTopic3{IdealSoundDescription: idealSounds[p.r.IntN(len(idealSounds))]}
	case answers.KindOverallImpression:
		return &answers.OverallImpression{Impression: overallImpressions[p.r.IntN(len(overallImpressions))]}
	case answers.KindAdditionalComments:
		return &answers.AdditionalComments{SurveyFeedback: answers.FeedbackScales[p.r.IntN(3)]}
	}
	return nil
}

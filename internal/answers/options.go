package answers

// Axis is one semantic-differential scale, scored -3 (Left) to +3 (Right).
type Axis struct {
	ID    string
	Name  string
	Left  string
	Right string
}

// SDAxes are the nine impression axes rated for every stimulus.
var SDAxes = []Axis{
	{ID: "volume", Name: "Loudness", Left: "noisy", Right: "quiet"},
	{ID: "texture", Name: "Texture", Left: "rough", Right: "smooth"},
	{ID: "pleasantness", Name: "Pleasantness", Left: "unpleasant", Right: "pleasant"},
	{ID: "arousal", Name: "Arousal", Left: "boring", Right: "exciting"},
	{ID: "luxury", Name: "Luxury", Left: "cheap", Right: "luxurious"},
	{ID: "innovation", Name: "Innovation", Left: "dated", Right: "advanced"},
	{ID: "power", Name: "Power", Left: "weak", Right: "powerful"},
	{ID: "safety", Name: "Reassurance", Left: "uneasy", Right: "reassuring"},
	{ID: "naturalness", Name: "Naturalness", Left: "artificial", Right: "natural"},
}

// AxisIDs returns the SD axis ids in display order.
func AxisIDs() []string {
	ids := make([]string, len(SDAxes))
	for i, a := range SDAxes {
		ids[i] = a.ID
	}
	return ids
}

// Option lists for choice questions. Validation tags below must stay in sync.
var (
	AgeGroups      = []string{"20-29", "30-39", "40-49", "50-59", "60-70"}
	Genders        = []string{"male", "female", "other", "no_answer"}
	WTPOptions     = []string{"0", "10k", "30k", "50k", "100k", "200k", "300k+"}
	Impressions    = []string{"positive", "negative", "neutral"}
	FeedbackScales = []string{"very_easy", "easy", "neutral", "hard", "very_hard"}
)

// PurchaseIntentLabels describes the 1..7 purchase-intent scale.
var PurchaseIntentLabels = []string{
	"1: not at all",
	"2: rather not",
	"3: slightly not",
	"4: neutral",
	"5: slightly",
	"6: would buy",
	"7: definitely",
}

// Laddering choices. Respondents pick up to three per question.
var (
	WhyGoodOptions = []string{
		"calming", "feels premium", "reassuring", "comfortable", "natural",
		"powerful", "advanced", "refined", "high quality", "smooth",
		"clean", "trustworthy", "elegant", "modern", "quiet",
	}
	FeelingGoodOptions = []string{
		"satisfied", "at ease", "confident", "relaxed", "excited",
		"proud", "happy", "calm", "positive", "special",
	}
	WhyBadOptions = []string{
		"noisy", "cheap", "unsettling", "unpleasant", "artificial",
		"weak", "dated", "crude", "low quality", "unnatural",
	}
	FeelingBadOptions = []string{
		"dissatisfied", "anxious", "irritated", "disappointed", "stressed",
		"embarrassed", "regretful", "uncomfortable",
	}
)

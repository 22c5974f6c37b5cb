package story

// PartKind enumerates the closed set of narrative part types.
type PartKind int

const (
	// KindInfo is display-only content advanced by an explicit continue action.
	KindInfo PartKind = iota
	// KindInfoImage is display-only content that auto-advances; the renderer
	// inserts a fixed delay between consecutive parts of this kind.
	KindInfoImage
	// KindChoice is a multiple-choice question.
	KindChoice
	// KindText is a free-text question matched against an answer set.
	KindText
	// KindPhrase is a phrase-building exercise, validated like KindText.
	KindPhrase
	// KindTeaRequest is constrained free text that must contain a required token.
	KindTeaRequest
)

// String returns a log-friendly name for the kind.
func (k PartKind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindInfoImage:
		return "info_image"
	case KindChoice:
		return "choice"
	case KindText:
		return "text"
	case KindPhrase:
		return "phrase"
	case KindTeaRequest:
		return "tea_request"
	}
	return "unknown"
}

// MatchRule selects how a free-text submission is compared against the
// acceptable answers. The rule is configured per part because the authored
// content mixes both styles.
type MatchRule int

const (
	// MatchExact requires the normalized submission to equal an answer.
	MatchExact MatchRule = iota
	// MatchContains requires the normalized submission to contain an answer.
	MatchContains
)

// Option is one selectable answer of a KindChoice part.
type Option struct {
	Label    string
	Correct  bool
	Feedback string
}

// Part is one block of a chapter. Kind determines which fields are meaningful:
// Options for KindChoice; Answers, Match and Reward for the free-text kinds;
// RequiredToken for KindTeaRequest. Image and Voice name media files relative
// to the configured media directories and may be empty.
type Part struct {
	Kind   PartKind
	Text   string
	Image  string
	Voice  string
	Praise string

	Options []Option

	Answers       []string
	Match         MatchRule
	RequiredToken string

	Reward int
}

// Interactive reports whether the part waits for user input.
func (p Part) Interactive() bool {
	switch p.Kind {
	case KindChoice, KindText, KindPhrase, KindTeaRequest:
		return true
	}
	return false
}

// Scored reports whether answering the part can award points.
func (p Part) Scored() bool {
	return p.Interactive() && p.Reward > 0
}

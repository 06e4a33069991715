package types

type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// CandidateQuote is one segment proposed by the semantic selector. It carries
// no timing: the segment is named purely by its approximate opening and
// closing words, which the alignment engine maps onto the word timeline.
type CandidateQuote struct {
	Title           string   `json:"title" validate:"required"`
	StartPhrase     string   `json:"start_text" validate:"required"`
	EndPhrase       string   `json:"end_text" validate:"required"`
	Hook            string   `json:"hook"`
	ContentSummary  string   `json:"content_summary"`
	ViralityScore   float64  `json:"virality_score" validate:"gte=0,lte=100"`
	ViralityReasons []string `json:"virality_reasons"`
}

// Proposal is the selector's full answer for one recording.
type Proposal struct {
	VideoSummary string           `json:"video_summary"`
	Quotes       []CandidateQuote `json:"shorts"`
}

// Short is a candidate after its phrases have been resolved to validated
// acoustic timestamps. StartTime/EndTime use the HH:MM:SS.mmm format the
// clipping step depends on for frame-accurate cuts.
type Short struct {
	Title           string   `json:"title"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationSeconds int      `json:"duration_seconds"`
	Hook            string   `json:"hook,omitempty"`
	ContentSummary  string   `json:"content_summary,omitempty"`
	ViralityScore   float64  `json:"virality_score"`
	ViralityReasons []string `json:"virality_reasons,omitempty"`
}

type Analysis struct {
	VideoSummary     string  `json:"video_summary"`
	TotalShortsFound int     `json:"total_shorts_found"`
	Shorts           []Short `json:"shorts"`
}

type GeneratedShort struct {
	ShortID         string `json:"short_id"`
	Title           string `json:"title"`
	FilePath        string `json:"file_path"`
	DurationSeconds int    `json:"duration_seconds"`
	DownloadURL     string `json:"download_url"`
}

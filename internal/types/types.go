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

// ClipWindow places a pre-cut clip on the transcript timeline. The cut file
// at File is expected to start at StartSec of the source.
type ClipWindow struct {
	ID       string  `json:"id"`
	File     string  `json:"file"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Category string  `json:"category"`
	StyleKey string  `json:"style_key,omitempty"`
	Title    string  `json:"title,omitempty"`
}

// Job is the batch input read from the job file.
type Job struct {
	Source         string       `json:"source,omitempty"`
	Transcript     *Transcript  `json:"transcript,omitempty"`
	TranscriptFile string       `json:"transcript_file,omitempty"`
	Clips          []ClipWindow `json:"clips"`
}

type VideoGeometry struct {
	Width  int
	Height int
	FPS    float64
}

// Aspect returns width/height, or 0 for a degenerate geometry.
func (g VideoGeometry) Aspect() float64 {
	if g.Height <= 0 {
		return 0
	}
	return float64(g.Width) / float64(g.Height)
}

// FaceSample is one detection in source pixel space.
type FaceSample struct {
	CenterX    float64
	Area       float64
	Confidence float64
}

type CropWindow struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Manifest struct {
	Job   string         `json:"job"`
	RunID string         `json:"run_id"`
	Clips []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID        string      `json:"id"`
	File      string      `json:"file"`
	Final     string      `json:"final"`
	Cropped   bool        `json:"cropped"`
	Subtitled bool        `json:"subtitled"`
	StyleUsed string      `json:"style_used"`
	Plan      string      `json:"plan"`
	Crop      *CropWindow `json:"crop"`
	Events    int         `json:"events"`
	Error     string      `json:"error,omitempty"`
}

package schema

// StyleAnalysis is the stylist's critique of a rendered outfit.
type StyleAnalysis struct {
	Score             int    `json:"score" yaml:"score" jsonschema:"minimum=0,maximum=100"`
	Verdict           string `json:"verdict" yaml:"verdict"`
	FitAnalysis       string `json:"fit_analysis" yaml:"fit_analysis"`
	ColorCoordination string `json:"color_coordination" yaml:"color_coordination"`
	Occasion          string `json:"occasion" yaml:"occasion"`
	Accessory         string `json:"accessory" yaml:"accessory"`
}

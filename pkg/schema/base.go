package schema

// DefaultPoses are the pose instructions offered in the studio. Index 0 is the
// canonical pose every base model is generated in.
var DefaultPoses = []string{
	"Full frontal view, hands on hips",
	"Slightly turned, 3/4 view",
	"Side profile view",
	"Jumping in the air, mid-action shot",
	"Walking towards camera",
	"Leaning against a wall",
}

// DefaultScenes are the background contexts offered in the studio. The
// first entry is the neutral studio backdrop base models are generated on.
var DefaultScenes = []string{
	"Studio",
	"Paris street cafe",
	"Tokyo neon night",
	"Beach at sunset",
	"Mountain trail",
	"Modern art gallery",
}

// ValidationLimits defines the constraints for various fields.
const (
	GarmentNameMin    = 1
	GarmentNameMax    = 100
	StyleScoreMin     = 0
	StyleScoreMax     = 100
	StyleVerdictMax   = 200
	StyleAnalysisMax  = 1000
	DescriptionMin    = 3
	DescriptionMax    = 500
	MultiGarmentLimit = 4
)

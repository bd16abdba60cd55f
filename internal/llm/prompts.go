package llm

import (
	"fmt"
	"strings"
)

// ImageOnlyRule is appended to every render prompt so the model answers with an image.
const ImageOnlyRule = "Return ONLY the final image. Do not return any text."

// BuildBaseModelPrompt creates a prompt turning a user photo into the base model.
func BuildBaseModelPrompt() string {
	return `You are an expert fashion photographer AI. Transform the person in this image into a full-body fashion model photo suitable for an e-commerce website.

REQUIREMENTS:
- Background: a clean, neutral studio backdrop (light gray, #f0f0f0)
- Expression: neutral, professional model expression
- Pose: standard, relaxed standing model pose
- Identity: preserve the person's identity, unique features and body type
- Style: photorealistic

` + ImageOnlyRule
}

// BuildTryOnPrompt creates a prompt dressing the model in a single garment.
func BuildTryOnPrompt() string {
	return `You are an expert virtual try-on AI. You will be given a 'model image' and a 'garment image'. Create a new photorealistic image where the person from the 'model image' is wearing the clothing from the 'garment image'.

RULES:
1. Complete garment replacement: remove and replace the clothing item worn by the person with the new garment. No part of the original clothing may remain visible.
2. Preserve the model: face, hair, body shape and pose must stay unchanged.
3. Preserve the background exactly.
4. Apply the garment realistically: it must fit the pose with natural folds, shadows and lighting consistent with the scene.

` + ImageOnlyRule
}

// BuildMultiTryOnPrompt creates a prompt dressing the model in several garments at once.
func BuildMultiTryOnPrompt(garmentNames []string) string {
	var sb strings.Builder

	sb.WriteString(`You are an expert virtual try-on AI. The first image is the 'model image'. Every following image is a garment. Create a new photorealistic image where the person from the 'model image' is wearing ALL of the garments together as one coherent outfit.

GARMENTS (in the order the images are attached):
`)
	for i, name := range garmentNames {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, name))
	}

	sb.WriteString(`
RULES:
1. Layer garments naturally (outerwear over tops, tops tucked or untucked as the style suggests).
2. Replace any original clothing the garments cover.
3. Preserve the model's face, hair, body shape and pose.
4. Preserve the background exactly.

`)
	sb.WriteString(ImageOnlyRule)
	return sb.String()
}

// BuildPosePrompt creates a prompt re-rendering the model in a different pose.
func BuildPosePrompt(pose string) string {
	return fmt.Sprintf(`You are an expert fashion photographer AI. Take this image and regenerate it from a different perspective. The person, clothing, and background style must remain identical.

The new perspective should be: "%s"

%s`, pose, ImageOnlyRule)
}

// BuildScenePrompt creates a prompt placing the model in a new scene.
func BuildScenePrompt(scene string) string {
	return fmt.Sprintf(`You are an expert fashion photographer AI. Place the person from this image into a new scene. The person, their pose, and their clothing must remain identical; only the background and lighting change.

The new scene is: "%s"

Match the lighting on the person to the new environment.

%s`, scene, ImageOnlyRule)
}

// BuildGarmentPrompt creates a prompt generating a garment product shot from a description.
func BuildGarmentPrompt(description string) string {
	return fmt.Sprintf(`You are a fashion product photographer AI. Generate a single garment as a flat-lay product photo on a plain white background, front facing, with no person and no mannequin.

GARMENT DESCRIPTION: "%s"

%s`, description, ImageOnlyRule)
}

// BuildStyleAnalysisPrompt creates a prompt for the stylist critique of an outfit.
func BuildStyleAnalysisPrompt() string {
	return `You are a professional fashion stylist. Critique the outfit worn by the person in this image.

Return ONLY valid JSON with this exact structure:
{
  "score": number between 0 and 100,
  "verdict": "one short sentence",
  "fit_analysis": "how the garments fit the body",
  "color_coordination": "how the colors work together",
  "occasion": "the occasions this outfit suits",
  "accessory": "one accessory that would complete the look"
}`
}

package schema

import (
	"fmt"
	"strings"
)

// ValidateWardrobeItem validates a wardrobe item.
func ValidateWardrobeItem(item *WardrobeItem) error {
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if len(item.Name) < GarmentNameMin || len(item.Name) > GarmentNameMax {
		return fmt.Errorf("name must be %d-%d characters", GarmentNameMin, GarmentNameMax)
	}
	if item.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// ValidateStyleAnalysis validates a style analysis returned by the model.
func ValidateStyleAnalysis(a *StyleAnalysis) error {
	if a.Score < StyleScoreMin || a.Score > StyleScoreMax {
		return fmt.Errorf("score must be %d-%d, got %d", StyleScoreMin, StyleScoreMax, a.Score)
	}
	if a.Verdict == "" || len(a.Verdict) > StyleVerdictMax {
		return fmt.Errorf("verdict must be 1-%d characters", StyleVerdictMax)
	}
	for field, value := range map[string]string{
		"fit_analysis":       a.FitAnalysis,
		"color_coordination": a.ColorCoordination,
		"occasion":           a.Occasion,
		"accessory":          a.Accessory,
	} {
		if len(value) > StyleAnalysisMax {
			return fmt.Errorf("%s must be at most %d characters", field, StyleAnalysisMax)
		}
	}
	return nil
}

// ValidateLayer validates an outfit layer before it enters a timeline.
func ValidateLayer(l *OutfitLayer) error {
	if l.PoseImages.Len() == 0 {
		return fmt.Errorf("layer must carry at least one pose image")
	}
	for _, pi := range l.PoseImages {
		if pi.Pose == "" {
			return fmt.Errorf("pose image has empty pose")
		}
		if pi.Image.IsZero() {
			return fmt.Errorf("pose %q has empty image", pi.Pose)
		}
	}
	if len(l.Garments) > 0 {
		if l.Garment == nil {
			return fmt.Errorf("multi-garment layer must set a primary garment")
		}
		if l.Garment.ID != l.Garments[0].ID {
			return fmt.Errorf("primary garment must be the first submitted garment")
		}
	}
	return nil
}

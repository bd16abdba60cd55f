package schema

import "strings"

// PoseImage is one generated render of a layer for a given pose.
type PoseImage struct {
	Pose  string   `yaml:"pose"`
	Image ImageRef `yaml:"image"`
}

// PoseImages maps pose instructions to renders, preserving insertion order.
type PoseImages []PoseImage

// Get returns the render for pose.
func (p PoseImages) Get(pose string) (ImageRef, bool) {
	for _, pi := range p {
		if pi.Pose == pose {
			return pi.Image, true
		}
	}
	return "", false
}

// Set overwrites the render for pose, or appends it if the pose is new.
func (p *PoseImages) Set(pose string, image ImageRef) {
	for i := range *p {
		if (*p)[i].Pose == pose {
			(*p)[i].Image = image
			return
		}
	}
	*p = append(*p, PoseImage{Pose: pose, Image: image})
}

// Has reports whether a render exists for pose.
func (p PoseImages) Has(pose string) bool {
	_, ok := p.Get(pose)
	return ok
}

// Len returns the number of cached renders.
func (p PoseImages) Len() int {
	return len(p)
}

// First returns the first-inserted render.
func (p PoseImages) First() (ImageRef, bool) {
	if len(p) == 0 {
		return "", false
	}
	return p[0].Image, true
}

// Keys returns the poses that have renders, in insertion order.
func (p PoseImages) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, pi := range p {
		keys = append(keys, pi.Pose)
	}
	return keys
}

// Clone returns an independent copy.
func (p PoseImages) Clone() PoseImages {
	if p == nil {
		return nil
	}
	out := make(PoseImages, len(p))
	copy(out, p)
	return out
}

// OutfitLayer is one node in the outfit history.
type OutfitLayer struct {
	ID string `yaml:"id"`

	// Garment is nil only for the base layer. For multi-garment layers it
	// holds the first submitted item.
	Garment  *WardrobeItem  `yaml:"garment,omitempty"`
	Garments []WardrobeItem `yaml:"garments,omitempty"`

	PoseImages PoseImages `yaml:"pose_images"`
}

// IsBase reports whether the layer is the root layer.
func (l *OutfitLayer) IsBase() bool {
	return l.Garment == nil
}

// GarmentIDs returns the ids of every garment carried by the layer.
func (l *OutfitLayer) GarmentIDs() []string {
	ids := []string{}
	if l.Garment != nil {
		ids = append(ids, l.Garment.ID)
	}
	for _, g := range l.Garments {
		ids = append(ids, g.ID)
	}
	return ids
}

// Label returns a human readable description of the layer.
func (l *OutfitLayer) Label() string {
	if l.Garment == nil {
		return "Base Model"
	}
	if len(l.Garments) > 1 {
		names := make([]string, 0, len(l.Garments))
		for _, g := range l.Garments {
			names = append(names, g.Name)
		}
		return strings.Join(names, " + ")
	}
	return l.Garment.Name
}

// Clone creates a deep copy of the layer.
func (l *OutfitLayer) Clone() *OutfitLayer {
	clone := &OutfitLayer{
		ID:         l.ID,
		PoseImages: l.PoseImages.Clone(),
	}
	if l.Garment != nil {
		g := *l.Garment
		clone.Garment = &g
	}
	if l.Garments != nil {
		clone.Garments = make([]WardrobeItem, len(l.Garments))
		copy(clone.Garments, l.Garments)
	}
	return clone
}

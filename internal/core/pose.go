package core

import (
	"fmt"

	"fitroom/pkg/schema"
)

type transitionState int

const (
	transitionTentative transitionState = iota
	transitionCommitted
	transitionReverted
)

func (s transitionState) String() string {
	switch s {
	case transitionTentative:
		return "tentative"
	case transitionCommitted:
		return "committed"
	case transitionReverted:
		return "reverted"
	}
	return fmt.Sprintf("transitionState(%d)", int(s))
}

// poseTransition switches the viewed pose before its render exists.
// While tentative the timeline shows the active layer's first render for the
// new pose; commit caches the render, revert restores the previous pose.
type poseTransition struct {
	timeline *Timeline
	from, to int
	state    transitionState
}

func beginPoseTransition(t *Timeline, to int) (*poseTransition, error) {
	from := t.ActivePoseIndex()
	if err := t.SetActivePoseIndex(to); err != nil {
		return nil, err
	}
	return &poseTransition{timeline: t, from: from, to: to}, nil
}

func (p *poseTransition) commit(pose string, image schema.ImageRef) (*schema.OutfitLayer, error) {
	if p.state != transitionTentative {
		return nil, fmt.Errorf("pose transition already %s", p.state)
	}
	layer, err := p.timeline.SetPoseImage(pose, image)
	if err != nil {
		return nil, err
	}
	p.state = transitionCommitted
	return layer, nil
}

func (p *poseTransition) revert() {
	if p.state != transitionTentative {
		return
	}
	// from was in range when the transition began and the catalog is fixed.
	_ = p.timeline.SetActivePoseIndex(p.from)
	p.state = transitionReverted
}

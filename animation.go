package spinebox

import (
	"fmt"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// DefaultMixDuration is the crossfade time, in seconds, used when a track
// switches animations.
const DefaultMixDuration = 0.2

// TrackEntry is an animation playing on a track.
type TrackEntry struct {
	Animation *Animation
	Loop      bool
	// Time is the track time in seconds. Looping entries wrap when applied.
	Time      float64
	TimeScale float64

	lastTime float64
}

// Complete reports whether a non-looping entry has reached its end.
func (e *TrackEntry) Complete() bool {
	return !e.Loop && e.Time >= e.Animation.Duration
}

// trackMix crossfades from a previous entry into the current one. The
// current entry's weight is tweened from 0 to 1.
type trackMix struct {
	from  *TrackEntry
	tween *gween.Tween
	alpha float64
}

// AnimationState plays animations on indexed tracks and poses a skeleton
// with them. Tracks apply in index order so higher tracks override lower
// ones. There is no global animation manager: owners call Update and Apply
// themselves.
type AnimationState struct {
	Data *SkeletonData
	// MixDuration is the crossfade used by SetAnimation. Zero switches
	// immediately.
	MixDuration float32
	// Ease shapes the crossfade.
	Ease      ease.TweenFunc
	TimeScale float64
	// OnEvent, if set, receives keyed events as they fire.
	OnEvent func(track int, e Event)

	tracks []*TrackEntry
	mixes  []*trackMix
}

// NewAnimationState returns an empty state for data.
func NewAnimationState(data *SkeletonData) *AnimationState {
	return &AnimationState{
		Data:        data,
		MixDuration: DefaultMixDuration,
		Ease:        ease.Linear,
		TimeScale:   1,
	}
}

// SetAnimation starts the named animation on track, crossfading from
// whatever was playing there.
func (s *AnimationState) SetAnimation(track int, name string, loop bool) (*TrackEntry, error) {
	if track < 0 {
		return nil, fmt.Errorf("spinebox: negative track %d", track)
	}
	anim := s.Data.FindAnimation(name)
	if anim == nil {
		return nil, fmt.Errorf("spinebox: animation %q not found", name)
	}
	for len(s.tracks) <= track {
		s.tracks = append(s.tracks, nil)
		s.mixes = append(s.mixes, nil)
	}
	entry := &TrackEntry{Animation: anim, Loop: loop, TimeScale: 1}
	prev := s.tracks[track]
	s.tracks[track] = entry
	s.mixes[track] = nil
	if prev != nil && s.MixDuration > 0 {
		s.mixes[track] = &trackMix{
			from:  prev,
			tween: gween.New(0, 1, s.MixDuration, s.Ease),
		}
	}
	return entry, nil
}

// Current returns the entry playing on track, or nil.
func (s *AnimationState) Current(track int) *TrackEntry {
	if track < 0 || track >= len(s.tracks) {
		return nil
	}
	return s.tracks[track]
}

// ClearTracks stops every track. The skeleton keeps its last pose until it
// is reset.
func (s *AnimationState) ClearTracks() {
	s.tracks = s.tracks[:0]
	s.mixes = s.mixes[:0]
}

// Update advances every track by dt seconds and fires events.
func (s *AnimationState) Update(dt float64) {
	dt *= s.TimeScale
	for i, e := range s.tracks {
		if e == nil {
			continue
		}
		e.lastTime = e.Time
		e.Time += dt * e.TimeScale
		if m := s.mixes[i]; m != nil {
			m.from.lastTime = m.from.Time
			m.from.Time += dt * m.from.TimeScale
			v, done := m.tween.Update(float32(dt))
			m.alpha = float64(v)
			if done {
				s.mixes[i] = nil
			}
		}
		if s.OnEvent != nil {
			for _, ev := range e.Animation.Events(e.lastTime, e.Time, e.Loop) {
				s.OnEvent(i, ev)
			}
		}
	}
}

// Apply resets skel to its setup pose and poses it from every track.
func (s *AnimationState) Apply(skel *Skeleton) {
	skel.SetToSetupPose()
	for i, e := range s.tracks {
		if e == nil {
			continue
		}
		if m := s.mixes[i]; m != nil {
			m.from.Animation.Apply(skel, m.from.Time, m.from.Loop, 1)
			e.Animation.Apply(skel, e.Time, e.Loop, m.alpha)
			continue
		}
		e.Animation.Apply(skel, e.Time, e.Loop, 1)
	}
}

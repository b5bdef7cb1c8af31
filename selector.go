package spinebox

import "fmt"

// Selector holds the chosen clip and skin for the current selection and
// applies them to entities.
type Selector struct {
	AnimationIndex int
	SkinIndex      int

	animations []string
	skins      []string
}

// Reset adopts skel's clip and skin lists. The clip returns to the first one;
// the skin defaults to the second when more than one exists, since the first
// is usually the bare default skin.
func (s *Selector) Reset(skel *DecodedSkeleton) {
	s.animations = skel.Animations()
	s.skins = skel.Skins()
	s.AnimationIndex = 0
	s.SkinIndex = 0
	if len(s.skins) > 1 {
		s.SkinIndex = 1
	}
}

// Clear forgets the clip and skin lists.
func (s *Selector) Clear() {
	*s = Selector{}
}

// Animations returns the selectable clip names.
func (s *Selector) Animations() []string { return s.animations }

// Skins returns the selectable skin names.
func (s *Selector) Skins() []string { return s.skins }

// Animation returns the selected clip name, or "" when there are none.
func (s *Selector) Animation() string {
	if s.AnimationIndex < 0 || s.AnimationIndex >= len(s.animations) {
		return ""
	}
	return s.animations[s.AnimationIndex]
}

// Skin returns the selected skin name, or "" when there are none.
func (s *Selector) Skin() string {
	if s.SkinIndex < 0 || s.SkinIndex >= len(s.skins) {
		return ""
	}
	return s.skins[s.SkinIndex]
}

// ApplyTo sets the selected skin and looping clip (track 0) on e. Empty
// lists are skipped.
func (s *Selector) ApplyTo(e *Entity) error {
	if name := s.Skin(); name != "" {
		if err := e.SetSkinByName(name); err != nil {
			return err
		}
	}
	if name := s.Animation(); name != "" {
		if err := e.SetAnimation(0, name, true); err != nil {
			return err
		}
	}
	return nil
}

// ChangeAnimation selects clip i and applies it to every live entity before
// returning. An out-of-range index leaves the state unchanged.
func (s *Selector) ChangeAnimation(i int, live []*Entity) error {
	if i < 0 || i >= len(s.animations) {
		return fmt.Errorf("spinebox: animation %d of %d: %w", i, len(s.animations), ErrIndexOutOfRange)
	}
	s.AnimationIndex = i
	name := s.animations[i]
	for _, e := range live {
		if err := e.SetAnimation(0, name, true); err != nil {
			return err
		}
	}
	return nil
}

// ChangeSkin selects skin i and applies it to every live entity before
// returning. An out-of-range index leaves the state unchanged.
func (s *Selector) ChangeSkin(i int, live []*Entity) error {
	if i < 0 || i >= len(s.skins) {
		return fmt.Errorf("spinebox: skin %d of %d: %w", i, len(s.skins), ErrIndexOutOfRange)
	}
	s.SkinIndex = i
	name := s.skins[i]
	for _, e := range live {
		if err := e.SetSkinByName(name); err != nil {
			return err
		}
	}
	return nil
}

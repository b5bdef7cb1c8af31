package ecs

import (
	"github.com/phanxgames/spinebox"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// PoolEventType is the Donburi event type for pool lifecycle events.
var PoolEventType = events.NewEventType[spinebox.PoolEvent]()

// LiveEntity describes one live spinebox entity.
type LiveEntity struct {
	ID     uint32
	Role   spinebox.EntityRole
	Bundle string
}

// LiveEntityComponent is attached to the donburi mirror of each entity.
var LiveEntityComponent = donburi.NewComponentType[LiveEntity]()

var liveQuery = donburi.NewQuery(filter.Contains(LiveEntityComponent))

// DonburiStore mirrors pool entities into a Donburi world.
type DonburiStore struct {
	world donburi.World
	live  map[uint32]donburi.Entity
}

// NewDonburiStore creates an EntityStore backed by world.
func NewDonburiStore(world donburi.World) *DonburiStore {
	return &DonburiStore{world: world, live: make(map[uint32]donburi.Entity)}
}

// Record implements spinebox.EntityStore.
func (s *DonburiStore) Record(ev spinebox.PoolEvent) {
	switch ev.Kind {
	case spinebox.EntitySpawned:
		ent := s.world.Create(LiveEntityComponent)
		LiveEntityComponent.SetValue(s.world.Entry(ent), LiveEntity{
			ID:     ev.EntityID,
			Role:   ev.Role,
			Bundle: ev.Bundle,
		})
		s.live[ev.EntityID] = ent
	case spinebox.EntityDestroyed:
		if ent, ok := s.live[ev.EntityID]; ok {
			s.world.Remove(ent)
			delete(s.live, ev.EntityID)
		}
	}
	PoolEventType.Publish(s.world, ev)
}

// Count returns how many live entities the world mirrors.
func (s *DonburiStore) Count() int {
	return liveQuery.Count(s.world)
}

// CountRole returns how many mirrored entities have role.
func (s *DonburiStore) CountRole(role spinebox.EntityRole) int {
	n := 0
	liveQuery.Each(s.world, func(e *donburi.Entry) {
		if LiveEntityComponent.Get(e).Role == role {
			n++
		}
	})
	return n
}

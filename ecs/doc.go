// Package ecs mirrors spinebox's entity pool into a [Donburi] world.
//
// [NewDonburiStore] returns a [spinebox.EntityStore]. Every spawned entity
// gets a donburi entity carrying a [LiveEntity] component, removed again
// when the pool destroys it, and every lifecycle change is published as a
// [PoolEventType] event.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	sandbox.Pool.Store = store
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs

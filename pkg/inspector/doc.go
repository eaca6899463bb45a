// Package inspector serves a read-only HTTP and WebSocket view of running
// stores for debugging.
//
// An Inspector is a store.Observer. After every action it takes a snapshot of
// the store on the action's goroutine and keeps it, so HTTP handlers never
// touch live state:
//
//	insp := inspector.New()
//	todos, _ := store.New("todos", initial, actions, store.WithObserver(insp))
//	insp.Watch(todos)
//	go http.ListenAndServe("localhost:7070", insp.Handler())
//
// Routes:
//
//	GET /stores        store summaries
//	GET /stores/{id}   one store with its latest snapshot
//	GET /events        recent action events, oldest first
//	GET /ws            action events as they happen, one JSON message each
package inspector

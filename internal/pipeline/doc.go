// Package pipeline coordinates refreshing, caching and applying the
// Astronomy Picture of the Day.
//
// # State Machine
//
// Transition is a pure function from (State, Input) to (State, Event):
//
//	Idle{r}       --RefreshRequested-->          Fetching   (generation++)
//	Fetching      --FetchCompleted ok-->         Idle{new}  RefreshSucceeded
//	Fetching      --FetchCompleted err-->        Idle{r}    RefreshFailed
//	Fetching      --FetchCompleted no image-->   Idle{r}    RefreshIncomplete
//	Idle{some r}  --ApplyRequested-->            Applying   (generation++)
//	Applying      --ApplyCompleted-->            Idle{r}    ApplySucceeded | ApplyFailed
//	Idle{r}       --CacheReplaced{r2}-->         Idle{r2}   CacheReplaced
//
// Anything else, including a completion whose generation is not the current
// one, yields EventNone and leaves the state untouched. Only one fetch or
// apply is ever in flight; requests made while busy are dropped, not queued.
//
// # Controller
//
// Controller wraps Transition with a mutex, runs network and filesystem work
// on worker goroutines and publishes every accepted event to subscribers.
// Events are queued under the state lock and delivered in order by a single
// dispatcher goroutine, so observers see a total order and may call back into
// the controller.
//
// A fetched record is saved to the Store before its completion is fed back.
// A failed save is logged, counted and reported as Event.SaveErr; the
// in-memory record stays current regardless.
package pipeline

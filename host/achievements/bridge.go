// Package achievements implements the achievements bridge (spec.md
// §4.9, C9): a thin, polling-style adaptor between the RetroAchievements
// runtime client (github.com/user-none/go-rcheevos, which holds its own
// state) and the client thread.
package achievements

import (
	"github.com/user-none/go-rcheevos"
)

const (
	defaultHTTPQueueCapacity  = 32
	defaultEventQueueCapacity = 64

	// httpStatusBridgeFull is the client-error status (429 Too Many
	// Requests) returned synchronously to the runtime when the HTTP
	// queue has no free slot (spec.md §7 "BridgeFull").
	httpStatusBridgeFull = 429
)

// Bridge owns a runtime client plus the two fixed-capacity queues that
// turn its push-style callbacks (server calls, events) into something
// the client thread can drain non-blockingly.
type Bridge struct {
	client *rcheevos.Client
	mem    *MemoryReader
	http   *HTTPQueue
	events *EventQueue

	loggedIn   bool
	username   string
	gameLoaded bool
}

// New constructs a bridge. real resolves translated addresses to host
// memory (typically the link cable bridge's region table, reused per
// spec.md §4.9's "via the host's memory-read primitive (§4.8
// resolver)"); provider builds the console's virtual→real region table
// once Init supplies a console ID.
func New(real RangeReader, provider RegionProvider) *Bridge {
	b := &Bridge{
		mem:    NewMemoryReader(real, provider),
		http:   NewHTTPQueue(defaultHTTPQueueCapacity),
		events: NewEventQueue(defaultEventQueueCapacity),
	}
	b.client = rcheevos.NewClient(b.mem.Read, b.serverCall)
	b.client.SetEventHandler(b.handleEvent)
	return b
}

// Init records the console ID for the game the host has loaded, which
// the memory reader needs to build its virtual region table. The host
// already knows this from the core's system info, so there is no need
// to wait on the runtime to expose it.
func (b *Bridge) Init(consoleID uint32) {
	b.mem.SetConsoleID(consoleID)
}

// LoginWithToken authenticates with a previously obtained token. The
// result is reported asynchronously via PollEvent as EventLoginSuccess
// or EventLoginFailure.
func (b *Bridge) LoginWithToken(username, token string) {
	b.client.LoginWithToken(username, token, func(result int, errMsg string) {
		if result != rcheevos.OK {
			b.events.Push(Event{Kind: EventLoginFailure, ErrorCode: result, ErrorMessage: errMsg})
			return
		}
		b.loggedIn = true
		b.username = username
		b.events.Push(Event{Kind: EventLoginSuccess})
	})
}

// LoadGame identifies and loads a game by its content hash. The result
// is reported via PollEvent as EventLoadGameSuccess or
// EventLoadGameFailure.
func (b *Bridge) LoadGame(hash string) {
	b.client.LoadGame(hash, func(result int, errMsg string) {
		if result != rcheevos.OK {
			b.events.Push(Event{Kind: EventLoadGameFailure, ErrorCode: result, ErrorMessage: errMsg})
			return
		}
		b.gameLoaded = true
		b.events.Push(Event{Kind: EventLoadGameSuccess})
	})
}

// Unload tears down the runtime's per-game state.
func (b *Bridge) Unload() {
	if !b.gameLoaded {
		return
	}
	b.gameLoaded = false
	b.client.UnloadGame()
}

// Reset notifies the runtime the emulated system was reset.
func (b *Bridge) Reset() {
	b.client.Reset()
}

// Logout logs the current user out and clears the game-loaded flag.
func (b *Bridge) Logout() {
	b.client.Logout()
	b.loggedIn = false
	b.username = ""
	b.gameLoaded = false
}

// Destroy releases the runtime client's resources.
func (b *Bridge) Destroy() {
	b.client.Destroy()
}

// SetHardcore toggles hardcore mode.
func (b *Bridge) SetHardcore(enabled bool) {
	b.client.SetHardcoreModeEnabled(enabled)
}

// SetEncore toggles encore mode.
func (b *Bridge) SetEncore(enabled bool) {
	b.client.SetEncoreModeEnabled(enabled)
}

// DoFrame processes one frame of achievement logic; call once per
// emulated frame from the scheduler's per-frame hook.
func (b *Bridge) DoFrame() {
	b.client.DoFrame()
}

// Idle processes periodic runtime tasks while the scheduler is stopped.
func (b *Bridge) Idle() {
	b.client.Idle()
}

// PollHTTPRequest returns the oldest undelivered runtime HTTP request,
// or false if none is pending.
func (b *Bridge) PollHTTPRequest() (PendingRequest, bool) {
	return b.http.Poll()
}

// SubmitHTTPResponse answers request id with the given body and status.
func (b *Bridge) SubmitHTTPResponse(id int64, body []byte, status int) bool {
	return b.http.Submit(id, body, status)
}

// PollEvent returns the oldest queued event, or false if none is
// pending.
func (b *Bridge) PollEvent() (Event, bool) {
	return b.events.Poll()
}

func (b *Bridge) IsLoggedIn() bool { return b.loggedIn }
func (b *Bridge) UserName() string { return b.username }

// GameTitle returns the currently loaded game's title, or "" if none.
func (b *Bridge) GameTitle() string {
	g := b.client.GetGame()
	if g == nil {
		return ""
	}
	return g.Title
}

// GameID returns the currently loaded game's runtime ID, or 0 if none.
func (b *Bridge) GameID() uint32 {
	g := b.client.GetGame()
	if g == nil {
		return 0
	}
	return g.ID
}

// achievementStats walks the current session's achievement list once
// and aggregates counts/points in a single pass.
func (b *Bridge) achievementStats() (count, unlocked, totalPoints, unlockedPoints int) {
	list := b.client.CreateAchievementList(rcheevos.AchievementCategoryCore, rcheevos.AchievementListGroupingLockState)
	if list == nil {
		return 0, 0, 0, 0
	}
	defer list.Destroy()

	for _, ach := range list.GetAllAchievements() {
		count++
		totalPoints += ach.Points
		if ach.Unlocked != rcheevos.AchievementUnlockedNone {
			unlocked++
			unlockedPoints += ach.Points
		}
	}
	return
}

func (b *Bridge) AchievementCount() int {
	c, _, _, _ := b.achievementStats()
	return c
}

func (b *Bridge) UnlockedCount() int {
	_, u, _, _ := b.achievementStats()
	return u
}

func (b *Bridge) TotalPoints() int {
	_, _, t, _ := b.achievementStats()
	return t
}

func (b *Bridge) UnlockedPoints() int {
	_, _, _, u := b.achievementStats()
	return u
}

// serverCall is the runtime's HTTP callback. Requests are copied into
// the heap-owned HTTPQueue rather than dispatched with an http.Client
// directly, so the client thread controls when and how the actual
// network call happens (spec.md §4.9 "HTTP queue").
func (b *Bridge) serverCall(request *rcheevos.ServerRequest) {
	_, ok := b.http.Enqueue(request.URL, request.PostData, request.ContentType, func(body []byte, status int) {
		request.Respond(body, status)
	})
	if !ok {
		request.Respond(nil, httpStatusBridgeFull)
	}
}

// handleEvent normalizes the runtime's event into the host's plain
// Event value and enqueues it, but only for the allow-listed subset;
// challenge/progress/leaderboard events (and anything else unrecognized)
// are dropped so they never surface as spurious unlock toasts (spec.md
// §4.9 "Event queue").
func (b *Bridge) handleEvent(event *rcheevos.Event) {
	var e Event

	switch event.Type {
	case rcheevos.EventAchievementTriggered:
		if event.Achievement == nil {
			return
		}
		e = Event{
			Kind:          EventAchievementTriggered,
			Title:         event.Achievement.Title,
			Description:   event.Achievement.Description,
			Points:        event.Achievement.Points,
			AchievementID: event.Achievement.ID,
			BadgeURL:      b.client.GetAchievementImageURL(event.Achievement, rcheevos.AchievementStateUnlocked),
		}
	case rcheevos.EventGameCompleted:
		e = Event{Kind: EventGameCompleted}
	case rcheevos.EventServerError:
		msg := ""
		if event.ServerError != nil {
			msg = event.ServerError.ErrorMessage
		}
		e = Event{Kind: EventServerError, ErrorMessage: msg}
	case rcheevos.EventDisconnected:
		e = Event{Kind: EventDisconnected}
	case rcheevos.EventReconnected:
		e = Event{Kind: EventReconnected}
	case rcheevos.EventSubsetCompleted:
		e = Event{Kind: EventSubsetCompleted}
	default:
		return
	}

	b.events.Push(e)
}

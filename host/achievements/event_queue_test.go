package achievements

import "testing"

func TestEventQueueFIFOOrder(t *testing.T) {
	q := NewEventQueue(4)
	q.Push(Event{Kind: EventAchievementTriggered, AchievementID: 1})
	q.Push(Event{Kind: EventAchievementTriggered, AchievementID: 2})
	q.Push(Event{Kind: EventAchievementTriggered, AchievementID: 3})

	for i, want := range []uint32{1, 2, 3} {
		e, ok := q.Poll()
		if !ok || e.AchievementID != want {
			t.Fatalf("poll %d: got %+v, want AchievementID=%d", i, e, want)
		}
	}
	if _, ok := q.Poll(); ok {
		t.Fatalf("queue should be empty")
	}
}

func TestEventQueueOverflowDropsOldest(t *testing.T) {
	q := NewEventQueue(2)
	q.Push(Event{Kind: EventAchievementTriggered, AchievementID: 1})
	q.Push(Event{Kind: EventAchievementTriggered, AchievementID: 2})
	q.Push(Event{Kind: EventAchievementTriggered, AchievementID: 3}) // drops 1

	e, ok := q.Poll()
	if !ok || e.AchievementID != 2 {
		t.Fatalf("expected oldest-drop to leave 2 first, got %+v", e)
	}
	e, ok = q.Poll()
	if !ok || e.AchievementID != 3 {
		t.Fatalf("expected 3 second, got %+v", e)
	}
}

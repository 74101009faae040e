package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"raid-dashboard/events"
	"raid-dashboard/logger"

	"github.com/gofiber/fiber/v2"
)

const sseKeepAlive = 15 * time.Second

// ProfileStream pushes the caller's profile changes over server-sent events.
type ProfileStream struct {
	Bus      *events.ProfileBus
	Profiles *ProfileService
}

func NewProfileStream(bus *events.ProfileBus, profiles *ProfileService) *ProfileStream {
	return &ProfileStream{Bus: bus, Profiles: profiles}
}

// Stream emits a "profile" event with the current state, then one per change.
func (s *ProfileStream) Stream(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	initial, err := s.Profiles.Get(c.UserContext(), userID)
	if err != nil {
		logger.Warnf("[SSE] initial profile for %s: %v", userID, err)
	}

	updates, cancel := s.Bus.SubscribeFunc(events.ForUser(userID))
	done := c.Context().Done()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		if initial != nil {
			_ = writeEvent(w, "profile", events.ProfileUpdated{
				UserID:      initial.ID,
				Change:      events.ProfileSnapshot,
				CurrentXP:   initial.CurrentXP,
				CurrentRank: initial.CurrentRank,
				RaidPoints:  initial.RaidPoints,
				At:          time.Now().UTC(),
			})
		} else {
			w.WriteString(":\n\n")
		}
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, "profile", ev); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}
			case <-ticker.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, name string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}

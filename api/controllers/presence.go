package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/presence"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// PresenceTracker is the read and subscribe surface of the driver presence tracker.
type PresenceTracker interface {
	IsOnline(driverID string) bool
	OnlineDrivers() []string
	Subscribe(ctx context.Context, driverID string, fn func(online bool)) (*presence.Subscription, error)
}

type driverPresenceResponse struct {
	DriverID string `json:"driver_id"`
	Online   bool   `json:"online"`
}

func DriverPresence(tracker PresenceTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := validators.StringParam(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, driverPresenceResponse{DriverID: driverID, Online: tracker.IsOnline(driverID)})
	}
}

func OnlineDrivers(tracker PresenceTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drivers := tracker.OnlineDrivers()
		responses.WriteSuccess(w, map[string]any{"drivers": drivers, "count": len(drivers)})
	}
}

var presenceUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers are authenticated by access token, not by origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// DriverPresenceStream upgrades to a websocket and pushes a frame with the
// driver's state on connect and on every change until either side leaves.
func DriverPresenceStream(tracker PresenceTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := validators.StringParam(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithDriverID(r.Context(), driverID)

		// Only the latest state matters to a slow reader.
		latest := make(chan bool, 1)
		sub, err := tracker.Subscribe(ctx, driverID, func(online bool) {
			select {
			case <-latest:
			default:
			}
			latest <- online
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to driver presence"))
			return
		}
		defer sub.Unsubscribe()

		conn, err := presenceUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "presence stream upgrade failed")
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(streamPongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		write := func(online bool) error {
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			return conn.WriteJSON(driverPresenceResponse{DriverID: driverID, Online: online})
		}
		if err := write(sub.Online()); err != nil {
			return
		}
		logg.Debug(ctx, "presence stream opened")

		ping := time.NewTicker(streamPingPeriod)
		defer ping.Stop()
		for {
			select {
			case online := <-latest:
				if err := write(online); err != nil {
					logg.Debug(logg.WithField(ctx, "error", err.Error()), "presence stream write failed")
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
					return
				}
			case <-done:
				logg.Debug(ctx, "presence stream closed by client")
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(streamWriteWait))
				return
			}
		}
	}
}

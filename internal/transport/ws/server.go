// Package ws is the push transport: one WebSocket connection per operator
// console. The handshake is a HELLO/WELCOME exchange; after that the world
// pushes state frames while the reader dispatches control messages.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/protocol"
	"skyfleet.ai/internal/sim/world"
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
)

var sessionSeq atomic.Uint64

type Server struct {
	world *world.World
	log   zerolog.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, log zerolog.Logger) *Server {
	return &Server{
		world: w,
		log:   log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub := s.handshake(conn)
		if sub == nil {
			return
		}
		defer s.world.Unsubscribe(sub.ID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. Everything the client receives, including acks,
		// flows through the subscriber channel so the conn has one writer.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sub.Out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			s.dispatch(sub, msg)
		}
	}
}

// handshake expects HELLO as the first frame and registers the session
// with the world, which pushes WELCOME and WORLD_STATE in response.
func (s *Server) handshake(conn *websocket.Conn) *world.Subscriber {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}

	id := fmt.Sprintf("sess-%06d", sessionSeq.Add(1))
	sub := s.world.Subscribe(id, hello.Subscriptions)
	s.log.Info().Str("session", id).Str("client", hello.ClientName).Msg("client connected")
	return sub
}

// dispatch routes one inbound frame. Malformed JSON and unknown types get
// an ERROR frame; recognized requests get an ACK either way.
func (s *Server) dispatch(sub *world.Subscriber, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.pushError(sub, protocol.ErrProtoBadRequest, "malformed message")
		return
	}

	switch base.Type {
	case protocol.TypeControl:
		var m protocol.ControlMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.pushError(sub, protocol.ErrProtoBadRequest, "malformed CONTROL")
			return
		}
		s.ack(sub, protocol.TypeControl, m.RequestID, "", s.applyControl(m))
	case protocol.TypeCreateOrder:
		var m protocol.CreateOrderMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.pushError(sub, protocol.ErrProtoBadRequest, "malformed CREATE_ORDER")
			return
		}
		req := world.CreateOrderRequest{
			RestaurantID: m.RestaurantID,
			CustomerID:   m.CustomerID,
			Priority:     world.Priority(m.Priority),
		}
		for _, it := range m.Items {
			req.Items = append(req.Items, world.CreateOrderItem{ItemID: it.ItemID, Quantity: it.Quantity})
		}
		orderID, err := s.world.CreateOrder(req)
		s.ack(sub, protocol.TypeCreateOrder, m.RequestID, orderID, err)
	case protocol.TypeVehicleCommand:
		var m protocol.VehicleCommandMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.pushError(sub, protocol.ErrProtoBadRequest, "malformed VEHICLE_COMMAND")
			return
		}
		err := s.world.CommandVehicle(m.VehicleID, m.Command)
		s.ack(sub, protocol.TypeVehicleCommand, m.RequestID, m.VehicleID, err)
	default:
		s.pushError(sub, protocol.ErrProtoBadRequest, "unknown message type "+base.Type)
	}
}

func (s *Server) applyControl(m protocol.ControlMsg) error {
	switch m.Action {
	case protocol.ActionStart:
		return s.world.Start()
	case protocol.ActionPause:
		return s.world.Pause()
	case protocol.ActionResume:
		return s.world.Resume()
	case protocol.ActionSetSpeed:
		if m.Speed == nil {
			return &world.RequestError{Code: protocol.ErrBadRequest, Msg: "set_speed requires speed"}
		}
		return s.world.SetSpeed(*m.Speed)
	case protocol.ActionSetScenario:
		if m.Scenario == "" {
			return &world.RequestError{Code: protocol.ErrBadRequest, Msg: "set_scenario requires scenario"}
		}
		return s.world.SetScenario(m.Scenario)
	case protocol.ActionSetWeather:
		if m.Weather == nil {
			return &world.RequestError{Code: protocol.ErrBadRequest, Msg: "set_weather requires weather"}
		}
		cond := energy.Condition(m.Weather.Condition)
		impact := world.DefaultImpact(cond)
		if m.Weather.Impact != nil {
			impact = *m.Weather.Impact
		}
		return s.world.SetWeather(cond, impact)
	default:
		return &world.RequestError{Code: protocol.ErrBadRequest, Msg: "unknown action " + m.Action}
	}
}

func (s *Server) ack(sub *world.Subscriber, ackFor, requestID, entityID string, err error) {
	msg := protocol.AckMsg{
		Type:      protocol.TypeAck,
		AckFor:    ackFor,
		RequestID: requestID,
		Accepted:  err == nil,
		EntityID:  entityID,
	}
	if err != nil {
		msg.Code = world.ErrCode(err)
		msg.Message = err.Error()
		msg.EntityID = ""
	}
	s.push(sub, msg)
}

func (s *Server) pushError(sub *world.Subscriber, code, message string) {
	s.push(sub, protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: message})
}

func (s *Server) push(sub *world.Subscriber, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case sub.Out <- b:
	default:
		// Client is not draining; replies are droppable like any push frame.
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/guildtools/dkpledger/service"
)

// Server is the JSON-over-TCP front for the DKP service: one request per
// connection, a type field selecting the operation, a bounded worker pool.
type Server struct {
	addr       string
	maxWorkers int
	svc        *service.Service
	logger     *zap.Logger
}

func NewServer(addr string, maxWorkers int, svc *service.Service, logger *zap.Logger) *Server {
	return &Server{addr: addr, maxWorkers: maxWorkers, svc: svc, logger: logger}
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			s.logger.Error("failed to close listener", zap.Error(err))
		}
	}()

	s.logger.Info("dkpd listening", zap.String("addr", s.addr), zap.Int("max_workers", s.maxWorkers))

	semaphore := make(chan struct{}, s.maxWorkers)
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.logger.Error("failed to accept connection", zap.Error(err))
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			s.logger.Warn("no workers available, rejecting connection")
			if err := conn.Close(); err != nil {
				s.logger.Error("failed to close rejected connection", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in handleConnection", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.logger.Error("failed to close connection", zap.Error(err))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.logger.Error("failed to read request", zap.Error(err))
		return
	}

	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(buf.Bytes(), &baseReq); err != nil {
		s.logger.Error("failed to decode base request", zap.Error(err))
		return
	}

	s.logger.Info("received request", zap.String("type", baseReq.Type))
	response := s.dispatch(baseReq.Type, buf.Bytes())

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) dispatch(reqType string, payload []byte) any {
	ctx := context.Background()

	switch reqType {
	case "ping":
		return map[string]any{
			"type":      "pong",
			"message":   "dkpd is healthy",
			"timestamp": time.Now().Unix(),
		}

	case "resolve_auction":
		var req service.ResolveAuctionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResponse(fmt.Errorf("failed to decode auction request: %w", err))
		}
		result, err := s.svc.ResolveAuction(ctx, req)
		if err != nil {
			return errorResponse(err)
		}
		return map[string]any{"type": "result", "message": result.Message, "warnings": result.Warnings}

	case "correct_auction":
		var req struct {
			Fingerprint string                    `json:"fingerprint"`
			Bids        []service.CorrectedWinner `json:"bids"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResponse(fmt.Errorf("failed to decode correction request: %w", err))
		}
		msg, err := s.svc.CorrectAuction(ctx, req.Fingerprint, req.Bids)
		if err != nil {
			return errorResponse(err)
		}
		return map[string]any{"type": "result", "message": msg}

	case "cancel_auction":
		var req struct {
			Fingerprint string `json:"fingerprint"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResponse(fmt.Errorf("failed to decode cancellation request: %w", err))
		}
		msg, err := s.svc.CancelAuction(ctx, req.Fingerprint)
		if err != nil {
			return errorResponse(err)
		}
		return map[string]any{"type": "result", "message": msg}

	case "charge_dkp":
		var req service.ChargeRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResponse(fmt.Errorf("failed to decode charge request: %w", err))
		}
		msg, err := s.svc.ChargeDKP(ctx, req)
		if err != nil {
			return errorResponse(err)
		}
		return map[string]any{"type": "result", "message": msg}

	case "tiebreak":
		var req struct {
			Characters []string `json:"characters"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResponse(fmt.Errorf("failed to decode tiebreak request: %w", err))
		}
		rankings, err := s.svc.Tiebreak(ctx, req.Characters)
		if err != nil {
			return errorResponse(err)
		}
		return map[string]any{"type": "result", "rankings": rankings}

	case "resolve_flags":
		var req struct {
			Players   []string `json:"players"`
			ItemName  string   `json:"item_name"`
			ItemCount int      `json:"item_count"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResponse(fmt.Errorf("failed to decode flags request: %w", err))
		}
		result, err := s.svc.ResolveFlags(ctx, req.Players, req.ItemName, req.ItemCount)
		if err != nil {
			return errorResponse(err)
		}
		return map[string]any{"type": "result", "message": result.Message, "warnings": result.Warnings}

	case "record_attendance":
		var req struct {
			Value            int                    `json:"value"`
			AttendanceWeight int                    `json:"attendance_weight"`
			Time             time.Time              `json:"time"`
			Characters       []service.RosterMember `json:"characters"`
			Notes            string                 `json:"notes"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResponse(fmt.Errorf("failed to decode attendance request: %w", err))
		}
		members, err := s.svc.GetOrCreateMembers(ctx, req.Characters)
		if err != nil {
			return errorResponse(err)
		}
		names := make([]string, 0, len(members))
		for _, m := range members {
			names = append(names, m.Name)
		}
		if err := s.svc.RecordAttendanceEvent(ctx, req.Value, req.AttendanceWeight, req.Time, names, req.Notes); err != nil {
			return errorResponse(err)
		}
		return map[string]any{"type": "result", "message": "Attendance recorded"}

	default:
		return map[string]any{
			"type":    "error",
			"message": fmt.Sprintf("Unknown request type: %s", reqType),
		}
	}
}

// errorResponse renders a service error without leaking internals: the typed
// taxonomy errors carry caller-safe messages, anything else is generic.
func errorResponse(err error) map[string]any {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		conflict   *service.ConflictError
		policy     *service.PolicyError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound),
		errors.As(err, &conflict), errors.As(err, &policy):
		return map[string]any{"type": "error", "message": err.Error()}
	default:
		return map[string]any{"type": "error", "message": "internal error"}
	}
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/api/response"
	"github.com/quantpilot/quantpilot/internal/core"
	"github.com/quantpilot/quantpilot/internal/session"
)

// handleStart starts a fresh session with the live account balance. It
// refuses to replace a running session and reports a brokerage failure
// without touching state.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.session.Status() == session.StatusRunning {
		response.Action(w, false, "session already running", nil)
		return
	}
	if !s.cfg.Broker.Configured() {
		response.Action(w, false, "brokerage is not configured", nil)
		return
	}

	balance, err := s.brk.GetAccountBalance(r.Context())
	if err != nil {
		s.logger.Warn("manual start failed to fetch balance", zap.Error(err))
		response.Action(w, false, fmt.Sprintf("could not fetch account balance: %v", err), nil)
		return
	}

	s.session.Start(balance.Equity)
	response.Action(w, true, fmt.Sprintf("session started with balance $%.2f", balance.Equity), nil)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !s.session.Pause() {
		response.Action(w, false, "session is not running", nil)
		return
	}
	response.Action(w, true, "trading paused", nil)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if !s.session.Resume() {
		response.Action(w, false, "session is not paused", nil)
		return
	}
	response.Action(w, true, "trading resumed", nil)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.session.Stop()
	response.Action(w, true, "trading stopped", nil)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	response.Action(w, true, "session reset, history preserved", nil)
}

func (s *Server) handleFullReset(w http.ResponseWriter, r *http.Request) {
	s.session.FullReset()
	response.Action(w, true, "session fully reset", nil)
}

// handleExecute triggers a full trading cycle.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.ExecuteCycle(r.Context())
	if err != nil {
		if errors.Is(err, core.ErrCycleInFlight) {
			response.Action(w, false, "a cycle is already running", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.Action(w, true,
		fmt.Sprintf("cycle complete: %d trades, %d errors", result.TradesExecuted, len(result.Errors)),
		result)
}

// handleExecuteSingle triggers the pipeline for one random strategy.
func (s *Server) handleExecuteSingle(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.ExecuteSingle(r.Context())
	if err != nil {
		if errors.Is(err, core.ErrCycleInFlight) {
			response.Action(w, false, "a cycle is already running", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.Action(w, true,
		fmt.Sprintf("single execution complete: %d trades, %d errors", result.TradesExecuted, len(result.Errors)),
		result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.stats.Overview(r.Context()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.stats.QuickSummary(r.Context()))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.session.RecentTrades(limitParam(r, 50)))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.session.LogMessages(limitParam(r, 50)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// limitParam parses the limit query parameter, falling back to def.
func limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return def
	}
	return limit
}
